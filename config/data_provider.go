/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"time"
)

// DataType is a format of configuration data.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataProvider is what a configuration section sees while it is loaded:
// default registration and typed reads of its own keys.
// Keys are relative to the section, errors carry the full key.
type DataProvider interface {
	SetDefault(key string, value interface{})
	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetString(key string) (string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetStringSlice(key string) ([]string, error)
	GetDuration(key string) (time.Duration, error)
	GetBytesCount(key string) (BytesCount, error)
	UnmarshalKey(key string, rawVal interface{}) error
	WrapKeyErr(key string, err error) error

	// Sub returns a provider for the nested section stored under prefix.
	Sub(prefix string) DataProvider
}
