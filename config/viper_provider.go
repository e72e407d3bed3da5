/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperProvider is a DataProvider backed by viper.
// Providers returned by Sub share the same viper instance and differ only by key prefix.
type ViperProvider struct {
	viper  *viper.Viper
	prefix string
}

var _ DataProvider = (*ViperProvider)(nil)

// NewViperProvider creates a new ViperProvider with no data.
func NewViperProvider() *ViperProvider {
	return &ViperProvider{viper: viper.New()}
}

// UseEnvVars enables reading values from environment variables.
// With prefix "charai", key "server.address" is looked up as CHARAI_SERVER_ADDRESS.
func (vp *ViperProvider) UseEnvVars(prefix string) {
	vp.viper.AutomaticEnv()
	vp.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.viper.SetEnvPrefix(prefix)
}

// ReadFile reads configuration data from the file at path.
func (vp *ViperProvider) ReadFile(path string, dataType DataType) error {
	vp.viper.SetConfigType(string(dataType))
	vp.viper.SetConfigFile(path)
	return vp.viper.ReadInConfig()
}

// Read reads configuration data from reader.
func (vp *ViperProvider) Read(reader io.Reader, dataType DataType) error {
	vp.viper.SetConfigType(string(dataType))
	return vp.viper.ReadConfig(reader)
}

// Sub returns a provider for keys under prefix.
func (vp *ViperProvider) Sub(prefix string) DataProvider {
	if prefix == "" {
		return vp
	}
	return &ViperProvider{viper: vp.viper, prefix: vp.key(prefix)}
}

func (vp *ViperProvider) key(key string) string {
	if vp.prefix == "" {
		return key
	}
	return vp.prefix + "." + key
}

func (vp *ViperProvider) get(key string) interface{} {
	return vp.viper.Get(vp.key(key))
}

// SetDefault sets the default value for this key.
func (vp *ViperProvider) SetDefault(key string, value interface{}) {
	vp.viper.SetDefault(vp.key(key), value)
}

// GetInt tries to retrieve the value associated with the key as an integer.
func (vp *ViperProvider) GetInt(key string) (int, error) {
	res, err := cast.ToIntE(vp.get(key))
	return res, vp.wrapErr(key, err)
}

// GetString tries to retrieve the value associated with the key as a string.
func (vp *ViperProvider) GetString(key string) (string, error) {
	res, err := cast.ToStringE(vp.get(key))
	return res, vp.wrapErr(key, err)
}

// GetBool tries to retrieve the value associated with the key as a bool.
func (vp *ViperProvider) GetBool(key string) (bool, error) {
	res, err := cast.ToBoolE(vp.get(key))
	return res, vp.wrapErr(key, err)
}

// GetStringSlice returns a list of strings. A comma-separated string (typical for env vars) is split.
func (vp *ViperProvider) GetStringSlice(key string) ([]string, error) {
	switch val := vp.get(key).(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		res, err := cast.ToStringSliceE(val)
		return res, vp.wrapErr(key, err)
	}
}

// GetStringFromSet returns the string value and fails if it's not one of set.
func (vp *ViperProvider) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	str, err := vp.GetString(key)
	if err != nil {
		return "", err
	}
	for _, s := range set {
		if str == s || (ignoreCase && strings.EqualFold(str, s)) {
			return str, nil
		}
	}
	return "", vp.WrapKeyErr(key, fmt.Errorf("unknown value %q, should be one of %v", str, set))
}

// GetDuration tries to retrieve the value associated with the key as a duration.
func (vp *ViperProvider) GetDuration(key string) (time.Duration, error) {
	val := vp.get(key)
	if val == nil {
		return 0, nil
	}
	res, err := cast.ToDurationE(val)
	return res, vp.wrapErr(key, err)
}

// GetBytesCount accepts both human-readable ("10M", "512K") and numeric values.
func (vp *ViperProvider) GetBytesCount(key string) (BytesCount, error) {
	switch val := vp.get(key).(type) {
	case nil:
		return 0, nil
	case BytesCount:
		return val, nil
	case string:
		if val == "" {
			return 0, nil
		}
		num, err := bytefmt.ToBytes(val)
		if err != nil {
			return 0, vp.WrapKeyErr(key, fmt.Errorf("invalid bytes format %q: %w", val, err))
		}
		return BytesCount(num), nil
	default:
		num, err := cast.ToInt64E(val)
		if err != nil {
			return 0, vp.WrapKeyErr(key, fmt.Errorf("unsupported type for bytes count: %T", val))
		}
		if num < 0 {
			return 0, vp.WrapKeyErr(key, fmt.Errorf("negative value is not allowed: %d", num))
		}
		return BytesCount(num), nil
	}
}

// UnmarshalKey decodes the subtree under key into rawVal.
// Strings are accepted for durations, comma-separated lists and any encoding.TextUnmarshaler field.
func (vp *ViperProvider) UnmarshalKey(key string, rawVal interface{}) error {
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	return vp.wrapErr(key, vp.viper.UnmarshalKey(vp.key(key), rawVal, hooks))
}

// WrapKeyErr wraps error adding the full key where this error occurs.
func (vp *ViperProvider) WrapKeyErr(key string, err error) error {
	return WrapKeyErr(vp.key(key), err)
}

func (vp *ViperProvider) wrapErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return vp.WrapKeyErr(key, err)
}
