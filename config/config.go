/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads application sections (logging, server, upstream, settings) from YAML/JSON files
// and environment variables. Every section implements the Config interface and reads its own keys
// through a DataProvider, optionally scoped by a key prefix.
package config

import (
	"fmt"
	"reflect"
)

// Config is implemented by every configuration section that may be loaded by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by sections whose keys live under a common prefix (e.g. "server").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// providerFor returns the data provider scoped to the section's key prefix (if any).
func providerFor(section interface{}, dp DataProvider) DataProvider {
	if kp, ok := section.(KeyPrefixProvider); ok {
		return dp.Sub(kp.KeyPrefix())
	}
	return dp
}

// sectionFields returns all exported non-nil fields of the struct pointed by obj that implement Config.
func sectionFields(obj interface{}) []Config {
	el := reflect.ValueOf(obj).Elem()
	var sections []Config
	for i := 0; i < el.NumField(); i++ {
		if !el.Type().Field(i).IsExported() {
			continue
		}
		field := el.Field(i)
		if field.Kind() == reflect.Ptr && field.IsNil() {
			continue
		}
		if c, ok := field.Interface().(Config); ok {
			sections = append(sections, c)
		}
	}
	return sections
}

// CallSetProviderDefaultsForFields calls SetProviderDefaults for every initialized field of obj
// that implements Config. It's handy for composite application configs.
func CallSetProviderDefaultsForFields(obj interface{}, dp DataProvider) {
	for _, section := range sectionFields(obj) {
		section.SetProviderDefaults(providerFor(section, dp))
	}
}

// CallSetForFields calls Set for every initialized field of obj that implements Config.
func CallSetForFields(obj interface{}, dp DataProvider) error {
	for _, section := range sectionFields(obj) {
		if err := section.Set(providerFor(section, dp)); err != nil {
			return err
		}
	}
	return nil
}

// WrapKeyErr wraps error adding information about a key where this error occurs.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
