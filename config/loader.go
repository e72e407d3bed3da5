/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"io"
)

// Loader fills configuration sections: first defaults are registered for all of them,
// then each section reads its values.
type Loader struct {
	Provider *ViperProvider
}

// NewDefaultLoader creates a loader that also reads environment variables with the given prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	vp := NewViperProvider()
	vp.UseEnvVars(envVarsPrefix)
	return NewLoader(vp)
}

// NewLoader creates a new loader.
func NewLoader(vp *ViperProvider) *Loader {
	return &Loader{Provider: vp}
}

// LoadFromFile reads the file and sets values in all passed sections.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfgs ...Config) error {
	if err := l.Provider.ReadFile(path, dataType); err != nil {
		return err
	}
	return l.Load(cfgs...)
}

// LoadFromReader reads data from reader and sets values in all passed sections.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfgs ...Config) error {
	if err := l.Provider.Read(reader, dataType); err != nil {
		return err
	}
	return l.Load(cfgs...)
}

// Load sets values in all passed sections from what was read so far, defaults and environment variables.
func (l *Loader) Load(cfgs ...Config) error {
	for _, cfg := range cfgs {
		cfg.SetProviderDefaults(providerFor(cfg, l.Provider))
	}
	for _, cfg := range cfgs {
		if err := cfg.Set(providerFor(cfg, l.Provider)); err != nil {
			return err
		}
	}
	return nil
}
