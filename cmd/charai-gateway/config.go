/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"github.com/acronis/charai-gateway/charai"
	"github.com/acronis/charai-gateway/config"
	"github.com/acronis/charai-gateway/httpserver"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/profserver"
	"github.com/acronis/charai-gateway/settings"
)

// envVarsPrefix makes CHARAI_SERVER_ADDRESS override server.address and so on.
const envVarsPrefix = "charai"

// AppConfig holds all configuration sections of the gateway.
type AppConfig struct {
	Log        *log.Config
	Server     *httpserver.Config
	ProfServer *profserver.Config
	CharAI     *charai.Config
	Settings   *settings.Config
}

var _ config.Config = (*AppConfig)(nil)

// NewAppConfig creates a new instance of the AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:        log.NewConfig(),
		Server:     httpserver.NewConfig(),
		ProfServer: profserver.NewConfig(),
		CharAI:     charai.NewConfig(),
		Settings:   settings.NewConfig(),
	}
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set sets configuration values from config.DataProvider.
func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}

// loadAppConfig reads the YAML file at path. An empty path means defaults and environment variables only.
func loadAppConfig(path string) (*AppConfig, error) {
	cfgLoader := config.NewDefaultLoader(envVarsPrefix)
	cfg := NewAppConfig()
	if path == "" {
		return cfg, cfgLoader.Load(cfg)
	}
	return cfg, cfgLoader.LoadFromFile(path, config.DataTypeYAML, cfg)
}
