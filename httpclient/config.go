/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"strings"
	"time"

	"github.com/acronis/charai-gateway/config"
)

const (
	cfgKeyRateLimitsEnabled          = "rateLimits.enabled"
	cfgKeyRateLimitsLimit            = "rateLimits.limit"
	cfgKeyRateLimitsBurst            = "rateLimits.burst"
	cfgKeyRateLimitsWaitTimeout      = "rateLimits.waitTimeout"
	cfgKeyLoggerEnabled              = "logger.enabled"
	cfgKeyLoggerMode                 = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled             = "metrics.enabled"
	cfgKeyTimeout                    = "timeout"
)

var (
	_ config.Config            = (*Config)(nil)
	_ config.KeyPrefixProvider = (*Config)(nil)
)

// RateLimitConfig represents client-side rate limiting options.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// Limit is the number of requests per second.
	Limit int `mapstructure:"limit" yaml:"limit" json:"limit"`
	Burst int `mapstructure:"burst" yaml:"burst" json:"burst"`
	// WaitTimeout bounds how long a request waits for a slot. Zero means requests over the limit fail at once.
	WaitTimeout time.Duration `mapstructure:"waitTimeout" yaml:"waitTimeout" json:"waitTimeout"`
}

// LoggerConfig represents options of outgoing requests logging.
type LoggerConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Mode                 LoggingMode   `mapstructure:"mode" yaml:"mode" json:"mode"`
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// MetricsConfig represents options of outgoing requests metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// Config represents options for HTTP client configuration.
type Config struct {
	RateLimits RateLimitConfig `mapstructure:"rateLimits" yaml:"rateLimits" json:"rateLimits"`
	Logger     LoggerConfig    `mapstructure:"logger" yaml:"logger" json:"logger"`
	Metrics    MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	// Timeout limits the whole request including reading the response body. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the key prefix used for parsing parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyRateLimitsEnabled, false)
	dp.SetDefault(cfgKeyRateLimitsBurst, DefaultRateLimitingBurst)
	dp.SetDefault(cfgKeyRateLimitsWaitTimeout, DefaultRateLimitingWaitTimeout)
	dp.SetDefault(cfgKeyLoggerEnabled, true)
	dp.SetDefault(cfgKeyLoggerMode, string(LoggingModeAll))
	dp.SetDefault(cfgKeyMetricsEnabled, true)
	dp.SetDefault(cfgKeyTimeout, 0)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, errors.New("should be >= 0"))
	}
	if err = c.setRateLimits(dp); err != nil {
		return err
	}
	if err = c.setLogger(dp); err != nil {
		return err
	}
	c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled)
	return err
}

func (c *Config) setRateLimits(dp config.DataProvider) error {
	var err error
	if c.RateLimits.Enabled, err = dp.GetBool(cfgKeyRateLimitsEnabled); err != nil {
		return err
	}
	if !c.RateLimits.Enabled {
		return nil
	}
	if c.RateLimits.Limit, err = dp.GetInt(cfgKeyRateLimitsLimit); err != nil {
		return err
	}
	if c.RateLimits.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsLimit, errors.New("must be positive"))
	}
	if c.RateLimits.Burst, err = dp.GetInt(cfgKeyRateLimitsBurst); err != nil {
		return err
	}
	if c.RateLimits.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsBurst, errors.New("should be >= 0"))
	}
	if c.RateLimits.WaitTimeout, err = dp.GetDuration(cfgKeyRateLimitsWaitTimeout); err != nil {
		return err
	}
	if c.RateLimits.WaitTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitsWaitTimeout, errors.New("should be >= 0"))
	}
	return nil
}

func (c *Config) setLogger(dp config.DataProvider) error {
	var err error
	if c.Logger.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil {
		return err
	}
	if !c.Logger.Enabled {
		return nil
	}
	var mode string
	if mode, err = dp.GetStringFromSet(cfgKeyLoggerMode, availableLoggingModes, true); err != nil {
		return err
	}
	c.Logger.Mode = LoggingMode(strings.ToLower(mode))
	if c.Logger.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLoggerSlowRequestThreshold); err != nil {
		return err
	}
	if c.Logger.SlowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLoggerSlowRequestThreshold, errors.New("should be >= 0"))
	}
	return nil
}

// LoggingOpts returns options for the logging round tripper.
func (c *LoggerConfig) LoggingOpts() LoggingRoundTripperOpts {
	return LoggingRoundTripperOpts{Mode: c.Mode, SlowRequestThreshold: c.SlowRequestThreshold}
}
