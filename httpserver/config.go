/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"time"

	"github.com/acronis/charai-gateway/config"
	"github.com/acronis/charai-gateway/internal/ratelimit"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyAddress                 = "address"
	cfgKeyTLSEnabled              = "tls.enabled"
	cfgKeyTLSCert                 = "tls.cert"
	cfgKeyTLSKey                  = "tls.key"
	cfgKeyTimeoutsWrite           = "timeouts.write"
	cfgKeyTimeoutsRead            = "timeouts.read"
	cfgKeyTimeoutsReadHeader      = "timeouts.readHeader"
	cfgKeyTimeoutsIdle            = "timeouts.idle"
	cfgKeyTimeoutsShutdown        = "timeouts.shutdown"
	cfgKeyLimitsMaxRequests       = "limits.maxRequests"
	cfgKeyLimitsMaxBodySize       = "limits.maxBodySize"
	cfgKeyRateLimitEnabled        = "rateLimit.enabled"
	cfgKeyRateLimitAlg            = "rateLimit.alg"
	cfgKeyRateLimitCount          = "rateLimit.count"
	cfgKeyRateLimitPeriod         = "rateLimit.period"
	cfgKeyRateLimitBurst          = "rateLimit.burst"
	cfgKeyRateLimitPerClient      = "rateLimit.perClient"
	cfgKeyRateLimitMaxKeys        = "rateLimit.maxKeys"
	cfgKeyRateLimitDryRun         = "rateLimit.dryRun"
	cfgKeyRateLimitExcludedKeys   = "rateLimit.excludedKeys"
	cfgKeyLogRequestStart         = "log.requestStart"
	cfgKeyLogExcludedEndpoints    = "log.excludedEndpoints"
	cfgKeyLogSecretQueryParams    = "log.secretQueryParams" // nolint:gosec // not a credential
	cfgKeyLogSlowRequestThreshold = "log.slowRequestThreshold"
)

const (
	defaultAddress              = ":8080"
	defaultTimeoutsWrite        = time.Minute
	defaultTimeoutsRead         = 15 * time.Second
	defaultTimeoutsReadHeader   = 10 * time.Second
	defaultTimeoutsIdle         = time.Minute
	defaultTimeoutsShutdown     = 5 * time.Second
	defaultLimitsMaxRequests    = 5000
	defaultLimitsMaxBodySize    = "1M"
	defaultRateLimitCount       = 20
	defaultRateLimitPeriod      = time.Second
	defaultSlowRequestThreshold = time.Second
)

var availableRateLimitAlgs = []string{string(ratelimit.AlgLeakyBucket), string(ratelimit.AlgSlidingWindow)}

// Config represents a set of configuration parameters for HTTPServer.
type Config struct {
	Address   string          `mapstructure:"address" yaml:"address" json:"address"`
	TLS       TLSConfig       `mapstructure:"tls" yaml:"tls" json:"tls"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits" json:"limits"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit" json:"rateLimit"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`

	keyPrefix string
}

var (
	_ config.Config            = (*Config)(nil)
	_ config.KeyPrefixProvider = (*Config)(nil)
)

// TLSConfig enables serving HTTPS.
type TLSConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Certificate string `mapstructure:"cert" yaml:"cert" json:"cert"`
	Key         string `mapstructure:"key" yaml:"key" json:"key"`
}

// TimeoutsConfig holds http.Server timeouts and the graceful shutdown timeout.
type TimeoutsConfig struct {
	Write      config.TimeDuration `mapstructure:"write" yaml:"write" json:"write"`
	Read       config.TimeDuration `mapstructure:"read" yaml:"read" json:"read"`
	ReadHeader config.TimeDuration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Idle       config.TimeDuration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown   config.TimeDuration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// LimitsConfig holds limits of served requests.
type LimitsConfig struct {
	// MaxRequests is the maximum number of concurrently served requests, 0 disables the limit.
	MaxRequests int `mapstructure:"maxRequests" yaml:"maxRequests" json:"maxRequests"`
	// MaxBodySizeBytes is the maximum size of a request body, 0 disables the limit.
	MaxBodySizeBytes config.BytesCount `mapstructure:"maxBodySize" yaml:"maxBodySize" json:"maxBodySize"`
}

// RateLimitConfig configures the rate limiting of API requests.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Alg     ratelimit.Alg `mapstructure:"alg" yaml:"alg" json:"alg"`
	// Count requests are allowed per Period.
	Count  int                 `mapstructure:"count" yaml:"count" json:"count"`
	Period config.TimeDuration `mapstructure:"period" yaml:"period" json:"period"`
	Burst  int                 `mapstructure:"burst" yaml:"burst" json:"burst"`
	// PerClient limits each client address separately instead of all requests together.
	PerClient bool `mapstructure:"perClient" yaml:"perClient" json:"perClient"`
	MaxKeys   int  `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`
	DryRun    bool `mapstructure:"dryRun" yaml:"dryRun" json:"dryRun"`
	// ExcludedKeys are glob patterns of client addresses that are never limited.
	ExcludedKeys []string `mapstructure:"excludedKeys" yaml:"excludedKeys" json:"excludedKeys"`
}

// LogConfig configures request logging.
type LogConfig struct {
	RequestStart         bool                `mapstructure:"requestStart" yaml:"requestStart" json:"requestStart"`
	ExcludedEndpoints    []string            `mapstructure:"excludedEndpoints" yaml:"excludedEndpoints" json:"excludedEndpoints"`
	SecretQueryParams    []string            `mapstructure:"secretQueryParams" yaml:"secretQueryParams" json:"secretQueryParams"`
	SlowRequestThreshold config.TimeDuration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAddress, defaultAddress)
	dp.SetDefault(cfgKeyTimeoutsWrite, defaultTimeoutsWrite)
	dp.SetDefault(cfgKeyTimeoutsRead, defaultTimeoutsRead)
	dp.SetDefault(cfgKeyTimeoutsReadHeader, defaultTimeoutsReadHeader)
	dp.SetDefault(cfgKeyTimeoutsIdle, defaultTimeoutsIdle)
	dp.SetDefault(cfgKeyTimeoutsShutdown, defaultTimeoutsShutdown)
	dp.SetDefault(cfgKeyLimitsMaxRequests, defaultLimitsMaxRequests)
	dp.SetDefault(cfgKeyLimitsMaxBodySize, defaultLimitsMaxBodySize)
	dp.SetDefault(cfgKeyRateLimitEnabled, false)
	dp.SetDefault(cfgKeyRateLimitAlg, string(ratelimit.AlgLeakyBucket))
	dp.SetDefault(cfgKeyRateLimitCount, defaultRateLimitCount)
	dp.SetDefault(cfgKeyRateLimitPeriod, defaultRateLimitPeriod)
	dp.SetDefault(cfgKeyRateLimitPerClient, true)
	dp.SetDefault(cfgKeyRateLimitExcludedKeys, []string{})
	dp.SetDefault(cfgKeyLogExcludedEndpoints, []string{"/healthz", "/metrics"})
	dp.SetDefault(cfgKeyLogSecretQueryParams, []string{})
	dp.SetDefault(cfgKeyLogSlowRequestThreshold, defaultSlowRequestThreshold)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("cannot be empty"))
	}
	if err = c.setTLS(dp); err != nil {
		return err
	}
	if err = c.setTimeouts(dp); err != nil {
		return err
	}
	if err = c.setLimits(dp); err != nil {
		return err
	}
	if err = c.setRateLimit(dp); err != nil {
		return err
	}
	return c.setLog(dp)
}

func (c *Config) setTLS(dp config.DataProvider) error {
	var err error
	if c.TLS.Enabled, err = dp.GetBool(cfgKeyTLSEnabled); err != nil {
		return err
	}
	if c.TLS.Certificate, err = dp.GetString(cfgKeyTLSCert); err != nil {
		return err
	}
	if c.TLS.Key, err = dp.GetString(cfgKeyTLSKey); err != nil {
		return err
	}
	if c.TLS.Enabled && (c.TLS.Certificate == "" || c.TLS.Key == "") {
		return dp.WrapKeyErr(cfgKeyTLSKey, fmt.Errorf("both cert and key should be set"))
	}
	return nil
}

func (c *Config) setTimeouts(dp config.DataProvider) error {
	for _, item := range []struct {
		key string
		dst *config.TimeDuration
	}{
		{cfgKeyTimeoutsWrite, &c.Timeouts.Write},
		{cfgKeyTimeoutsRead, &c.Timeouts.Read},
		{cfgKeyTimeoutsReadHeader, &c.Timeouts.ReadHeader},
		{cfgKeyTimeoutsIdle, &c.Timeouts.Idle},
		{cfgKeyTimeoutsShutdown, &c.Timeouts.Shutdown},
	} {
		dur, err := dp.GetDuration(item.key)
		if err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(item.key, fmt.Errorf("should be >= 0"))
		}
		*item.dst = config.TimeDuration(dur)
	}
	return nil
}

func (c *Config) setLimits(dp config.DataProvider) error {
	var err error
	if c.Limits.MaxRequests, err = dp.GetInt(cfgKeyLimitsMaxRequests); err != nil {
		return err
	}
	if c.Limits.MaxRequests < 0 {
		return dp.WrapKeyErr(cfgKeyLimitsMaxRequests, fmt.Errorf("should be >= 0"))
	}
	if c.Limits.MaxBodySizeBytes, err = dp.GetBytesCount(cfgKeyLimitsMaxBodySize); err != nil {
		return err
	}
	return nil
}

func (c *Config) setRateLimit(dp config.DataProvider) error {
	var err error
	if c.RateLimit.Enabled, err = dp.GetBool(cfgKeyRateLimitEnabled); err != nil {
		return err
	}
	var alg string
	if alg, err = dp.GetStringFromSet(cfgKeyRateLimitAlg, availableRateLimitAlgs, false); err != nil {
		return err
	}
	c.RateLimit.Alg = ratelimit.Alg(alg)
	if c.RateLimit.Count, err = dp.GetInt(cfgKeyRateLimitCount); err != nil {
		return err
	}
	if c.RateLimit.Enabled && c.RateLimit.Count <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitCount, fmt.Errorf("must be positive"))
	}
	var period time.Duration
	if period, err = dp.GetDuration(cfgKeyRateLimitPeriod); err != nil {
		return err
	}
	if c.RateLimit.Enabled && period <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitPeriod, fmt.Errorf("must be positive"))
	}
	c.RateLimit.Period = config.TimeDuration(period)
	if c.RateLimit.Burst, err = dp.GetInt(cfgKeyRateLimitBurst); err != nil {
		return err
	}
	if c.RateLimit.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitBurst, fmt.Errorf("should be >= 0"))
	}
	if c.RateLimit.PerClient, err = dp.GetBool(cfgKeyRateLimitPerClient); err != nil {
		return err
	}
	if c.RateLimit.MaxKeys, err = dp.GetInt(cfgKeyRateLimitMaxKeys); err != nil {
		return err
	}
	if c.RateLimit.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitMaxKeys, fmt.Errorf("should be >= 0"))
	}
	if c.RateLimit.DryRun, err = dp.GetBool(cfgKeyRateLimitDryRun); err != nil {
		return err
	}
	if c.RateLimit.ExcludedKeys, err = dp.GetStringSlice(cfgKeyRateLimitExcludedKeys); err != nil {
		return err
	}
	if len(c.RateLimit.ExcludedKeys) != 0 && !c.RateLimit.PerClient {
		return dp.WrapKeyErr(cfgKeyRateLimitExcludedKeys, fmt.Errorf("can be used only with per-client rate limiting"))
	}
	return nil
}

func (c *Config) setLog(dp config.DataProvider) error {
	var err error
	if c.Log.RequestStart, err = dp.GetBool(cfgKeyLogRequestStart); err != nil {
		return err
	}
	if c.Log.ExcludedEndpoints, err = dp.GetStringSlice(cfgKeyLogExcludedEndpoints); err != nil {
		return err
	}
	if c.Log.SecretQueryParams, err = dp.GetStringSlice(cfgKeyLogSecretQueryParams); err != nil {
		return err
	}
	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyLogSlowRequestThreshold); err != nil {
		return err
	}
	c.Log.SlowRequestThreshold = config.TimeDuration(dur)
	return nil
}
