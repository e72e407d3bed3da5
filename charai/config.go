/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package charai

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/acronis/charai-gateway/config"
	"github.com/acronis/charai-gateway/httpclient"
)

const cfgDefaultKeyPrefix = "charai"

const (
	cfgKeyEndpoint           = "endpoint"
	cfgKeyToken              = "token" // nolint:gosec // config key, not a credential
	cfgKeyFailureReportDelay = "failureReportDelay"
	cfgKeyClient             = "client"
)

// DefaultEndpoint is the character info endpoint of the chat service.
const DefaultEndpoint = "https://plus.character.ai/chat/character/info/"

// DefaultFailureReportDelay is the quiet period after which a burst of upstream failures is reported.
const DefaultFailureReportDelay = 2 * time.Second

// Config represents a set of configuration parameters for the character info proxy.
type Config struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	// Token is sent as "Authorization: Token <token>" when not empty.
	Token              string             `mapstructure:"token" yaml:"token" json:"token"`
	FailureReportDelay time.Duration      `mapstructure:"failureReportDelay" yaml:"failureReportDelay" json:"failureReportDelay"`
	Client             *httpclient.Config `mapstructure:"client" yaml:"client" json:"client"`

	keyPrefix string
}

var (
	_ config.Config            = (*Config)(nil)
	_ config.KeyPrefixProvider = (*Config)(nil)
)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix, Client: httpclient.NewConfig()}
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
	dp.SetDefault(cfgKeyEndpoint, DefaultEndpoint)
	dp.SetDefault(cfgKeyFailureReportDelay, DefaultFailureReportDelay)
	if c.Client == nil {
		c.Client = httpclient.NewConfig()
	}
	c.Client.SetProviderDefaults(dp.Sub(cfgKeyClient))
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Endpoint, err = dp.GetString(cfgKeyEndpoint); err != nil {
		return err
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return dp.WrapKeyErr(cfgKeyEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dp.WrapKeyErr(cfgKeyEndpoint, fmt.Errorf("absolute http(s) URL is expected, got %q", c.Endpoint))
	}
	if c.Token, err = dp.GetString(cfgKeyToken); err != nil {
		return err
	}
	if c.FailureReportDelay, err = dp.GetDuration(cfgKeyFailureReportDelay); err != nil {
		return err
	}
	if c.FailureReportDelay < 0 {
		return dp.WrapKeyErr(cfgKeyFailureReportDelay, errors.New("should be >= 0"))
	}
	if c.Client == nil {
		c.Client = httpclient.NewConfig()
	}
	return c.Client.Set(dp.Sub(cfgKeyClient))
}
