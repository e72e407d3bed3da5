/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/acronis/charai-gateway/config"
)

const cfgDefaultKeyPrefix = "settings"

const (
	cfgKeyFlushDelay                  = "flushDelay"
	cfgKeyPersistenceBackend          = "persistence.backend"
	cfgKeyPersistenceFilePath         = "persistence.file.path"
	cfgKeyPersistenceDynamoDBTable    = "persistence.dynamodb.table"
	cfgKeyPersistenceDynamoDBRegion   = "persistence.dynamodb.region"
	cfgKeyPersistenceDynamoDBEndpoint = "persistence.dynamodb.endpoint"
)

// Backend defines where durable settings are kept.
type Backend string

// Persistence backends.
const (
	BackendNone     Backend = "none"
	BackendFile     Backend = "file"
	BackendDynamoDB Backend = "dynamodb"
)

var availableBackends = []string{string(BackendNone), string(BackendFile), string(BackendDynamoDB)}

// Config represents a set of configuration parameters for the settings store.
type Config struct {
	FlushDelay  time.Duration     `mapstructure:"flushDelay" yaml:"flushDelay" json:"flushDelay"`
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence" json:"persistence"`

	keyPrefix string
}

// PersistenceConfig selects and configures the Persister.
type PersistenceConfig struct {
	Backend  Backend        `mapstructure:"backend" yaml:"backend" json:"backend"`
	File     FileConfig     `mapstructure:"file" yaml:"file" json:"file"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb" yaml:"dynamodb" json:"dynamodb"`
}

// FileConfig configures FilePersister.
type FileConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// DynamoDBConfig configures DynamoDBPersister.
type DynamoDBConfig struct {
	Table    string `mapstructure:"table" yaml:"table" json:"table"`
	Region   string `mapstructure:"region" yaml:"region" json:"region"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
}

var (
	_ config.Config            = (*Config)(nil)
	_ config.KeyPrefixProvider = (*Config)(nil)
)

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
	dp.SetDefault(cfgKeyFlushDelay, DefaultFlushDelay.String())
	dp.SetDefault(cfgKeyPersistenceBackend, string(BackendNone))
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.FlushDelay, err = dp.GetDuration(cfgKeyFlushDelay); err != nil {
		return err
	}
	if c.FlushDelay <= 0 {
		return dp.WrapKeyErr(cfgKeyFlushDelay, fmt.Errorf("must be positive"))
	}

	var backend string
	if backend, err = dp.GetStringFromSet(cfgKeyPersistenceBackend, availableBackends, true); err != nil {
		return err
	}
	c.Persistence.Backend = Backend(strings.ToLower(backend))

	if c.Persistence.File.Path, err = dp.GetString(cfgKeyPersistenceFilePath); err != nil {
		return err
	}
	if c.Persistence.Backend == BackendFile && c.Persistence.File.Path == "" {
		return dp.WrapKeyErr(cfgKeyPersistenceFilePath, fmt.Errorf("cannot be empty when %q backend is used", BackendFile))
	}

	if c.Persistence.DynamoDB.Table, err = dp.GetString(cfgKeyPersistenceDynamoDBTable); err != nil {
		return err
	}
	if c.Persistence.Backend == BackendDynamoDB && c.Persistence.DynamoDB.Table == "" {
		return dp.WrapKeyErr(cfgKeyPersistenceDynamoDBTable,
			fmt.Errorf("cannot be empty when %q backend is used", BackendDynamoDB))
	}
	if c.Persistence.DynamoDB.Region, err = dp.GetString(cfgKeyPersistenceDynamoDBRegion); err != nil {
		return err
	}
	if c.Persistence.DynamoDB.Endpoint, err = dp.GetString(cfgKeyPersistenceDynamoDBEndpoint); err != nil {
		return err
	}
	return nil
}

// NewPersister creates the Persister selected by cfg. It returns nil for BackendNone.
func NewPersister(ctx context.Context, cfg *Config) (Persister, error) {
	switch cfg.Persistence.Backend {
	case BackendFile:
		return NewFilePersister(cfg.Persistence.File.Path), nil
	case BackendDynamoDB:
		client, err := NewDynamoDBClient(ctx, cfg.Persistence.DynamoDB.Region, cfg.Persistence.DynamoDB.Endpoint)
		if err != nil {
			return nil, err
		}
		return NewDynamoDBPersister(client, cfg.Persistence.DynamoDB.Table), nil
	}
	return nil, nil
}
