/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"

	"github.com/acronis/charai-gateway/config"
)

const cfgKeyPrefix = "log"

const (
	cfgKeyLevel          = "level"
	cfgKeyFormat         = "format"
	cfgKeyOutput         = "output"
	cfgKeyNoColor        = "nocolor"
	cfgKeyAddCaller      = "addCaller"
	cfgKeyFilePath       = "file.path"
	cfgKeyFileMaxSize    = "file.maxSize"
	cfgKeyFileMaxBackups = "file.maxBackups"
	cfgKeyMaskingEnabled = "masking.enabled"
	cfgKeyMaskingFields  = "masking.fields"
	cfgKeyMaskingRules   = "masking.rules"
)

// Default and restriction values for the log file.
const (
	DefaultFileMaxSize    = 250 * bytefmt.MEGABYTE
	MinFileMaxSize        = bytefmt.MEGABYTE
	DefaultFileMaxBackups = 10
)

// DefaultMaskedFields are secrets the gateway may log while talking to the upstream API:
// the Authorization header with the API token and credentials found in request or response bodies.
var DefaultMaskedFields = []string{"Authorization", "token", "access_token", "password"}

// Config represents a set of configuration parameters for logging.
type Config struct {
	Level   Level            `mapstructure:"level" yaml:"level" json:"level"`
	Format  Format           `mapstructure:"format" yaml:"format" json:"format"`
	Output  Output           `mapstructure:"output" yaml:"output" json:"output"`
	NoColor bool             `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	File    FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`

	// AddCaller adds package/file:line of the caller to each message.
	AddCaller bool `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`

	Masking MaskingConfig `mapstructure:"masking" yaml:"masking" json:"masking"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgKeyPrefix
}

// Level defines possible values for log levels.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format defines possible values for log formats.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output defines possible values for log outputs.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// FileOutputConfig is a configuration for the rotated log file.
// Path may contain {{pid}} and {{starttime}} placeholders.
type FileOutputConfig struct {
	Path       string            `mapstructure:"path" yaml:"path" json:"path"`
	MaxSize    config.BytesCount `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups int               `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
}

// MaskingConfig says which secrets are removed from log messages and fields.
type MaskingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Fields are masked as an HTTP header, a JSON string field and a URL-encoded parameter.
	Fields []string `mapstructure:"fields" yaml:"fields" json:"fields"`

	// Rules add masks with explicit formats or regular expressions.
	Rules []MaskingRuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`
}

// AllRules returns Fields expanded into rules followed by the explicit Rules.
func (mc MaskingConfig) AllRules() []MaskingRuleConfig {
	rules := make([]MaskingRuleConfig, 0, len(mc.Fields)+len(mc.Rules))
	for _, field := range mc.Fields {
		rules = append(rules, MaskingRuleConfig{Field: field, Formats: allFieldMaskFormats})
	}
	return append(rules, mc.Rules...)
}

// FieldMaskFormat defines possible values for field mask formats.
type FieldMaskFormat string

// Field mask formats.
const (
	FieldMaskFormatHTTPHeader FieldMaskFormat = "http_header"
	FieldMaskFormatJSON       FieldMaskFormat = "json"
	FieldMaskFormatURLEncoded FieldMaskFormat = "urlencoded"
)

var allFieldMaskFormats = []FieldMaskFormat{FieldMaskFormatHTTPHeader, FieldMaskFormatJSON, FieldMaskFormatURLEncoded}

// MaskingRuleConfig is a configuration for a single masking rule.
type MaskingRuleConfig struct {
	Field   string            `mapstructure:"field" yaml:"field" json:"field"`
	Formats []FieldMaskFormat `mapstructure:"formats" yaml:"formats" json:"formats"`
	Masks   []MaskConfig      `mapstructure:"masks" yaml:"masks" json:"masks"`
}

// MaskConfig is a configuration for a single mask.
type MaskConfig struct {
	RegExp string `mapstructure:"regexp" yaml:"regexp" json:"regexp"`
	Mask   string `mapstructure:"mask" yaml:"mask" json:"mask"`
}

var (
	availableLevels  = []string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}
	availableFormats = []string{string(FormatJSON), string(FormatText)}
	availableOutputs = []string{string(OutputStdout), string(OutputStderr), string(OutputFile)}
)

// SetProviderDefaults sets default configuration values for logger in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(LevelInfo))
	dp.SetDefault(cfgKeyFormat, string(FormatJSON))
	dp.SetDefault(cfgKeyOutput, string(OutputStdout))
	dp.SetDefault(cfgKeyFileMaxSize, bytefmt.ByteSize(DefaultFileMaxSize))
	dp.SetDefault(cfgKeyFileMaxBackups, DefaultFileMaxBackups)
	dp.SetDefault(cfgKeyMaskingEnabled, true)
	dp.SetDefault(cfgKeyMaskingFields, DefaultMaskedFields)
}

// Set sets logger configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	for _, item := range []struct {
		key   string
		set   []string
		value *string
	}{
		{cfgKeyLevel, availableLevels, (*string)(&c.Level)},
		{cfgKeyFormat, availableFormats, (*string)(&c.Format)},
		{cfgKeyOutput, availableOutputs, (*string)(&c.Output)},
	} {
		val, err := dp.GetStringFromSet(item.key, item.set, true)
		if err != nil {
			return err
		}
		*item.value = strings.ToLower(val)
	}

	var err error
	if c.AddCaller, err = dp.GetBool(cfgKeyAddCaller); err != nil {
		return err
	}
	if c.NoColor, err = dp.GetBool(cfgKeyNoColor); err != nil {
		return err
	}
	if err = c.setFileOutput(dp); err != nil {
		return err
	}

	if c.Masking.Enabled, err = dp.GetBool(cfgKeyMaskingEnabled); err != nil {
		return err
	}
	if c.Masking.Fields, err = dp.GetStringSlice(cfgKeyMaskingFields); err != nil {
		return err
	}
	return dp.UnmarshalKey(cfgKeyMaskingRules, &c.Masking.Rules)
}

func (c *Config) setFileOutput(dp config.DataProvider) error {
	var err error
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.File.Path == "" && c.Output == OutputFile {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}
	if c.File.MaxSize, err = dp.GetBytesCount(cfgKeyFileMaxSize); err != nil {
		return err
	}
	if c.File.MaxSize < MinFileMaxSize {
		return dp.WrapKeyErr(cfgKeyFileMaxSize, fmt.Errorf("should be >= %s", bytefmt.ByteSize(MinFileMaxSize)))
	}
	if c.File.MaxBackups, err = dp.GetInt(cfgKeyFileMaxBackups); err != nil {
		return err
	}
	if c.File.MaxBackups < 1 {
		return dp.WrapKeyErr(cfgKeyFileMaxBackups, fmt.Errorf("should be >= 1"))
	}
	return nil
}
