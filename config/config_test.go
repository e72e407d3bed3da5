/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type testSection struct {
	Name    string
	Workers int
	Timeout time.Duration
	MaxBody BytesCount
	Tags    []string

	keyPrefix string
}

func (c *testSection) KeyPrefix() string {
	return c.keyPrefix
}

func (c *testSection) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("name", "default")
	dp.SetDefault("workers", 4)
	dp.SetDefault("timeout", time.Second)
}

func (c *testSection) Set(dp DataProvider) (err error) {
	if c.Name, err = dp.GetStringFromSet("name", []string{"default", "alpha", "beta"}, true); err != nil {
		return err
	}
	if c.Workers, err = dp.GetInt("workers"); err != nil {
		return err
	}
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	if c.MaxBody, err = dp.GetBytesCount("maxBody"); err != nil {
		return err
	}
	if c.Tags, err = dp.GetStringSlice("tags"); err != nil {
		return err
	}
	return nil
}

type testAppConfig struct {
	First    *testSection
	Second   *testSection
	Disabled *testSection
}

func (c *testAppConfig) SetProviderDefaults(dp DataProvider) {
	CallSetProviderDefaultsForFields(c, dp)
}

func (c *testAppConfig) Set(dp DataProvider) error {
	return CallSetForFields(c, dp)
}

func TestLoader_LoadFromReader(t *testing.T) {
	const cfgYAML = `
first:
  name: Alpha
  workers: 8
  timeout: 2m
  maxBody: 10M
  tags: [a, b]
second:
  maxBody: 1024
`
	appCfg := &testAppConfig{
		First:  &testSection{keyPrefix: "first"},
		Second: &testSection{keyPrefix: "second"},
	}
	err := NewLoader(NewViperProvider()).LoadFromReader(bytes.NewBufferString(cfgYAML), DataTypeYAML, appCfg)
	require.NoError(t, err)

	require.Equal(t, "Alpha", appCfg.First.Name)
	require.Equal(t, 8, appCfg.First.Workers)
	require.Equal(t, 2*time.Minute, appCfg.First.Timeout)
	require.Equal(t, BytesCount(10*1024*1024), appCfg.First.MaxBody)
	require.Equal(t, []string{"a", "b"}, appCfg.First.Tags)

	require.Equal(t, "default", appCfg.Second.Name)
	require.Equal(t, 4, appCfg.Second.Workers)
	require.Equal(t, time.Second, appCfg.Second.Timeout)
	require.Equal(t, BytesCount(1024), appCfg.Second.MaxBody)
	require.Nil(t, appCfg.Disabled)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name      string
		cfgData   string
		wantErrIs string
	}{
		{
			name:      "unknown value from set",
			cfgData:   `{"first": {"name": "gamma"}}`,
			wantErrIs: `first.name: unknown value "gamma"`,
		},
		{
			name:      "invalid int",
			cfgData:   `{"first": {"workers": "many"}}`,
			wantErrIs: "first.workers",
		},
		{
			name:      "negative bytes count",
			cfgData:   `{"first": {"maxBody": -1}}`,
			wantErrIs: "first.maxBody: negative value is not allowed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appCfg := &testAppConfig{First: &testSection{keyPrefix: "first"}}
			err := NewLoader(NewViperProvider()).LoadFromReader(bytes.NewBufferString(tt.cfgData), DataTypeJSON, appCfg)
			require.ErrorContains(t, err, tt.wantErrIs)
		})
	}
}

func TestLoader_EnvVars(t *testing.T) {
	t.Setenv("CHARAI_TEST_FIRST_WORKERS", "16")
	t.Setenv("CHARAI_TEST_FIRST_TAGS", "x, y")

	loader := NewDefaultLoader("charai_test")
	loader.Provider.SetDefault("first.tags", "")
	appCfg := &testAppConfig{First: &testSection{keyPrefix: "first"}}
	require.NoError(t, loader.Load(appCfg))
	require.Equal(t, 16, appCfg.First.Workers)
	require.Equal(t, []string{"x", "y"}, appCfg.First.Tags)
}

func TestCustomTypes(t *testing.T) {
	type holder struct {
		Size    BytesCount   `json:"size" yaml:"size"`
		Timeout TimeDuration `json:"timeout" yaml:"timeout"`
	}

	var fromJSON holder
	require.NoError(t, json.Unmarshal([]byte(`{"size":"2K","timeout":"150ms"}`), &fromJSON))
	require.Equal(t, BytesCount(2048), fromJSON.Size)
	require.Equal(t, TimeDuration(150*time.Millisecond), fromJSON.Timeout)

	var fromYAML holder
	require.NoError(t, yaml.Unmarshal([]byte("size: 512\ntimeout: 1m\n"), &fromYAML))
	require.Equal(t, BytesCount(512), fromYAML.Size)
	require.Equal(t, TimeDuration(time.Minute), fromYAML.Timeout)

	require.Error(t, json.Unmarshal([]byte(`{"timeout":"soon"}`), &fromJSON))
	require.Equal(t, "1m0s", TimeDuration(time.Minute).String())
}

func TestViperProvider_Sub(t *testing.T) {
	vp := NewViperProvider()
	require.NoError(t, vp.Read(bytes.NewBufferString(`{"charai": {"client": {"timeout": "3s", "retries": "x"}}}`), DataTypeJSON))

	client := vp.Sub("charai").Sub("client")
	timeout, err := client.GetDuration("timeout")
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, timeout)

	client.SetDefault("burst", 5)
	burst, err := vp.GetInt("charai.client.burst")
	require.NoError(t, err)
	require.Equal(t, 5, burst)

	_, err = client.GetInt("retries")
	require.ErrorContains(t, err, "charai.client.retries: ")
	require.EqualError(t, client.WrapKeyErr("endpoint", errors.New("cannot be empty")), "charai.client.endpoint: cannot be empty")
}

func TestViperProvider_UnmarshalKey(t *testing.T) {
	type rule struct {
		Field   string
		Formats []string
		Limit   BytesCount
		Wait    time.Duration
	}
	const cfgYAML = `
log:
  rules:
    - field: authorization
      formats: http,json
      limit: 2K
      wait: 150ms
`
	vp := NewViperProvider()
	require.NoError(t, vp.Read(bytes.NewBufferString(cfgYAML), DataTypeYAML))

	var rules []rule
	require.NoError(t, vp.Sub("log").UnmarshalKey("rules", &rules))
	require.Equal(t, []rule{{
		Field:   "authorization",
		Formats: []string{"http", "json"},
		Limit:   2048,
		Wait:    150 * time.Millisecond,
	}}, rules)

	require.NoError(t, vp.Read(bytes.NewBufferString("log:\n  rules:\n    - limit: lots\n"), DataTypeYAML))
	require.ErrorContains(t, vp.Sub("log").UnmarshalKey("rules", &rules), "log.rules: ")
}
