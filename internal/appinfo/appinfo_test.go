/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package appinfo

import (
	"runtime/debug"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name        string
		buildInfo   *debug.BuildInfo
		wantVersion string
	}{
		{
			name:        "no build info",
			wantVersion: "v0.0.0",
		},
		{
			name:        "tagged module",
			buildInfo:   &debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}},
			wantVersion: "v1.4.0",
		},
		{
			name: "development build with vcs revision",
			buildInfo: &debug.BuildInfo{
				Main:     debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef0123"}},
			},
			wantVersion: "v0.0.0-0123456789ab",
		},
		{
			name:        "development build",
			buildInfo:   &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVersion: "v0.0.0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantVersion, extractVersion(tt.buildInfo))
		})
	}
}

func TestUserAgent(t *testing.T) {
	require.True(t, strings.HasPrefix(UserAgent(), Name+"/v"))
}

func TestBuildInfoMetrics(t *testing.T) {
	m := NewBuildInfoMetrics("charai_gateway")
	require.Equal(t, 1.0, promtestutil.ToFloat64(m.BuildInfo))
}
