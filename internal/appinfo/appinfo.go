/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package appinfo provides the name and build version of the gateway.
package appinfo

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Name is the application name used in the User-Agent header and in logs.
const Name = "charai-gateway"

const unknownVersion = "v0.0.0"

var (
	version     string
	versionOnce sync.Once
)

// Version returns the version of the main module, "v0.0.0" for development builds.
func Version() string {
	versionOnce.Do(func() {
		buildInfo, _ := debug.ReadBuildInfo()
		version = extractVersion(buildInfo)
	})
	return version
}

// UserAgent returns the value of the User-Agent header for outgoing requests.
func UserAgent() string {
	return Name + "/" + Version()
}

// extractVersion takes the module version, or the VCS revision if the binary was built from a work tree.
func extractVersion(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil {
		return unknownVersion
	}
	if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			rev := setting.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
			return unknownVersion + "-" + rev
		}
	}
	return unknownVersion
}

// BuildInfoMetrics exposes the constant build_info gauge labeled with versions.
type BuildInfoMetrics struct {
	BuildInfo prometheus.Gauge
}

// NewBuildInfoMetrics creates a new BuildInfoMetrics.
func NewBuildInfoMetrics(namespace string) *BuildInfoMetrics {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Always 1, labeled with the build versions.",
		ConstLabels: prometheus.Labels{"version": Version(), "go_version": runtime.Version()},
	})
	gauge.Set(1)
	return &BuildInfoMetrics{BuildInfo: gauge}
}

// MustRegister registers the gauge in the default Prometheus registry.
func (m *BuildInfoMetrics) MustRegister() {
	prometheus.MustRegister(m.BuildInfo)
}

// Unregister removes the gauge from the default Prometheus registry.
func (m *BuildInfoMetrics) Unregister() {
	prometheus.Unregister(m.BuildInfo)
}
