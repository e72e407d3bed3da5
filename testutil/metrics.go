/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// RequireHistogramSampleCount checks how many observations the histogram series of c with exactly these labels has.
// c is usually a *prometheus.HistogramVec of a gateway metrics collector,
// so a test can address a series by label names instead of label order.
func RequireHistogramSampleCount(t require.TestingT, c prometheus.Collector, labels prometheus.Labels, want uint64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				require.Equal(t, want, metric.GetHistogram().GetSampleCount(), "samples in %s%v", family.GetName(), labels)
				return
			}
		}
	}
	require.Failf(t, "histogram series not found", "no series with labels %v", labels)
}

func labelsMatch(pairs []*dto.LabelPair, labels prometheus.Labels) bool {
	if len(pairs) != len(labels) {
		return false
	}
	for _, pair := range pairs {
		if value, ok := labels[pair.GetName()]; !ok || value != pair.GetValue() {
			return false
		}
	}
	return true
}
