/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package charai

import (
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/timing"
)

// UpstreamFailure describes a failed character info request.
type UpstreamFailure struct {
	ExternalID string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Message    string
	Time       time.Time
}

// FailureReporter logs upstream failures once per burst.
// Only the most recent failure of a burst is logged, together with the number of failures in it.
type FailureReporter struct {
	logger    log.FieldLogger
	throttler *timing.Throttler[UpstreamFailure]
	failures  atomic.Int64
}

// NewFailureReporter creates a new FailureReporter. The report is written delay after the last failure of a burst.
func NewFailureReporter(logger log.FieldLogger, delay time.Duration, opts ...timing.Option) *FailureReporter {
	fr := &FailureReporter{logger: logger}
	fr.throttler = timing.NewThrottler(fr.report, delay, opts...)
	return fr
}

// Report registers a failure.
func (fr *FailureReporter) Report(failure UpstreamFailure) {
	fr.failures.Inc()
	fr.throttler.Trigger(failure)
}

// Flush writes the pending report immediately.
func (fr *FailureReporter) Flush() bool {
	return fr.throttler.Flush()
}

// Close drops the pending report.
func (fr *FailureReporter) Close() {
	fr.throttler.Close()
}

func (fr *FailureReporter) report(failure UpstreamFailure) {
	fr.logger.Warn("character info upstream is failing",
		log.Int64("failures", fr.failures.Swap(0)),
		log.String("external_id", failure.ExternalID),
		log.Int("status", failure.StatusCode),
		log.String("message", failure.Message),
		log.Time("last_failure_time", failure.Time),
	)
}
