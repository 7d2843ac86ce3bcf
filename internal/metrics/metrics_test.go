package metrics_test

import (
	"expvar"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/wardtrace/internal/metrics"
)

func TestInc(t *testing.T) {
	before := metrics.MovesRecorded.Value()
	metrics.Inc(metrics.MovesRecorded)
	metrics.Inc(metrics.MovesRecorded)
	assert.Equal(t, before+2, metrics.MovesRecorded.Value())
}

func TestCountersPublished(t *testing.T) {
	for _, name := range []string{
		"wardtrace_exit_queries_total",
		"wardtrace_access_queries_total",
		"wardtrace_contact_queries_total",
		"wardtrace_moves_recorded_total",
		"wardtrace_moves_rejected_total",
		"wardtrace_events_imported_total",
		"wardtrace_events_skipped_total",
		"wardtrace_briefings_total",
	} {
		assert.NotNil(t, expvar.Get(name), name)
	}
}
