// Package metrics provides application-level counters using stdlib expvar.
// Counters are exported on the /debug/vars endpoint of the HTTP API.
package metrics

import "expvar"

// Operation counters.
var (
	ExitQueries    = expvar.NewInt("wardtrace_exit_queries_total")
	AccessQueries  = expvar.NewInt("wardtrace_access_queries_total")
	ContactQueries = expvar.NewInt("wardtrace_contact_queries_total")
	MovesRecorded  = expvar.NewInt("wardtrace_moves_recorded_total")
	MovesRejected  = expvar.NewInt("wardtrace_moves_rejected_total")
	EventsImported = expvar.NewInt("wardtrace_events_imported_total")
	EventsSkipped  = expvar.NewInt("wardtrace_events_skipped_total")
	Briefings      = expvar.NewInt("wardtrace_briefings_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
