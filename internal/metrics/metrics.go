// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	ScansTotal         = expvar.NewInt("scans_total")
	ScanErrors         = expvar.NewInt("scan_errors")
	DetectorsFailed    = expvar.NewInt("detectors_failed")
	InsightsCreated    = expvar.NewInt("insights_created")
	InsightsSuppressed = expvar.NewInt("insights_suppressed")
	FindingsDropped    = expvar.NewInt("findings_dropped")
	SnapshotsWritten   = expvar.NewInt("snapshots_written")
	ScanBudgetExceeded = expvar.NewInt("scan_budget_exceeded")
)
