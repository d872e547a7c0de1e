// Package detector implements the scan detection rules. Every detector is a
// pure, stateless function over an immutable activity snapshot: no detector
// touches persistence or observes another detector's output.
package detector

import (
	"fmt"
	"time"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Detector is one detection rule.
type Detector interface {
	// Name is the stable identifier used in config, logs and scan results.
	Name() string
	// Kinds lists the activity record kinds the rule depends on. The
	// orchestrator skips the detector when any of them failed to fetch.
	Kinds() []activity.Kind
	// Detect scans the snapshot and proposes zero or more raw findings.
	Detect(snap *activity.Snapshot, cfg types.DetectorsConfig) ([]types.RawFinding, error)
}

// All returns every built-in detector, minus the ones disabled in config.
func All(cfg types.DetectorsConfig) []Detector {
	builtins := []Detector{
		NeverVisited{},
		TerritoryGap{},
		OrderDrop{},
		ProspectCluster{},
		InactiveHub{},
	}

	var enabled []Detector
	for _, d := range builtins {
		if !cfg.IsDisabled(d.Name()) {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// wholeDays returns the number of whole days between from and to, by floor
// division. Boundary days count per the floor: 7 days and 23 hours is 7 days.
func wholeDays(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

// requireComplete fails a detector when its record kind was truncated. A
// zero-records rule run over a partial window would fabricate findings, so
// partial data is an error for the rules that count absences.
func requireComplete(snap *activity.Snapshot, kind activity.Kind) error {
	if snap.Truncated(kind) {
		return fmt.Errorf("%s activity truncated at fetch limit; refusing to evaluate on partial data", kind)
	}
	return nil
}

// countByEntity tallies records of a kind per entity ID, optionally bounded
// below by since (zero time means no bound).
func countByEntity(snap *activity.Snapshot, kind activity.Kind, since time.Time) map[string]int {
	counts := make(map[string]int)
	for _, r := range snap.Records(kind) {
		if !since.IsZero() && r.OccurredAt.Before(since) {
			continue
		}
		counts[r.EntityID]++
	}
	return counts
}
