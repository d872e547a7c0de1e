package detector

import (
	"time"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

const defaultNeverVisitedMinDays = 7

// NeverVisited flags outlets that have never received a visit since they were
// onboarded, once they are older than the configured minimum age. Severity
// escalation (medium past 7 days, high past 30) is applied by the scorer from
// the day count in evidence.
//
// The rule only considers outlets created inside the snapshot window: for an
// older outlet a bounded window cannot prove that no visit ever happened.
type NeverVisited struct{}

func (NeverVisited) Name() string { return "never_visited" }

func (NeverVisited) Kinds() []activity.Kind { return []activity.Kind{activity.KindVisit} }

func (NeverVisited) Detect(snap *activity.Snapshot, cfg types.DetectorsConfig) ([]types.RawFinding, error) {
	if err := requireComplete(snap, activity.KindVisit); err != nil {
		return nil, err
	}

	minDays := cfg.NeverVisited.MinDays
	if minDays <= 0 {
		minDays = defaultNeverVisitedMinDays
	}

	visited := countByEntity(snap, activity.KindVisit, time.Time{})

	var findings []types.RawFinding
	for _, e := range snap.Entities {
		if e.Type != types.EntityOutlet || e.State != types.StateActive {
			continue
		}
		if e.CreatedAt.Before(snap.Since) {
			continue // window cannot prove "never visited" for older outlets
		}
		if visited[e.ID] > 0 {
			continue
		}

		days := wholeDays(e.CreatedAt, snap.TakenAt)
		if days <= minDays {
			continue
		}

		findings = append(findings, types.RawFinding{
			EntityType: types.EntityOutlet,
			EntityID:   e.ID,
			Region:     e.Region,
			Kind:       types.RiskNeverVisited,
			Evidence: types.NeverVisitedEvidence{
				CreatedAt:         e.CreatedAt,
				DaysSinceCreation: days,
			},
		})
	}
	return findings, nil
}
