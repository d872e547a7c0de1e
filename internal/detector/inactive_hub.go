package detector

import (
	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

const defaultHubInactiveDays = 30

// InactiveHub flags active hubs whose record has not been touched for more
// than the configured number of days. The day count is informational evidence
// only; unlike never-visited it does not escalate the severity.
type InactiveHub struct{}

func (InactiveHub) Name() string { return "inactive_hub" }

// Kinds is empty: the rule works entirely off entity timestamps.
func (InactiveHub) Kinds() []activity.Kind { return nil }

func (InactiveHub) Detect(snap *activity.Snapshot, cfg types.DetectorsConfig) ([]types.RawFinding, error) {
	inactiveDays := cfg.InactiveHub.InactiveDays
	if inactiveDays <= 0 {
		inactiveDays = defaultHubInactiveDays
	}

	var findings []types.RawFinding
	for _, e := range snap.Entities {
		if e.Type != types.EntityHub || e.State != types.StateActive {
			continue
		}

		days := wholeDays(e.UpdatedAt, snap.TakenAt)
		if days <= inactiveDays {
			continue
		}

		findings = append(findings, types.RawFinding{
			EntityType: types.EntityHub,
			EntityID:   e.ID,
			Region:     e.Region,
			Kind:       types.RiskInactiveHub,
			Evidence: types.InactiveHubEvidence{
				LastUpdatedAt: e.UpdatedAt,
				DaysInactive:  days,
			},
		})
	}
	return findings, nil
}
