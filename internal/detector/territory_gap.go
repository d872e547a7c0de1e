package detector

import (
	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Territory-gap defaults.
const (
	defaultGapWindowDays   = 14
	defaultGapMinUncovered = 3
)

// TerritoryGap flags regions where several active outlets went without a
// single visit over the coverage window. It emits one finding per region, not
// per outlet; the region-level grouping and threshold come from the shared
// clustering helper.
type TerritoryGap struct{}

func (TerritoryGap) Name() string { return "territory_gap" }

func (TerritoryGap) Kinds() []activity.Kind { return []activity.Kind{activity.KindVisit} }

func (TerritoryGap) Detect(snap *activity.Snapshot, cfg types.DetectorsConfig) ([]types.RawFinding, error) {
	if err := requireComplete(snap, activity.KindVisit); err != nil {
		return nil, err
	}

	windowDays := cfg.TerritoryGap.WindowDays
	if windowDays <= 0 {
		windowDays = defaultGapWindowDays
	}
	minUncovered := cfg.TerritoryGap.MinUncovered
	if minUncovered <= 0 {
		minUncovered = defaultGapMinUncovered
	}

	cutoff := snap.TakenAt.AddDate(0, 0, -windowDays)
	visited := countByEntity(snap, activity.KindVisit, cutoff)

	var uncovered []activity.Entity
	for _, e := range snap.Entities {
		if e.Type != types.EntityOutlet || e.State != types.StateActive {
			continue
		}
		if visited[e.ID] > 0 {
			continue
		}
		uncovered = append(uncovered, e)
	}

	groups := groupAndThreshold(uncovered, func(e activity.Entity) string { return e.Region }, minUncovered)

	var findings []types.RawFinding
	for region, outlets := range groups {
		findings = append(findings, types.RawFinding{
			EntityType: types.EntityRegion,
			Region:     region,
			Kind:       types.RiskTerritoryGap,
			Evidence: types.TerritoryGapEvidence{
				Region:         region,
				UncoveredCount: len(outlets),
				WindowDays:     windowDays,
			},
		})
	}
	return findings, nil
}
