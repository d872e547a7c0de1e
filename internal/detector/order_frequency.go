package detector

import (
	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

// Order-frequency-drop defaults.
const (
	defaultDropMinPriorCount  = 3
	defaultDropMinPercent     = 50
	orderDropRecentWindowDays = 30
	orderDropPriorWindowDays  = 60
)

// OrderDrop compares each outlet's delivery count in the trailing 30 days
// against the preceding 30-60 day window. It triggers only when the prior
// window had enough history (>= minPriorCount) and the rate at least halved.
// A halving of order rate is significant regardless of absolute scale, so the
// finding is always high severity.
type OrderDrop struct{}

func (OrderDrop) Name() string { return "order_frequency_drop" }

func (OrderDrop) Kinds() []activity.Kind { return []activity.Kind{activity.KindDelivery} }

func (OrderDrop) Detect(snap *activity.Snapshot, cfg types.DetectorsConfig) ([]types.RawFinding, error) {
	if err := requireComplete(snap, activity.KindDelivery); err != nil {
		return nil, err
	}

	minPrior := cfg.OrderDrop.MinPriorCount
	if minPrior <= 0 {
		minPrior = defaultDropMinPriorCount
	}
	minDrop := cfg.OrderDrop.MinDropPercent
	if minDrop <= 0 {
		minDrop = defaultDropMinPercent
	}

	recentCutoff := snap.TakenAt.AddDate(0, 0, -orderDropRecentWindowDays)
	priorCutoff := snap.TakenAt.AddDate(0, 0, -orderDropPriorWindowDays)

	recent := make(map[string]int)
	prior := make(map[string]int)
	for _, r := range snap.Records(activity.KindDelivery) {
		switch {
		case !r.OccurredAt.Before(recentCutoff):
			recent[r.EntityID]++
		case !r.OccurredAt.Before(priorCutoff):
			prior[r.EntityID]++
		}
	}

	var findings []types.RawFinding
	for _, e := range snap.Entities {
		if e.Type != types.EntityOutlet || e.State != types.StateActive {
			continue
		}

		p := prior[e.ID]
		if p < minPrior {
			continue // too sparse a history to call a drop
		}
		n := recent[e.ID]
		if n >= p {
			continue
		}

		dropPct := (p - n) * 100 / p
		if dropPct < minDrop {
			continue
		}

		findings = append(findings, types.RawFinding{
			EntityType: types.EntityOutlet,
			EntityID:   e.ID,
			Region:     e.Region,
			Kind:       types.RiskOrderDrop,
			Evidence: types.OrderDropEvidence{
				PriorCount:  p,
				RecentCount: n,
				DropPercent: dropPct,
			},
		})
	}
	return findings, nil
}
