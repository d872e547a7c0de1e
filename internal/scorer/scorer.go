// Package scorer normalizes raw detector findings into persisted risk
// insights: it assigns the 0-100 score, derives the severity band, and renders
// the operator-facing text. Scores and levels are owned here; nothing outside
// this package computes them.
package scorer

import (
	"fmt"
	"time"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

// MalformedFindingError reports a finding the scorer refuses to normalize.
// Scans count these as dropped rather than failing the run.
type MalformedFindingError struct {
	Kind   types.RiskType
	Reason string
}

func (e *MalformedFindingError) Error() string {
	return fmt.Sprintf("malformed %s finding: %s", e.Kind, e.Reason)
}

// Normalize converts a raw finding into a risk insight ready for insertion.
// The insight ID is left empty; the store assigns it at insert time. A nil,
// invalid, or type-mismatched evidence payload yields a MalformedFindingError.
func Normalize(f types.RawFinding, now time.Time, ttl time.Duration) (*types.RiskInsight, error) {
	if f.Evidence == nil {
		return nil, &MalformedFindingError{Kind: f.Kind, Reason: "missing evidence"}
	}
	if got := f.Evidence.RiskType(); got != f.Kind {
		return nil, &MalformedFindingError{
			Kind:   f.Kind,
			Reason: fmt.Sprintf("evidence is for %s", got),
		}
	}
	if err := f.Evidence.Validate(); err != nil {
		return nil, &MalformedFindingError{Kind: f.Kind, Reason: err.Error()}
	}

	score, headline, details, action, err := scoreEvidence(f)
	if err != nil {
		return nil, err
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	insight := &types.RiskInsight{
		EntityType:        f.EntityType,
		EntityID:          f.EntityID,
		Region:            f.Region,
		RiskType:          f.Kind,
		RiskScore:         score,
		RiskLevel:         types.LevelForScore(score),
		Headline:          headline,
		Details:           details,
		RecommendedAction: action,
		SourceData:        f.Evidence.SourceData(),
		Status:            types.StatusOpen,
		CreatedAt:         now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		insight.ExpiresAt = &exp
	}
	return insight, nil
}

func scoreEvidence(f types.RawFinding) (score int, headline, details, action string, err error) {
	switch ev := f.Evidence.(type) {
	case types.NeverVisitedEvidence:
		return scoreNeverVisited(f, ev)
	case types.TerritoryGapEvidence:
		return scoreTerritoryGap(ev)
	case types.OrderDropEvidence:
		return scoreOrderDrop(f, ev)
	case types.ProspectClusterEvidence:
		return scoreProspectCluster(ev)
	case types.InactiveHubEvidence:
		return scoreInactiveHub(f, ev)
	default:
		return 0, "", "", "", &MalformedFindingError{
			Kind:   f.Kind,
			Reason: fmt.Sprintf("unhandled evidence type %T", f.Evidence),
		}
	}
}

func scoreNeverVisited(f types.RawFinding, ev types.NeverVisitedEvidence) (int, string, string, string, error) {
	d := ev.DaysSinceCreation
	if d < 8 {
		return 0, "", "", "", &MalformedFindingError{
			Kind:   f.Kind,
			Reason: fmt.Sprintf("%d days since creation is below the reporting floor", d),
		}
	}

	var score int
	if d >= 31 {
		score = 70 + min(d-31, 19)
	} else {
		score = 40 + min(d-8, 22)
	}

	headline := fmt.Sprintf("Outlet %s has never been visited", f.EntityID)
	details := fmt.Sprintf("Created %d days ago with no visit on record.", d)
	action := "Schedule a first visit for this outlet."
	return score, headline, details, action, nil
}

func scoreTerritoryGap(ev types.TerritoryGapEvidence) (int, string, string, string, error) {
	n := ev.UncoveredCount

	var score int
	if n >= 5 {
		score = 70 + min(2*(n-5), 19)
	} else {
		score = 55 + 5*(n-3)
	}

	headline := fmt.Sprintf("Coverage gap in %s: %d outlets without a recent visit", ev.Region, n)
	details := fmt.Sprintf("%d active outlets in %s have had no visit in the last %d days.", n, ev.Region, ev.WindowDays)
	action := fmt.Sprintf("Plan a route through %s to restore coverage.", ev.Region)
	return score, headline, details, action, nil
}

func scoreOrderDrop(f types.RawFinding, ev types.OrderDropEvidence) (int, string, string, string, error) {
	score := 70 + min((ev.DropPercent-50)*19/50, 19)

	headline := fmt.Sprintf("Outlet %s order volume dropped %d%%", f.EntityID, ev.DropPercent)
	details := fmt.Sprintf("Deliveries fell from %d to %d over the last 30 days.", ev.PriorCount, ev.RecentCount)
	action := "Contact the outlet to find out why ordering slowed."
	return score, headline, details, action, nil
}

func scoreProspectCluster(ev types.ProspectClusterEvidence) (int, string, string, string, error) {
	n := ev.UncontactedCount
	score := 50 + min(2*(n-5), 19)

	headline := fmt.Sprintf("%d uncontacted prospects clustered in %s", n, ev.Region)
	details := fmt.Sprintf("%d prospects in %s were registered but never contacted.", n, ev.Region)
	action := fmt.Sprintf("Assign a rep to work the %s prospect backlog.", ev.Region)
	return score, headline, details, action, nil
}

func scoreInactiveHub(f types.RawFinding, ev types.InactiveHubEvidence) (int, string, string, string, error) {
	headline := fmt.Sprintf("Hub %s has gone quiet", f.EntityID)
	details := fmt.Sprintf("No record updates for %d days (last change %s).",
		ev.DaysInactive, ev.LastUpdatedAt.UTC().Format("2006-01-02"))
	action := "Check in with the hub operator."
	return 55, headline, details, action, nil
}
