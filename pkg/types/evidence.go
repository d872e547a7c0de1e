package types

import (
	"fmt"
	"time"
)

// Evidence is the typed payload backing a raw finding. Each detector emits
// exactly one evidence shape, so the scorer can switch on the concrete type
// instead of digging through an untyped map.
type Evidence interface {
	// RiskType returns the risk type this evidence shape belongs to.
	RiskType() RiskType
	// Validate checks that all required evidence fields are populated.
	Validate() error
	// SourceData flattens the evidence into the persisted source_data map.
	SourceData() map[string]any
}

// NeverVisitedEvidence backs store_never_visited findings.
type NeverVisitedEvidence struct {
	CreatedAt         time.Time
	DaysSinceCreation int
}

func (e NeverVisitedEvidence) RiskType() RiskType { return RiskNeverVisited }

func (e NeverVisitedEvidence) Validate() error {
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("never_visited evidence: createdAt is required")
	}
	if e.DaysSinceCreation < 0 {
		return fmt.Errorf("never_visited evidence: negative daysSinceCreation %d", e.DaysSinceCreation)
	}
	return nil
}

func (e NeverVisitedEvidence) SourceData() map[string]any {
	return map[string]any{
		"createdAt":         e.CreatedAt.UTC().Format(time.RFC3339),
		"daysSinceCreation": e.DaysSinceCreation,
	}
}

// TerritoryGapEvidence backs territory_gap findings. One finding covers a
// whole region, not a single outlet.
type TerritoryGapEvidence struct {
	Region         string
	UncoveredCount int
	WindowDays     int
}

func (e TerritoryGapEvidence) RiskType() RiskType { return RiskTerritoryGap }

func (e TerritoryGapEvidence) Validate() error {
	if e.Region == "" {
		return fmt.Errorf("territory_gap evidence: region is required")
	}
	if e.UncoveredCount <= 0 {
		return fmt.Errorf("territory_gap evidence: uncoveredCount must be positive, got %d", e.UncoveredCount)
	}
	return nil
}

func (e TerritoryGapEvidence) SourceData() map[string]any {
	return map[string]any{
		"region":         e.Region,
		"uncoveredCount": e.UncoveredCount,
		"windowDays":     e.WindowDays,
	}
}

// OrderDropEvidence backs order_frequency_drop findings.
type OrderDropEvidence struct {
	PriorCount  int // deliveries in the 30-60 day window
	RecentCount int // deliveries in the trailing 30 days
	DropPercent int // integer floor of (prior-recent)/prior*100
}

func (e OrderDropEvidence) RiskType() RiskType { return RiskOrderDrop }

func (e OrderDropEvidence) Validate() error {
	if e.PriorCount <= 0 {
		return fmt.Errorf("order_frequency_drop evidence: priorCount must be positive, got %d", e.PriorCount)
	}
	if e.RecentCount < 0 {
		return fmt.Errorf("order_frequency_drop evidence: negative recentCount %d", e.RecentCount)
	}
	if e.DropPercent < 0 || e.DropPercent > 100 {
		return fmt.Errorf("order_frequency_drop evidence: dropPercent %d out of range", e.DropPercent)
	}
	return nil
}

func (e OrderDropEvidence) SourceData() map[string]any {
	return map[string]any{
		"priorCount":  e.PriorCount,
		"recentCount": e.RecentCount,
		"dropPercent": e.DropPercent,
	}
}

// ProspectClusterEvidence backs prospect_cluster findings.
type ProspectClusterEvidence struct {
	Region           string
	UncontactedCount int
}

func (e ProspectClusterEvidence) RiskType() RiskType { return RiskProspectCluster }

func (e ProspectClusterEvidence) Validate() error {
	if e.Region == "" {
		return fmt.Errorf("prospect_cluster evidence: region is required")
	}
	if e.UncontactedCount <= 0 {
		return fmt.Errorf("prospect_cluster evidence: uncontactedCount must be positive, got %d", e.UncontactedCount)
	}
	return nil
}

func (e ProspectClusterEvidence) SourceData() map[string]any {
	return map[string]any{
		"region":           e.Region,
		"uncontactedCount": e.UncontactedCount,
	}
}

// InactiveHubEvidence backs inactive_hub findings. DaysInactive is
// informational only and does not bump the severity.
type InactiveHubEvidence struct {
	LastUpdatedAt time.Time
	DaysInactive  int
}

func (e InactiveHubEvidence) RiskType() RiskType { return RiskInactiveHub }

func (e InactiveHubEvidence) Validate() error {
	if e.LastUpdatedAt.IsZero() {
		return fmt.Errorf("inactive_hub evidence: lastUpdatedAt is required")
	}
	if e.DaysInactive < 0 {
		return fmt.Errorf("inactive_hub evidence: negative daysInactive %d", e.DaysInactive)
	}
	return nil
}

func (e InactiveHubEvidence) SourceData() map[string]any {
	return map[string]any{
		"lastUpdatedAt": e.LastUpdatedAt.UTC().Format(time.RFC3339),
		"daysInactive":  e.DaysInactive,
	}
}
