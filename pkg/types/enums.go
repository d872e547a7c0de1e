package types

// RiskType identifies the detection rule family that produced an insight.
type RiskType string

// RiskType values form the closed risk taxonomy. The first group is shared
// with other parts of the product; the second group is emitted by the scan
// detectors in this engine.
const (
	RiskChurn           RiskType = "churn"
	RiskNonPayment      RiskType = "non_payment"
	RiskLowStock        RiskType = "low_stock"
	RiskOverworked      RiskType = "overworked"
	RiskInactivePartner RiskType = "inactive_partner"

	RiskNeverVisited    RiskType = "store_never_visited"
	RiskTerritoryGap    RiskType = "territory_gap"
	RiskOrderDrop       RiskType = "order_frequency_drop"
	RiskProspectCluster RiskType = "prospect_cluster"
	RiskInactiveHub     RiskType = "inactive_hub"
)

// RiskLevel is the severity band derived from a risk score.
type RiskLevel string

// RiskLevel values, ordered from least to most severe.
const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// LevelForScore maps a 0-100 risk score to its severity band. risk_level is
// always derived through this function and never set independently.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 90:
		return LevelCritical
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

var levelRank = map[RiskLevel]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

var levelFloor = map[RiskLevel]int{
	LevelLow:      0,
	LevelMedium:   40,
	LevelHigh:     70,
	LevelCritical: 90,
}

// MinScoreForLevel returns the lowest score inside a severity band. Backends
// that filter by score range use this so SQL predicates and LevelAtLeast agree.
func MinScoreForLevel(level RiskLevel) int {
	return levelFloor[level]
}

// LevelAtLeast reports whether level is the min band or a more severe one.
// Unknown levels never match.
func LevelAtLeast(level, min RiskLevel) bool {
	lr, ok := levelRank[level]
	if !ok {
		return false
	}
	mr, ok := levelRank[min]
	if !ok {
		return false
	}
	return lr >= mr
}

// InsightStatus represents the lifecycle state of a risk insight.
type InsightStatus string

// InsightStatus values. Insights are created open and move to resolved or
// ignored only through an explicit status update.
const (
	StatusOpen     InsightStatus = "open"
	StatusResolved InsightStatus = "resolved"
	StatusIgnored  InsightStatus = "ignored"
)

// ValidTransition reports whether a status change is allowed. Only
// open -> resolved and open -> ignored are legal.
func ValidTransition(from, to InsightStatus) bool {
	return from == StatusOpen && (to == StatusResolved || to == StatusIgnored)
}

// EntityType classifies the subject a risk insight attaches to.
type EntityType string

// EntityType values. Region-scoped findings carry an empty entity ID.
const (
	EntityOutlet   EntityType = "outlet"
	EntityProspect EntityType = "prospect"
	EntityHub      EntityType = "hub"
	EntityRegion   EntityType = "region"
)

// EntityState is the lifecycle state of an operational entity as recorded by
// the host application. The engine only reads it.
type EntityState string

// EntityState values the detectors care about.
const (
	StateActive   EntityState = "active"
	StateProspect EntityState = "prospect"
	StateExcluded EntityState = "excluded"
	StateClosed   EntityState = "closed"
)
