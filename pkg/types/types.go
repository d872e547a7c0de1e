// Package types defines the public domain types for the opsradar risk engine.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawFinding is a detector's pre-normalization output. EntityID is empty for
// region-scoped findings that have no single subject row.
type RawFinding struct {
	EntityType EntityType
	EntityID   string
	Region     string
	Kind       RiskType
	Evidence   Evidence
}

// RiskInsight is the persisted, normalized, scored record derived from a
// finding. risk_score and risk_level are owned by the engine; external actors
// may only change Status.
type RiskInsight struct {
	ID                string         `json:"id"`
	EntityType        EntityType     `json:"entityType"`
	EntityID          string         `json:"entityId,omitempty"`
	Region            string         `json:"region,omitempty"`
	RiskType          RiskType       `json:"riskType"`
	RiskScore         int            `json:"riskScore"`
	RiskLevel         RiskLevel      `json:"riskLevel"`
	Headline          string         `json:"headline"`
	Details           string         `json:"details,omitempty"`
	RecommendedAction string         `json:"recommendedAction,omitempty"`
	SourceData        map[string]any `json:"sourceData"`
	Status            InsightStatus  `json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
	ExpiresAt         *time.Time     `json:"expiresAt,omitempty"`
}

// DedupKey is the uniqueness boundary for suppressing repeat insight creation
// while an insight is still open.
func (i RiskInsight) DedupKey() string {
	return DedupKey(i.EntityType, i.EntityID, i.RiskType)
}

// DedupKey builds the (entity_type, entity_id, risk_type) dedup key.
func DedupKey(et EntityType, id string, rt RiskType) string {
	return fmt.Sprintf("%s#%s#%s", et, id, rt)
}

// Expired reports whether a still-open insight has passed its TTL and should
// be excluded from active queries and summaries.
func (i RiskInsight) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// InsightFilter narrows insight queries. Zero values mean "no constraint",
// except Status which defaults to open.
type InsightFilter struct {
	Status         InsightStatus `json:"status,omitempty"`
	EntityType     EntityType    `json:"entityType,omitempty"`
	Region         string        `json:"region,omitempty"`
	RiskType       RiskType      `json:"riskType,omitempty"`
	MinLevel       RiskLevel     `json:"minLevel,omitempty"`
	IncludeExpired bool          `json:"includeExpired,omitempty"`
	Limit          int           `json:"limit,omitempty"`
}

// Normalized returns the filter with defaults applied.
func (f InsightFilter) Normalized() InsightFilter {
	if f.Status == "" {
		f.Status = StatusOpen
	}
	return f
}

// Matches reports whether an insight passes the filter at the given time.
// Backends that cannot filter server-side apply this client-side so all
// backends agree on semantics.
func (f InsightFilter) Matches(i RiskInsight, now time.Time) bool {
	f = f.Normalized()
	if i.Status != f.Status {
		return false
	}
	if f.EntityType != "" && i.EntityType != f.EntityType {
		return false
	}
	if f.Region != "" && i.Region != f.Region {
		return false
	}
	if f.RiskType != "" && i.RiskType != f.RiskType {
		return false
	}
	if f.MinLevel != "" && !LevelAtLeast(i.RiskLevel, f.MinLevel) {
		return false
	}
	if !f.IncludeExpired && i.Status == StatusOpen && i.Expired(now) {
		return false
	}
	return true
}

// RiskSummary is the derived (never persisted) grouping of a filtered insight
// set by severity band and risk type.
type RiskSummary struct {
	Total   int               `json:"total"`
	ByLevel map[RiskLevel]int `json:"byLevel"`
	ByType  map[RiskType]int  `json:"byType"`
}

// BuildSummary groups insights into a RiskSummary. This is the single counting
// code path: store Summarize implementations must delegate to it so summary
// counts can never drift from query results.
func BuildSummary(insights []RiskInsight) RiskSummary {
	s := RiskSummary{
		ByLevel: make(map[RiskLevel]int),
		ByType:  make(map[RiskType]int),
	}
	for _, i := range insights {
		s.Total++
		s.ByLevel[i.RiskLevel]++
		s.ByType[i.RiskType]++
	}
	return s
}

// Scope partitions KPI snapshots by brand and region. Either field may be
// empty for a wider roll-up; the zero Scope is the global roll-up.
type Scope struct {
	Brand  string `json:"brand,omitempty" yaml:"brand,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// Key returns the storage key fragment for the scope.
func (s Scope) Key() string {
	return s.Brand + "#" + s.Region
}

func (s Scope) String() string {
	if s.Brand == "" && s.Region == "" {
		return "global"
	}
	return fmt.Sprintf("brand=%s region=%s", s.Brand, s.Region)
}

// SnapshotDateFormat is the canonical snapshot_date layout.
const SnapshotDateFormat = "2006-01-02"

// KpiSnapshot is one daily KPI roll-up row per (snapshot_date, scope).
type KpiSnapshot struct {
	Date              string          `json:"date"`
	Scope             Scope           `json:"scope"`
	TotalEntities     int             `json:"totalEntities"`
	ActiveEntities    int             `json:"activeEntities"`
	InactiveEntities  int             `json:"inactiveEntities"`
	TotalOrders       int             `json:"totalOrders"`
	UnpaidOrders      int             `json:"unpaidOrders"`
	Revenue           decimal.Decimal `json:"revenue"`
	SameDayDeliveries int             `json:"sameDayDeliveries"`
	LowStockItems     int             `json:"lowStockItems"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// DetectorError records a single detector's failure within an otherwise
// successful scan.
type DetectorError struct {
	Detector string `json:"detector"`
	Kind     string `json:"kind,omitempty"` // activity kind that failed, if data access
	Message  string `json:"message"`
}

func (e DetectorError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("detector %s: activity kind %s: %s", e.Detector, e.Kind, e.Message)
	}
	return fmt.Sprintf("detector %s: %s", e.Detector, e.Message)
}

// ScanResult describes what a single scan run accomplished. Partial failure is
// reported here, never as a returned error.
type ScanResult struct {
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	AlertsCreated  int             `json:"alertsCreated"`
	Duplicates     int             `json:"duplicates"`
	Dropped        int             `json:"dropped"`
	SnapshotsWritten int           `json:"snapshotsWritten,omitempty"`
	Errors         []DetectorError `json:"errors,omitempty"`
	BudgetExceeded bool            `json:"budgetExceeded,omitempty"`
}
