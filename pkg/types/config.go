package types

import "time"

// ProjectConfig is the parsed opsradar.yaml.
type ProjectConfig struct {
	// Store selects the alert store backend: "postgres", "dynamodb" or "memory".
	Store string `yaml:"store"`

	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
	DynamoDB *DynamoDBConfig `yaml:"dynamodb,omitempty"`
	// Redis is optional; when set, scans acquire a distributed run lock so
	// concurrent replicas do not double-scan.
	Redis *RedisConfig `yaml:"redis,omitempty"`

	Server    ServerConfig    `yaml:"server,omitempty"`
	Scan      ScanConfig      `yaml:"scan,omitempty"`
	Detectors DetectorsConfig `yaml:"detectors,omitempty"`
	Snapshots SnapshotsConfig `yaml:"snapshots,omitempty"`
}

// PostgresConfig configures the Postgres alert store and the operational DB
// read by the activity feed and KPI source.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
	// ActivityDSN points at the host application's operational database when
	// it lives apart from the alert store. Empty means same database.
	ActivityDSN string `yaml:"activityDsn,omitempty"`
}

// DynamoDBConfig configures the DynamoDB alert store backend.
type DynamoDBConfig struct {
	TableName string `yaml:"tableName"`
	Region    string `yaml:"region,omitempty"`
	// Endpoint overrides the AWS endpoint, used for DynamoDB Local.
	Endpoint    string `yaml:"endpoint,omitempty"`
	CreateTable bool   `yaml:"createTable,omitempty"`
}

// RedisConfig configures the optional scan run lock.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
	// APIKey enables X-API-Key auth when non-empty.
	APIKey       string `yaml:"apiKey,omitempty"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes,omitempty"`
}

// ScanConfig bounds a single scan run.
type ScanConfig struct {
	// Budget is the maximum wall-clock time for one scan, e.g. "2m".
	Budget string `yaml:"budget,omitempty"`
	// Interval enables the periodic scan loop in serve mode, e.g. "15m".
	// Empty disables the loop.
	Interval string `yaml:"interval,omitempty"`
	// ActivityWindowDays is the lower time bound for activity fetches.
	ActivityWindowDays int `yaml:"activityWindowDays,omitempty"`
	// FetchLimit caps records per activity kind; hitting it marks the fetch
	// as truncated.
	FetchLimit int `yaml:"fetchLimit,omitempty"`
	// InsightTTLDays sets expires_at on created insights. Zero means the
	// default; negative disables expiry.
	InsightTTLDays int `yaml:"insightTtlDays,omitempty"`
}

// Scan defaults.
const (
	DefaultScanBudget         = 2 * time.Minute
	DefaultActivityWindowDays = 90
	DefaultFetchLimit         = 10000
	DefaultInsightTTLDays     = 30
)

// BudgetDuration returns the parsed scan budget, or the default.
func (c ScanConfig) BudgetDuration() time.Duration {
	if d, err := time.ParseDuration(c.Budget); err == nil && d > 0 {
		return d
	}
	return DefaultScanBudget
}

// IntervalDuration returns the parsed scan interval, or zero when the loop is
// disabled.
func (c ScanConfig) IntervalDuration() time.Duration {
	if d, err := time.ParseDuration(c.Interval); err == nil && d > 0 {
		return d
	}
	return 0
}

// WindowDays returns the activity window, or the default.
func (c ScanConfig) WindowDays() int {
	if c.ActivityWindowDays > 0 {
		return c.ActivityWindowDays
	}
	return DefaultActivityWindowDays
}

// Limit returns the per-kind fetch limit, or the default.
func (c ScanConfig) Limit() int {
	if c.FetchLimit > 0 {
		return c.FetchLimit
	}
	return DefaultFetchLimit
}

// InsightTTL returns the insight TTL, or zero when expiry is disabled.
func (c ScanConfig) InsightTTL() time.Duration {
	days := c.InsightTTLDays
	if days == 0 {
		days = DefaultInsightTTLDays
	}
	if days < 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// DetectorsConfig holds per-detector thresholds. Zero values fall back to the
// defaults documented on each field.
type DetectorsConfig struct {
	// Disabled lists detector names to skip.
	Disabled []string `yaml:"disabled,omitempty"`

	NeverVisited    NeverVisitedConfig    `yaml:"neverVisited,omitempty"`
	TerritoryGap    TerritoryGapConfig    `yaml:"territoryGap,omitempty"`
	OrderDrop       OrderDropConfig       `yaml:"orderFrequencyDrop,omitempty"`
	ProspectCluster ProspectClusterConfig `yaml:"prospectCluster,omitempty"`
	InactiveHub     InactiveHubConfig     `yaml:"inactiveHub,omitempty"`
}

// IsDisabled reports whether the named detector is switched off.
func (c DetectorsConfig) IsDisabled(name string) bool {
	for _, d := range c.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// NeverVisitedConfig tunes the never-visited detector.
type NeverVisitedConfig struct {
	MinDays int `yaml:"minDays,omitempty"` // default 7
}

// TerritoryGapConfig tunes the territory-gap detector.
type TerritoryGapConfig struct {
	WindowDays   int `yaml:"windowDays,omitempty"`   // default 14
	MinUncovered int `yaml:"minUncovered,omitempty"` // default 3
}

// OrderDropConfig tunes the order-frequency-drop detector.
type OrderDropConfig struct {
	MinPriorCount  int `yaml:"minPriorCount,omitempty"`  // default 3
	MinDropPercent int `yaml:"minDropPercent,omitempty"` // default 50
}

// ProspectClusterConfig tunes the prospect-cluster detector.
type ProspectClusterConfig struct {
	MinUncontacted int `yaml:"minUncontacted,omitempty"` // default 5
}

// InactiveHubConfig tunes the inactive-hub detector.
type InactiveHubConfig struct {
	InactiveDays int `yaml:"inactiveDays,omitempty"` // default 30
}

// SnapshotsConfig configures the KPI snapshot aggregator.
type SnapshotsConfig struct {
	// Enabled switches snapshot writes on scan runs. Defaults to true when
	// scopes are configured.
	Enabled *bool `yaml:"enabled,omitempty"`
	// Scopes lists the (brand, region) pairs to roll up. The zero scope is
	// always included as the global roll-up.
	Scopes []Scope `yaml:"scopes,omitempty"`
}

// SnapshotScopes returns the configured scopes with the global roll-up
// prepended.
func (c SnapshotsConfig) SnapshotScopes() []Scope {
	scopes := []Scope{{}}
	for _, s := range c.Scopes {
		if s == (Scope{}) {
			continue
		}
		scopes = append(scopes, s)
	}
	return scopes
}

// SnapshotsEnabled reports whether snapshot writes run during scans.
func (c SnapshotsConfig) SnapshotsEnabled() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return true
}
