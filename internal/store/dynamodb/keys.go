package dynamodb

import (
	"fmt"
	"time"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

// PK/SK prefix constants.
const (
	prefixInsight   = "INSIGHT#"
	prefixDedup     = "DEDUP#"
	prefixSnapScope = "SNAPSCOPE#"
	prefixSnap      = "SNAP#"
	prefixStatus    = "STATUS#"

	skInsight = "INSIGHT"
	skOpen    = "OPEN"
)

func insightPK(id string) string    { return prefixInsight + id }
func insightSK() string             { return skInsight }
func dedupPK(key string) string     { return prefixDedup + key }
func dedupSK() string               { return skOpen }
func statusPK(st types.InsightStatus) string { return prefixStatus + string(st) }

// insightGSI1SK orders insights score-descending when the GSI is scanned
// backwards. The score is zero-padded so lexicographic order matches numeric
// order; created-at and ID break ties deterministically.
func insightGSI1SK(score int, createdAt time.Time, id string) string {
	return fmt.Sprintf("%03d#%s#%s", score, createdAt.UTC().Format(time.RFC3339Nano), id)
}

func snapshotPK(scope types.Scope) string { return prefixSnapScope + scope.Key() }
func snapshotSK(date string) string       { return prefixSnap + date }
