package detector

import (
	"time"

	"github.com/opsradar-systems/opsradar/internal/activity"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

const defaultClusterMinUncontacted = 5

// ProspectCluster flags regions accumulating prospects that nobody has ever
// contacted. One finding per region once the uncontacted count reaches the
// threshold. Like never-visited, it only considers prospects created inside
// the snapshot window, since a bounded window cannot prove "never contacted"
// for older rows.
type ProspectCluster struct{}

func (ProspectCluster) Name() string { return "prospect_cluster" }

func (ProspectCluster) Kinds() []activity.Kind { return []activity.Kind{activity.KindContact} }

func (ProspectCluster) Detect(snap *activity.Snapshot, cfg types.DetectorsConfig) ([]types.RawFinding, error) {
	if err := requireComplete(snap, activity.KindContact); err != nil {
		return nil, err
	}

	minUncontacted := cfg.ProspectCluster.MinUncontacted
	if minUncontacted <= 0 {
		minUncontacted = defaultClusterMinUncontacted
	}

	contacted := countByEntity(snap, activity.KindContact, time.Time{})

	var uncontacted []activity.Entity
	for _, e := range snap.Entities {
		if e.State != types.StateProspect {
			continue
		}
		if e.CreatedAt.Before(snap.Since) {
			continue
		}
		if contacted[e.ID] > 0 {
			continue
		}
		uncontacted = append(uncontacted, e)
	}

	groups := groupAndThreshold(uncontacted, func(e activity.Entity) string { return e.Region }, minUncontacted)

	var findings []types.RawFinding
	for region, prospects := range groups {
		findings = append(findings, types.RawFinding{
			EntityType: types.EntityRegion,
			Region:     region,
			Kind:       types.RiskProspectCluster,
			Evidence: types.ProspectClusterEvidence{
				Region:           region,
				UncontactedCount: len(prospects),
			},
		})
	}
	return findings, nil
}
