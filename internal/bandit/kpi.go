package bandit

import "github.com/radiusdt/vector-bandit/internal/models"

// DefaultWeights returns the fallback KPI weight mapping applied to
// item groups with no configured weights.
func DefaultWeights() models.KPIWeight {
	return models.KPIWeight{models.MetricEngagements: 1}
}

// ResolveWeights derives the metric-weight mapping for every item
// group present in the snapshot. It is a pure function of the
// snapshot: weights are recomputed on every draw cycle, never cached.
// Groups without configured weights fall back to the default, so the
// mapping is total over the snapshot's groups.
func ResolveWeights(snapshot []models.ItemStat, fallback models.KPIWeight) map[string]models.KPIWeight {
	if len(fallback) == 0 {
		fallback = DefaultWeights()
	}

	weights := make(map[string]models.KPIWeight)
	for i := range snapshot {
		groupID := snapshot[i].ItemGroupID
		if _, ok := weights[groupID]; !ok {
			weights[groupID] = fallback.Clone()
		}
	}
	return weights
}
