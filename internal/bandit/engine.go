package bandit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/radiusdt/vector-bandit/internal/metrics"
	"github.com/radiusdt/vector-bandit/internal/models"
	"github.com/radiusdt/vector-bandit/internal/storage"
	"go.uber.org/zap"
)

// Engine owns the update and draw operations of the bandit. It is
// stateless between calls: every draw without a caller-supplied
// snapshot reloads all statistics from the repository and recomputes
// KPI weights, so no stale view can leak across requests.
type Engine struct {
	repo        storage.StatRepo
	spend       storage.SpendTracker
	sampler     *Sampler
	sampleCount int
	weights     models.KPIWeight
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// Config holds engine tunables.
type Config struct {
	// SampleCount is the default number of Beta draws averaged per
	// item. Values below 1 fall back to DefaultSampleCount.
	SampleCount int
	// DefaultWeights is the fallback KPI mapping for item groups
	// without configured weights. Nil means {num_engagements: 1}.
	DefaultWeights models.KPIWeight
}

// NewEngine constructs an engine over the given repository. spend may
// be nil when spend tracking is not configured; metrics may be nil in
// tests.
func NewEngine(repo storage.StatRepo, spend storage.SpendTracker, sampler *Sampler, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Engine {
	if sampler == nil {
		sampler = NewSampler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sampleCount := cfg.SampleCount
	if sampleCount < 1 {
		sampleCount = DefaultSampleCount
	}
	weights := cfg.DefaultWeights
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Engine{
		repo:        repo,
		spend:       spend,
		sampler:     sampler,
		sampleCount: sampleCount,
		weights:     weights,
		logger:      logger,
		metrics:     m,
	}
}

// Update validates the record and replaces its (item_id, date) row in
// the repository. A *models.ValidationError means the repository was
// not touched; any other error is a repository failure.
func (e *Engine) Update(ctx context.Context, rec models.IngestRecord) error {
	rec.Normalize(time.Now())
	if err := rec.Validate(); err != nil {
		if e.metrics != nil {
			e.metrics.UpdateErrors.Inc()
		}
		return err
	}

	if err := e.repo.Upsert(ctx, rec.ToStat()); err != nil {
		if e.metrics != nil {
			e.metrics.UpdateErrors.Inc()
		}
		return fmt.Errorf("upsert item stat: %w", err)
	}

	if e.spend != nil && rec.DailySpend > 0 {
		if err := e.spend.RecordSpend(ctx, rec.ItemGroupID, rec.Date, rec.DailySpend); err != nil {
			// Spend counters are advisory; the stat row is already
			// committed.
			e.logger.Warn("failed to record spend",
				zap.String("item_group_id", rec.ItemGroupID),
				zap.Error(err),
			)
		} else if e.metrics != nil {
			e.metrics.SpendRecorded.Add(rec.DailySpend)
		}
	}

	if e.metrics != nil {
		e.metrics.Updates.Inc()
	}
	e.logger.Debug("item stat updated",
		zap.String("item_id", rec.ItemID),
		zap.String("item_group_id", rec.ItemGroupID),
		zap.String("date", rec.Date),
	)
	return nil
}

// UpdateBatch processes records sequentially and stops at the first
// failure. It returns how many records were committed; there is no
// atomic batch guarantee, so a mid-batch failure leaves earlier
// records durable.
func (e *Engine) UpdateBatch(ctx context.Context, recs []models.IngestRecord) (int, error) {
	for i, rec := range recs {
		if err := e.Update(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

// DrawOptions controls a single draw.
type DrawOptions struct {
	// Items restricts the ranking to these item ids. Nil means all.
	Items []string
	// Snapshot, when non-nil, is used instead of reloading from the
	// repository. Callers needing a consistent view across calls
	// capture one snapshot and pass it explicitly.
	Snapshot []models.ItemStat
	// SampleCount overrides the engine default when positive.
	SampleCount int
}

// Draw ranks items by sampling each item's Beta posterior. Items whose
// weighted success and raw engagements are both zero carry no signal
// and are excluded. Results are sorted by probability descending, ties
// broken by item id ascending. An empty snapshot yields an empty
// result, not an error.
func (e *Engine) Draw(ctx context.Context, opts DrawOptions) ([]models.RankedItem, error) {
	start := time.Now()

	snapshot := opts.Snapshot
	if snapshot == nil {
		var err error
		snapshot, err = e.repo.FetchAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load item stats: %w", err)
		}
	}

	if e.metrics != nil {
		e.metrics.SnapshotRows.Set(float64(len(snapshot)))
	}

	// Weights come from the full snapshot, not the filtered one, so
	// weighting reflects the whole campaign's composition.
	weights := ResolveWeights(snapshot, e.weights)

	sampleCount := opts.SampleCount
	if sampleCount < 1 {
		sampleCount = e.sampleCount
	}

	var skipped int
	ranked := make([]models.RankedItem, 0, len(snapshot))
	for i := range snapshot {
		row := &snapshot[i]
		w := weights[row.ItemGroupID]

		var success float64
		for metric, weight := range w {
			success += row.MetricValue(metric) * weight
		}
		if success == 0 {
			success = float64(row.NumEngagements)
			if success == 0 {
				skipped++
				continue
			}
		}

		trials := float64(row.NumImpressions) * w.TotalWeight()

		ranked = append(ranked, models.RankedItem{
			Item:        row.ItemID,
			Probability: e.sampler.Draw(success, trials, sampleCount),
		})
	}

	if opts.Items != nil {
		allowed := make(map[string]struct{}, len(opts.Items))
		for _, id := range opts.Items {
			allowed[id] = struct{}{}
		}
		filtered := ranked[:0]
		for _, r := range ranked {
			if _, ok := allowed[r.Item]; ok {
				filtered = append(filtered, r)
			}
		}
		ranked = filtered
	}

	sortRanked(ranked)

	if e.metrics != nil {
		e.metrics.Draws.Inc()
		e.metrics.DrawLatency.Observe(time.Since(start).Seconds())
		e.metrics.ItemsRanked.Add(float64(len(ranked)))
		e.metrics.ItemsSkipped.Add(float64(skipped))
	}
	e.logger.Debug("draw completed",
		zap.Int("snapshot_rows", len(snapshot)),
		zap.Int("ranked", len(ranked)),
		zap.Int("skipped", skipped),
	)
	return ranked, nil
}

// DrawBest returns the top-ranked item, or ok=false when no item
// carries signal.
func (e *Engine) DrawBest(ctx context.Context) (models.RankedItem, bool, error) {
	ranked, err := e.Draw(ctx, DrawOptions{})
	if err != nil {
		return models.RankedItem{}, false, err
	}
	if len(ranked) == 0 {
		return models.RankedItem{}, false, nil
	}
	return ranked[0], true, nil
}

// DailySpend returns the recorded spend for an item group on a date,
// 0 when no tracker is configured.
func (e *Engine) DailySpend(ctx context.Context, groupID, date string) (float64, error) {
	if e.spend == nil {
		return 0, nil
	}
	spend, err := e.spend.DailySpend(ctx, groupID, date)
	if err != nil {
		return 0, fmt.Errorf("read spend: %w", err)
	}
	return spend, nil
}

// Dump returns stored rows matching any id in either list, empty lists
// matching everything, ordered by item id.
func (e *Engine) Dump(ctx context.Context, itemIDs, groupIDs []string) ([]models.ItemStat, error) {
	stats, err := e.repo.FetchFiltered(ctx, itemIDs, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("dump item stats: %w", err)
	}
	return stats, nil
}

// sortRanked orders by probability descending with item id ascending
// as the deterministic tie-break.
func sortRanked(ranked []models.RankedItem) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Probability != ranked[j].Probability {
			return ranked[i].Probability > ranked[j].Probability
		}
		return ranked[i].Item < ranked[j].Item
	})
}
