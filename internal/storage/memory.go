package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/vector-bandit/internal/models"
)

// In-memory implementations, used for testing and when no database is
// configured.

// InMemoryStatRepo stores item statistics in a map keyed by
// (item_id, date).
type InMemoryStatRepo struct {
	mu   sync.RWMutex
	rows map[string]*models.ItemStat
}

// NewInMemoryStatRepo creates a new empty in-memory stat repo.
func NewInMemoryStatRepo() *InMemoryStatRepo {
	return &InMemoryStatRepo{
		rows: make(map[string]*models.ItemStat),
	}
}

func statKey(itemID, date string) string {
	return itemID + "|" + date
}

// FetchAll returns one aggregated row per item, counters summed across
// dates.
func (r *InMemoryStatRepo) FetchAll(ctx context.Context) ([]models.ItemStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg := make(map[string]*models.ItemStat)
	for _, row := range r.rows {
		a, ok := agg[row.ItemID]
		if !ok {
			a = &models.ItemStat{ItemID: row.ItemID, ItemGroupID: row.ItemGroupID}
			agg[row.ItemID] = a
		} else if row.ItemGroupID < a.ItemGroupID {
			// Smallest group id wins when rows disagree across dates,
			// matching the Postgres MIN(item_group_id) resolution.
			a.ItemGroupID = row.ItemGroupID
		}
		a.NumImpressions += row.NumImpressions
		a.NumEngagements += row.NumEngagements
		a.NumClickthroughs += row.NumClickthroughs
		a.NumSuccess += row.NumSuccess
		a.NumTrials += row.NumTrials
		a.DailySpend += row.DailySpend
		a.Revenue += row.Revenue
	}

	res := make([]models.ItemStat, 0, len(agg))
	for _, a := range agg {
		res = append(res, *a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ItemID < res[j].ItemID })
	return res, nil
}

// FetchFiltered returns stored rows matching any listed item or group
// id, ordered by item_id. Empty lists match all rows.
func (r *InMemoryStatRepo) FetchFiltered(ctx context.Context, itemIDs, groupIDs []string) ([]models.ItemStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	itemSet := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		itemSet[id] = struct{}{}
	}
	groupSet := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		groupSet[id] = struct{}{}
	}

	var res []models.ItemStat
	for _, row := range r.rows {
		if len(itemSet) > 0 || len(groupSet) > 0 {
			_, itemOK := itemSet[row.ItemID]
			_, groupOK := groupSet[row.ItemGroupID]
			if !itemOK && !groupOK {
				continue
			}
		}
		res = append(res, *row)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].ItemID != res[j].ItemID {
			return res[i].ItemID < res[j].ItemID
		}
		return res[i].Date < res[j].Date
	})
	return res, nil
}

// Upsert replaces the row for (item_id, date).
func (r *InMemoryStatRepo) Upsert(ctx context.Context, stat *models.ItemStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *stat
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	r.rows[statKey(cp.ItemID, cp.Date)] = &cp
	return nil
}

// InMemoryEventStore stores raw tracking events in memory.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []models.TrackingEvent
}

// NewInMemoryEventStore creates a new in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

func (s *InMemoryEventStore) SaveEvents(ctx context.Context, events []models.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, since time.Time) ([]models.TrackingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.TrackingEvent, 0, len(s.events))
	for _, ev := range s.events {
		if since.IsZero() || !ev.Timestamp.Before(since) {
			res = append(res, ev)
		}
	}
	return res, nil
}

// InMemorySpendTracker keeps daily spend counters in a map. Used for
// testing and when Redis is not configured; unlike the Redis tracker
// the counters never expire.
type InMemorySpendTracker struct {
	mu    sync.RWMutex
	spend map[string]float64
}

// NewInMemorySpendTracker creates a new empty in-memory spend tracker.
func NewInMemorySpendTracker() *InMemorySpendTracker {
	return &InMemorySpendTracker{spend: make(map[string]float64)}
}

func (t *InMemorySpendTracker) RecordSpend(ctx context.Context, groupID, date string, amount float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spend[groupID+"|"+date] += amount
	return nil
}

func (t *InMemorySpendTracker) DailySpend(ctx context.Context, groupID, date string) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spend[groupID+"|"+date], nil
}
