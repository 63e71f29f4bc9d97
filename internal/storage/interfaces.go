package storage

import (
	"context"
	"time"

	"github.com/radiusdt/vector-bandit/internal/models"
)

// =============================================
// STAT REPOSITORY
// =============================================

// StatRepo defines operations for per-item aggregate statistics.
// Errors from implementations are propagated to callers untouched;
// retry policy, if any, belongs to the adapter.
type StatRepo interface {
	// FetchAll returns one row per item with counters summed across
	// all dates. This is the snapshot the decision engine draws from.
	FetchAll(ctx context.Context) ([]models.ItemStat, error)

	// FetchFiltered returns stored rows matching any id in either
	// list (empty lists match everything), ordered by item_id.
	FetchFiltered(ctx context.Context, itemIDs, groupIDs []string) ([]models.ItemStat, error)

	// Upsert replaces the row for (item_id, date). An existing row
	// with the same key is removed, never incremented.
	Upsert(ctx context.Context, stat *models.ItemStat) error
}

// =============================================
// EVENT STORE
// =============================================

// EventStore defines operations for raw tracking events, the input of
// the count aggregation.
type EventStore interface {
	SaveEvents(ctx context.Context, events []models.TrackingEvent) error
	ListEvents(ctx context.Context, since time.Time) ([]models.TrackingEvent, error)
}

// =============================================
// SPEND TRACKER
// =============================================

// SpendTracker keeps running daily spend per item group, fed from
// update records that carry daily_spend.
type SpendTracker interface {
	RecordSpend(ctx context.Context, groupID, date string, amount float64) error
	DailySpend(ctx context.Context, groupID, date string) (float64, error)
}
