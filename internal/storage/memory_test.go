package storage

import (
	"context"
	"testing"
	"time"

	"github.com/radiusdt/vector-bandit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatRepoUpsertReplaces(t *testing.T) {
	repo := NewInMemoryStatRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{
		ItemID: "X", ItemGroupID: "G", Date: "2024-01-01", NumImpressions: 10,
	}))
	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{
		ItemID: "X", ItemGroupID: "G", Date: "2024-01-01", NumImpressions: 99,
	}))

	rows, err := repo.FetchFiltered(ctx, []string{"X"}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(99), rows[0].NumImpressions)
	assert.NotEmpty(t, rows[0].ID)
}

func TestStatRepoFetchAllAggregatesAcrossDates(t *testing.T) {
	repo := NewInMemoryStatRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{
		ItemID: "X", ItemGroupID: "G", Date: "2024-01-01",
		NumImpressions: 10, NumEngagements: 2, DailySpend: 1.5,
	}))
	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{
		ItemID: "X", ItemGroupID: "G", Date: "2024-01-02",
		NumImpressions: 30, NumEngagements: 4, DailySpend: 2.5,
	}))
	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{
		ItemID: "Y", ItemGroupID: "G", Date: "2024-01-01",
		NumImpressions: 7,
	}))

	rows, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Sorted by item_id; X first.
	assert.Equal(t, "X", rows[0].ItemID)
	assert.Equal(t, int64(40), rows[0].NumImpressions)
	assert.Equal(t, int64(6), rows[0].NumEngagements)
	assert.InDelta(t, 4.0, rows[0].DailySpend, 1e-9)
	assert.Equal(t, "Y", rows[1].ItemID)
}

func TestStatRepoFetchAllOneRowPerItem(t *testing.T) {
	repo := NewInMemoryStatRepo()
	ctx := context.Background()

	// Same item filed under different groups on different dates must
	// still collapse into a single snapshot row; the smallest group id
	// wins.
	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{
		ItemID: "X", ItemGroupID: "g2", Date: "2024-01-01", NumImpressions: 10,
	}))
	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{
		ItemID: "X", ItemGroupID: "g1", Date: "2024-01-02", NumImpressions: 30,
	}))

	rows, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "X", rows[0].ItemID)
	assert.Equal(t, "g1", rows[0].ItemGroupID)
	assert.Equal(t, int64(40), rows[0].NumImpressions)
}

func TestStatRepoFetchFilteredUnion(t *testing.T) {
	repo := NewInMemoryStatRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{ItemID: "a", ItemGroupID: "g1", Date: "2024-01-01"}))
	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{ItemID: "b", ItemGroupID: "g2", Date: "2024-01-01"}))
	require.NoError(t, repo.Upsert(ctx, &models.ItemStat{ItemID: "c", ItemGroupID: "g3", Date: "2024-01-01"}))

	// Union of item filter and group filter.
	rows, err := repo.FetchFiltered(ctx, []string{"a"}, []string{"g2"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ItemID)
	assert.Equal(t, "b", rows[1].ItemID)

	// Empty filters return everything, ordered by item_id.
	all, err := repo.FetchFiltered(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ItemID)
	assert.Equal(t, "c", all[2].ItemID)
}

func TestSpendTrackerAccumulates(t *testing.T) {
	tracker := NewInMemorySpendTracker()
	ctx := context.Background()

	require.NoError(t, tracker.RecordSpend(ctx, "g1", "2024-01-01", 1.5))
	require.NoError(t, tracker.RecordSpend(ctx, "g1", "2024-01-01", 2.5))
	require.NoError(t, tracker.RecordSpend(ctx, "g1", "2024-01-02", 7))

	spend, err := tracker.DailySpend(ctx, "g1", "2024-01-01")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, spend, 1e-9)

	// Unknown keys read as zero.
	spend, err = tracker.DailySpend(ctx, "g2", "2024-01-01")
	require.NoError(t, err)
	assert.Zero(t, spend)
}

func TestEventStoreRoundTrip(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	events := []models.TrackingEvent{
		{Type: "impression", LineItemID: "li1", CampaignID: "c1", AuctionID: "a1"},
		{Type: "first_dropped", LineItemID: "li1", CampaignID: "c1", AuctionID: "a1"},
	}
	require.NoError(t, store.SaveEvents(ctx, events))

	got, err := store.ListEvents(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
