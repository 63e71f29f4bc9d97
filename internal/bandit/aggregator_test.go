package bandit

import (
	"testing"

	"github.com/radiusdt/vector-bandit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(typ, item, campaign, auction string) models.TrackingEvent {
	return models.TrackingEvent{
		Type:       typ,
		LineItemID: item,
		CampaignID: campaign,
		AuctionID:  auction,
	}
}

func TestCountEventsDedupesByAuction(t *testing.T) {
	events := []models.TrackingEvent{
		ev("impression", "li1", "c1", "a1"),
		ev("impression", "li1", "c1", "a1"), // duplicate delivery
		ev("impression", "li1", "c1", "a2"),
		ev("first_dropped", "li1", "c1", "a1"),
	}

	counts := CountEvents(events, AggregateOptions{})

	require.Len(t, counts, 1)
	assert.Equal(t, int64(2), counts[0].NumImpressions)
	assert.Equal(t, int64(2), counts[0].NumTrials)
	assert.Equal(t, int64(1), counts[0].NumEngagements)
	assert.Equal(t, int64(1), counts[0].NumSuccess)
	assert.Equal(t, int64(0), counts[0].NumClickthroughs)
}

func TestCountEventsClickToggle(t *testing.T) {
	events := []models.TrackingEvent{
		ev("impression", "li1", "c1", "a1"),
		ev("first_dropped", "li1", "c1", "a1"),
		ev("click-through-event", "li1", "c1", "a1"),
		ev("click-through-event", "li1", "c1", "a2"),
	}

	without := CountEvents(events, AggregateOptions{})
	require.Len(t, without, 1)
	assert.Equal(t, int64(0), without[0].NumClickthroughs)
	assert.Equal(t, int64(1), without[0].NumSuccess)

	with := CountEvents(events, AggregateOptions{CountClicks: true})
	require.Len(t, with, 1)
	assert.Equal(t, int64(2), with[0].NumClickthroughs)
	// num_success = engagements + clickthroughs
	assert.Equal(t, int64(3), with[0].NumSuccess)
}

func TestCountEventsRecordsFirstCampaign(t *testing.T) {
	events := []models.TrackingEvent{
		ev("impression", "li1", "c1", "a1"),
		ev("impression", "li1", "c2", "a2"),
	}

	counts := CountEvents(events, AggregateOptions{})

	require.Len(t, counts, 1)
	assert.Equal(t, "c1", counts[0].ItemGroupID)
}

func TestCountEventsGroupsAndSorts(t *testing.T) {
	events := []models.TrackingEvent{
		ev("impression", "li2", "c1", "a1"),
		ev("impression", "li1", "c1", "a1"),
		ev("impression", "", "c1", "a2"), // no line item, dropped
	}

	counts := CountEvents(events, AggregateOptions{})

	require.Len(t, counts, 2)
	assert.Equal(t, "li1", counts[0].ItemID)
	assert.Equal(t, "li2", counts[1].ItemID)
}

func TestCountEventsDropsItemsWithoutTrials(t *testing.T) {
	events := []models.TrackingEvent{
		ev("impression", "li1", "c1", "a1"),
		// li2 only ever converted; with no trial events it has no
		// denominator and must not appear at all.
		ev("first_dropped", "li2", "c1", "a2"),
	}

	counts := CountEvents(events, AggregateOptions{})

	require.Len(t, counts, 1)
	assert.Equal(t, "li1", counts[0].ItemID)
}

func TestCountEventsCustomTypes(t *testing.T) {
	events := []models.TrackingEvent{
		ev("render", "li1", "c1", "a1"),
		ev("render", "li1", "c1", "a2"),
		ev("install", "li1", "c1", "a1"),
	}

	counts := CountEvents(events, AggregateOptions{TotalType: "render", SuccessType: "install"})

	require.Len(t, counts, 1)
	assert.Equal(t, int64(2), counts[0].NumImpressions)
	assert.Equal(t, int64(1), counts[0].NumEngagements)
}
