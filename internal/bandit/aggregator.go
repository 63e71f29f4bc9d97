package bandit

import (
	"sort"

	"github.com/radiusdt/vector-bandit/internal/models"
)

// AggregateOptions controls how raw tracking events are counted.
type AggregateOptions struct {
	// TotalType is the event type counted as a trial. Defaults to
	// "impression".
	TotalType string
	// SuccessType is the event type counted as an engagement.
	// Defaults to "first_dropped".
	SuccessType string
	// CountClicks also counts click-through events into
	// num_clickthroughs. When false, clickthroughs are 0.
	CountClicks bool
}

func (o *AggregateOptions) applyDefaults() {
	if o.TotalType == "" {
		o.TotalType = models.EventTypeImpression
	}
	if o.SuccessType == "" {
		o.SuccessType = models.EventTypeFirstDropped
	}
}

// CountEvents reduces raw tracking events to per-item counts. Events
// are grouped by line item; within a group, impressions and
// engagements count distinct auction ids of the matching type, so
// duplicate deliveries of the same event collapse. The first campaign
// id seen in a group becomes that item's group membership. Results are
// ordered by item id. Events without a line item id are dropped, as
// are items with no event of the trial type.
func CountEvents(events []models.TrackingEvent, opts AggregateOptions) []models.ItemCount {
	opts.applyDefaults()

	type itemGroup struct {
		campaignID string
		totals     map[string]struct{}
		successes  map[string]struct{}
		clicks     map[string]struct{}
	}

	groups := make(map[string]*itemGroup)
	for _, ev := range events {
		if ev.LineItemID == "" {
			continue
		}
		g, ok := groups[ev.LineItemID]
		if !ok {
			g = &itemGroup{
				campaignID: ev.CampaignID,
				totals:     make(map[string]struct{}),
				successes:  make(map[string]struct{}),
				clicks:     make(map[string]struct{}),
			}
			groups[ev.LineItemID] = g
		}

		switch ev.Type {
		case opts.TotalType:
			g.totals[ev.AuctionID] = struct{}{}
		case opts.SuccessType:
			g.successes[ev.AuctionID] = struct{}{}
		case models.EventTypeClickThrough:
			if opts.CountClicks {
				g.clicks[ev.AuctionID] = struct{}{}
			}
		}
	}

	counts := make([]models.ItemCount, 0, len(groups))
	for itemID, g := range groups {
		// An item never seen in a trial event has no denominator and
		// is omitted.
		if len(g.totals) == 0 {
			continue
		}
		nimp := int64(len(g.totals))
		neng := int64(len(g.successes))
		nclick := int64(len(g.clicks))
		counts = append(counts, models.ItemCount{
			ItemID:           itemID,
			ItemGroupID:      g.campaignID,
			NumSuccess:       neng + nclick,
			NumTrials:        nimp,
			NumClickthroughs: nclick,
			NumEngagements:   neng,
			NumImpressions:   nimp,
		})
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].ItemID < counts[j].ItemID })
	return counts
}
