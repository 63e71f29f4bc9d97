package models

import "time"

// Tracking event types as they appear in raw tracking logs.
const (
	EventTypeImpression   = "impression"
	EventTypeFirstDropped = "first_dropped"
	EventTypeClickThrough = "click-through-event"
)

// TrackingEvent is a single raw tracking record. Events are grouped by
// line item and de-duplicated per auction when aggregating.
type TrackingEvent struct {
	Type       string    `json:"type"`
	LineItemID string    `json:"line_item_id"`
	CampaignID string    `json:"campaign_id"`
	AuctionID  string    `json:"auction_id"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// ItemCount is the aggregate produced from raw tracking events for one
// line item. Field names mirror the ingestion schema so counts can be
// submitted as updates directly.
type ItemCount struct {
	ItemID           string `json:"item_id"`
	ItemGroupID      string `json:"item_group_id"`
	NumSuccess       int64  `json:"num_success"`
	NumTrials        int64  `json:"num_trials"`
	NumClickthroughs int64  `json:"num_clickthroughs"`
	NumEngagements   int64  `json:"num_engagements"`
	NumImpressions   int64  `json:"num_impressions"`
}
