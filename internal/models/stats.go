package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for aggregation buckets.
const DateLayout = "2006-01-02"

// Metric names accepted in KPI weight mappings and ingestion payloads.
const (
	MetricImpressions   = "num_impressions"
	MetricEngagements   = "num_engagements"
	MetricClickthroughs = "num_clickthroughs"
	MetricSuccess       = "num_success"
	MetricTrials        = "num_trials"
	MetricDailySpend    = "daily_spend"
	MetricRevenue       = "revenue"
)

// ItemStat is one aggregate row per (item_id, date). An update for an
// existing key replaces the row; callers send cumulative-for-the-day
// values, not deltas.
type ItemStat struct {
	ID                string  `json:"id,omitempty"`
	ItemID            string  `json:"item_id"`
	ItemGroupID       string  `json:"item_group_id"`
	Date              string  `json:"date,omitempty"`
	NumImpressions    int64   `json:"num_impressions"`
	NumEngagements    int64   `json:"num_engagements"`
	NumClickthroughs  int64   `json:"num_clickthroughs"`
	NumSuccess        int64   `json:"num_success"`
	NumTrials         int64   `json:"num_trials"`
	DailySpend        float64 `json:"daily_spend"`
	Revenue           float64 `json:"revenue"`
}

// MetricValue returns the named counter as a float64, or 0 for an
// unknown metric name.
func (s *ItemStat) MetricValue(name string) float64 {
	switch name {
	case MetricImpressions:
		return float64(s.NumImpressions)
	case MetricEngagements:
		return float64(s.NumEngagements)
	case MetricClickthroughs:
		return float64(s.NumClickthroughs)
	case MetricSuccess:
		return float64(s.NumSuccess)
	case MetricTrials:
		return float64(s.NumTrials)
	case MetricDailySpend:
		return s.DailySpend
	case MetricRevenue:
		return s.Revenue
	default:
		return 0
	}
}

// KPIWeight maps metric names to the weight each contributes when
// combining raw counters into a single success scalar.
type KPIWeight map[string]float64

// TotalWeight returns the sum of all weights in the mapping.
func (w KPIWeight) TotalWeight() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Clone returns an independent copy of the weight mapping.
func (w KPIWeight) Clone() KPIWeight {
	cp := make(KPIWeight, len(w))
	for k, v := range w {
		cp[k] = v
	}
	return cp
}

// ValidationError reports a missing required field on an ingestion
// record. It is fatal for that record but must not affect other
// records in the same batch.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// IngestRecord is the inbound update payload. item_id, date and
// item_group_id are required; date defaults to today when absent and
// all counters default to 0.
type IngestRecord struct {
	ItemID           string  `json:"item_id"`
	Date             string  `json:"date,omitempty"`
	ItemGroupID      string  `json:"item_group_id"`
	NumImpressions   int64   `json:"num_impressions"`
	NumEngagements   int64   `json:"num_engagements"`
	NumClickthroughs int64   `json:"num_clickthroughs"`
	NumSuccess       int64   `json:"num_success"`
	NumTrials        int64   `json:"num_trials"`
	DailySpend       float64 `json:"daily_spend"`
	Revenue          float64 `json:"revenue"`
}

// Normalize fills in defaulted fields. Date defaults to today (UTC).
func (r *IngestRecord) Normalize(now time.Time) {
	if r.Date == "" {
		r.Date = now.UTC().Format(DateLayout)
	}
}

// Validate checks the hard preconditions for an update.
func (r *IngestRecord) Validate() error {
	if r.ItemID == "" {
		return &ValidationError{Field: "item_id"}
	}
	if r.Date == "" {
		return &ValidationError{Field: "date"}
	}
	if r.ItemGroupID == "" {
		return &ValidationError{Field: "item_group_id"}
	}
	return nil
}

// ToStat converts a normalized, validated record into a storable row.
func (r *IngestRecord) ToStat() *ItemStat {
	return &ItemStat{
		ItemID:           r.ItemID,
		ItemGroupID:      r.ItemGroupID,
		Date:             r.Date,
		NumImpressions:   r.NumImpressions,
		NumEngagements:   r.NumEngagements,
		NumClickthroughs: r.NumClickthroughs,
		NumSuccess:       r.NumSuccess,
		NumTrials:        r.NumTrials,
		DailySpend:       r.DailySpend,
		Revenue:          r.Revenue,
	}
}

// RankedItem is one entry of a draw result.
type RankedItem struct {
	Item        string  `json:"item"`
	Probability float64 `json:"probability"`
}
