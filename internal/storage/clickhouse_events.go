package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/vector-bandit/internal/models"
)

// ClickHouseEventStore persists raw tracking events in ClickHouse.
// Events are append-only; aggregation happens in the application so
// the distinct-auction semantics match the in-memory path exactly.
type ClickHouseEventStore struct {
	conn driver.Conn
}

// NewClickHouseEventStore creates a ClickHouse-backed event store.
func NewClickHouseEventStore(conn driver.Conn) *ClickHouseEventStore {
	return &ClickHouseEventStore{conn: conn}
}

// SaveEvents batch-inserts tracking events.
func (s *ClickHouseEventStore) SaveEvents(ctx context.Context, events []models.TrackingEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tracking_events (type, line_item_id, campaign_id, auction_id, timestamp)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event batch: %w", err)
	}

	for _, ev := range events {
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if err := batch.Append(ev.Type, ev.LineItemID, ev.CampaignID, ev.AuctionID, ts); err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert events: %w", err)
	}
	return nil
}

// ListEvents returns events recorded at or after the given time. A
// zero time returns everything.
func (s *ClickHouseEventStore) ListEvents(ctx context.Context, since time.Time) ([]models.TrackingEvent, error) {
	query := `
		SELECT type, line_item_id, campaign_id, auction_id, timestamp
		FROM tracking_events
	`
	var args []any
	if !since.IsZero() {
		query += ` WHERE timestamp >= $1`
		args = append(args, since)
	}
	query += ` ORDER BY timestamp`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.TrackingEvent
	for rows.Next() {
		var ev models.TrackingEvent
		if err := rows.Scan(&ev.Type, &ev.LineItemID, &ev.CampaignID, &ev.AuctionID, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
