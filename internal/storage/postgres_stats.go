package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/vector-bandit/internal/models"
)

// PostgresStatRepo implements StatRepo using PostgreSQL. The table
// keeps one row per (item_id, date); Upsert enforces that by deleting
// and re-inserting inside one transaction.
type PostgresStatRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresStatRepo creates a Postgres-backed stat repository.
func NewPostgresStatRepo(pool *pgxpool.Pool) *PostgresStatRepo {
	return &PostgresStatRepo{pool: pool}
}

// FetchAll returns one row per item with counters summed across all
// dates. item_id alone is the grouping key; when an item's group
// membership differs across date rows the smallest group id wins, the
// same resolution the in-memory repo applies.
func (r *PostgresStatRepo) FetchAll(ctx context.Context) ([]models.ItemStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT item_id, MIN(item_group_id),
			   SUM(num_impressions), SUM(num_engagements), SUM(num_clickthroughs),
			   SUM(num_success), SUM(num_trials), SUM(daily_spend), SUM(revenue)
		FROM bayesian_bandit
		GROUP BY item_id
		ORDER BY item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ItemStat
	for rows.Next() {
		var s models.ItemStat
		if err := rows.Scan(
			&s.ItemID, &s.ItemGroupID,
			&s.NumImpressions, &s.NumEngagements, &s.NumClickthroughs,
			&s.NumSuccess, &s.NumTrials, &s.DailySpend, &s.Revenue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// FetchFiltered returns stored rows matching any listed item or group
// id, ordered by item_id. Empty lists match all rows.
func (r *PostgresStatRepo) FetchFiltered(ctx context.Context, itemIDs, groupIDs []string) ([]models.ItemStat, error) {
	query := `
		SELECT id, item_id, item_group_id, date,
			   num_impressions, num_engagements, num_clickthroughs,
			   num_success, num_trials, daily_spend, revenue
		FROM bayesian_bandit
	`
	var args []any
	if len(itemIDs) > 0 || len(groupIDs) > 0 {
		query += ` WHERE item_id = ANY($1) OR item_group_id = ANY($2)`
		args = append(args, itemIDs, groupIDs)
	}
	query += ` ORDER BY item_id, date`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to dump item stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ItemStat
	for rows.Next() {
		var s models.ItemStat
		var date time.Time
		if err := rows.Scan(
			&s.ID, &s.ItemID, &s.ItemGroupID, &date,
			&s.NumImpressions, &s.NumEngagements, &s.NumClickthroughs,
			&s.NumSuccess, &s.NumTrials, &s.DailySpend, &s.Revenue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item stats: %w", err)
		}
		s.Date = date.Format(models.DateLayout)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Upsert replaces the row for (item_id, date). Delete and insert run
// in one transaction so readers never observe the key missing.
func (r *PostgresStatRepo) Upsert(ctx context.Context, stat *models.ItemStat) error {
	date, err := time.Parse(models.DateLayout, stat.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", stat.Date, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM bayesian_bandit WHERE item_id = $1 AND date = $2
	`, stat.ItemID, date)
	if err != nil {
		return fmt.Errorf("failed to delete existing row: %w", err)
	}

	id := stat.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bayesian_bandit (
			id, item_id, item_group_id, date,
			num_impressions, num_engagements, num_clickthroughs,
			num_success, num_trials, daily_spend, revenue
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, stat.ItemID, stat.ItemGroupID, date,
		stat.NumImpressions, stat.NumEngagements, stat.NumClickthroughs,
		stat.NumSuccess, stat.NumTrials, stat.DailySpend, stat.Revenue,
	)
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}

	return tx.Commit(ctx)
}
