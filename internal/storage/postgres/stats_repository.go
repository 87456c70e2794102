package postgres

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	pool   *pgxpool.Pool
	events *EventRepository
}

func (r *StatsRepository) CountAccounts(ctx context.Context) (int, error) {
	return r.count(ctx, "users")
}

func (r *StatsRepository) CountEvents(ctx context.Context) (int, error) {
	return r.count(ctx, "events")
}

func (r *StatsRepository) CountRegistrations(ctx context.Context) (int, error) {
	return r.count(ctx, "registrations")
}

// count is only called with the table names above.
func (r *StatsRepository) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (r *StatsRepository) EventsByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, COUNT(*) FROM events GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("group events: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out[category] = n
	}
	return out, rows.Err()
}

func (r *StatsRepository) RecentEvents(ctx context.Context, limit int) ([]events.Event, error) {
	return r.events.recent(ctx, limit)
}

func (r *StatsRepository) RecentAccounts(ctx context.Context, limit int) ([]accounts.Account, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+accountColumns+`
  FROM users
 ORDER BY created_at DESC, id DESC
 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent users: %w", err)
	}
	return collectAccounts(rows)
}
