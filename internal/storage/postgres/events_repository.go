package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// eventSelect is the joined read view: creator handle and live count.
const eventSelect = `
SELECT e.id, e.title, e.description, e.category,
       to_char(e.event_date, 'YYYY-MM-DD'), to_char(e.event_time, 'HH24:MI'),
       e.location, e.price::float8, e.expected_attendees, e.created_by,
       COALESCE(u.username, ''), COALESCE(u.full_name, ''),
       (SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id),
       e.created_at, e.updated_at
  FROM events e
  LEFT JOIN users u ON u.id = e.created_by`

const eventFilter = `
 WHERE ($1 = '' OR e.category = $1)
   AND ($2 = '' OR e.title ILIKE '%' || $2 || '%' ESCAPE '\' OR e.location ILIKE '%' || $2 || '%' ESCAPE '\')`

func (r *EventRepository) Create(ctx context.Context, ownerID int64, draft events.Draft) (int64, error) {
	var id int64
	err := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO events (title, description, category, event_date, event_time, location, price, expected_attendees, created_by)
VALUES ($1, $2, $3, $4::text::date, $5::text::time, $6, $7, $8, $9)
RETURNING id`,
		draft.Title, draft.Description, draft.Category, draft.Date, draft.Time,
		draft.Location, draft.Price, draft.ExpectedAttendees, ownerID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (events.Event, error) {
	event, err := scanEvent(pick(r.pool, r.tx).QueryRow(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("query event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Owner(ctx context.Context, id int64) (int64, error) {
	var owner int64
	err := pick(r.pool, r.tx).QueryRow(ctx, `SELECT created_by FROM events WHERE id = $1`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, events.ErrNotFound
		}
		return 0, fmt.Errorf("query event owner: %w", err)
	}
	return owner, nil
}

func (r *EventRepository) Update(ctx context.Context, id int64, draft events.Draft) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `
UPDATE events
   SET title = $2, description = $3, category = $4, event_date = $5::text::date,
       event_time = $6::text::time, location = $7, price = $8, expected_attendees = $9,
       updated_at = now()
 WHERE id = $1`,
		id, draft.Title, draft.Description, draft.Category, draft.Date, draft.Time,
		draft.Location, draft.Price, draft.ExpectedAttendees,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters) (events.ListResult, error) {
	q := pick(r.pool, r.tx)
	category := filters.CategoryFilter()
	search := events.EscapeLike(filters.Search)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM events e`+eventFilter, category, search).Scan(&total); err != nil {
		return events.ListResult{}, fmt.Errorf("count events: %w", err)
	}

	rows, err := q.Query(ctx, eventSelect+eventFilter+`
 ORDER BY e.event_date ASC, e.event_time ASC, e.id ASC
 LIMIT $3 OFFSET $4`, category, search, filters.Limit, filters.Offset())
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	items, err := collectEvents(rows)
	if err != nil {
		return events.ListResult{}, err
	}
	return events.ListResult{Events: items, Total: total}, nil
}

func (r *EventRepository) recent(ctx context.Context, limit int) ([]events.Event, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, eventSelect+`
 ORDER BY e.created_at DESC, e.id DESC
 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	return collectEvents(rows)
}

func scanEvent(row pgx.Row) (events.Event, error) {
	var e events.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category,
		&e.Date, &e.Time,
		&e.Location, &e.Price, &e.ExpectedAttendees, &e.CreatedBy,
		&e.CreatorUsername, &e.CreatorName,
		&e.RegisteredCount,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectEvents(rows pgx.Rows) ([]events.Event, error) {
	defer rows.Close()
	items := make([]events.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}
