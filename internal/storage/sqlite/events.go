package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
)

type EventRepository struct {
	db *sql.DB
	tx *sql.Tx
}

const eventSelect = `
SELECT e.id, e.title, e.description, e.category, e.event_date, e.event_time,
       e.location, e.price, e.expected_attendees, e.created_by,
       COALESCE(u.username, ''), COALESCE(u.full_name, ''),
       (SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id),
       e.created_at, e.updated_at
  FROM events e
  LEFT JOIN users u ON u.id = e.created_by`

// SQLite's LIKE is already case-insensitive for ASCII.
const eventFilter = `
 WHERE (?1 = '' OR e.category = ?1)
   AND (?2 = '' OR e.title LIKE '%' || ?2 || '%' ESCAPE '\' OR e.location LIKE '%' || ?2 || '%' ESCAPE '\')`

func (r *EventRepository) Create(ctx context.Context, ownerID int64, draft events.Draft) (int64, error) {
	ts := now()
	res, err := pick(r.db, r.tx).ExecContext(ctx, `
INSERT INTO events (title, description, category, event_date, event_time, location, price, expected_attendees, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.Title, draft.Description, draft.Category, draft.Date, draft.Time,
		draft.Location, draft.Price, draft.ExpectedAttendees, ownerID, ts, ts,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (events.Event, error) {
	event, err := scanEvent(pick(r.db, r.tx).QueryRowContext(ctx, eventSelect+` WHERE e.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("query event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Owner(ctx context.Context, id int64) (int64, error) {
	return eventOwner(ctx, pick(r.db, r.tx), id)
}

func (r *EventRepository) Update(ctx context.Context, id int64, draft events.Draft) error {
	res, err := pick(r.db, r.tx).ExecContext(ctx, `
UPDATE events
   SET title = ?, description = ?, category = ?, event_date = ?, event_time = ?,
       location = ?, price = ?, expected_attendees = ?, updated_at = ?
 WHERE id = ?`,
		draft.Title, draft.Description, draft.Category, draft.Date, draft.Time,
		draft.Location, draft.Price, draft.ExpectedAttendees, now(), id,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := pick(r.db, r.tx).ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters) (events.ListResult, error) {
	q := pick(r.db, r.tx)
	category := filters.CategoryFilter()
	search := events.EscapeLike(filters.Search)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+eventFilter, category, search).Scan(&total); err != nil {
		return events.ListResult{}, fmt.Errorf("count events: %w", err)
	}

	rows, err := q.QueryContext(ctx, eventSelect+eventFilter+`
 ORDER BY e.event_date ASC, e.event_time ASC, e.id ASC
 LIMIT ?3 OFFSET ?4`, category, search, filters.Limit, filters.Offset())
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
	rows, err := pick(r.db, r.tx).QueryContext(ctx, eventSelect+`
 ORDER BY e.created_at DESC, e.id DESC
 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	return collectEvents(rows)
}

func eventOwner(ctx context.Context, q queryer, id int64) (int64, error) {
	var owner int64
	if err := q.QueryRowContext(ctx, `SELECT created_by FROM events WHERE id = ?`, id).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, events.ErrNotFound
		}
		return 0, fmt.Errorf("query event owner: %w", err)
	}
	return owner, nil
}

func scanEvent(row scanner) (events.Event, error) {
	var e events.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Time,
		&e.Location, &e.Price, &e.ExpectedAttendees, &e.CreatedBy,
		&e.CreatorUsername, &e.CreatorName,
		&e.RegisteredCount,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectEvents(rows *sql.Rows) ([]events.Event, error) {
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
