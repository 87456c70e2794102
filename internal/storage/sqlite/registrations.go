package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
)

type RegistrationRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// WithTx runs fn in a transaction. With a single connection the whole
// transaction is serialized against other writers, so callers must use the
// repository passed to fn and never the outer one.
func (r *RegistrationRepository) WithTx(ctx context.Context, fn func(context.Context, registrations.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, &RegistrationRepository{db: r.db, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LockEvent reads the owner inside the transaction. SQLite locks the
// database as a whole, so no row lock is needed.
func (r *RegistrationRepository) LockEvent(ctx context.Context, eventID int64) (int64, error) {
	return eventOwner(ctx, pick(r.db, r.tx), eventID)
}

func (r *RegistrationRepository) EventOwner(ctx context.Context, eventID int64) (int64, error) {
	return eventOwner(ctx, pick(r.db, r.tx), eventID)
}

func (r *RegistrationRepository) Exists(ctx context.Context, accountID, eventID int64) (bool, error) {
	var exists bool
	err := pick(r.db, r.tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE user_id = ? AND event_id = ?)`,
		accountID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query registration: %w", err)
	}
	return exists, nil
}

func (r *RegistrationRepository) Create(ctx context.Context, accountID, eventID int64) (registrations.Registration, error) {
	ts := now()
	res, err := pick(r.db, r.tx).ExecContext(ctx,
		`INSERT INTO registrations (user_id, event_id, registered_at) VALUES (?, ?, ?)`,
		accountID, eventID, ts,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "registrations."):
			return registrations.Registration{}, registrations.ErrAlreadyRegistered
		case foreignKeyViolation(err):
			return registrations.Registration{}, events.ErrNotFound
		}
		return registrations.Registration{}, fmt.Errorf("insert registration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return registrations.Registration{}, fmt.Errorf("insert registration: %w", err)
	}
	return registrations.Registration{ID: id, AccountID: accountID, EventID: eventID, RegisteredAt: ts}, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, accountID, eventID int64) (bool, error) {
	res, err := pick(r.db, r.tx).ExecContext(ctx,
		`DELETE FROM registrations WHERE user_id = ? AND event_id = ?`, accountID, eventID)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return n > 0, nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64) ([]registrations.Registrant, error) {
	rows, err := pick(r.db, r.tx).QueryContext(ctx, `
SELECT r.id, r.user_id, r.event_id, r.registered_at, u.username, u.email, u.full_name, u.phone
  FROM registrations r
  JOIN users u ON u.id = r.user_id
 WHERE r.event_id = ?
 ORDER BY r.registered_at DESC, r.id DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	items := make([]registrations.Registrant, 0)
	for rows.Next() {
		var reg registrations.Registrant
		if err := rows.Scan(
			&reg.ID, &reg.AccountID, &reg.EventID, &reg.RegisteredAt,
			&reg.Username, &reg.Email, &reg.FullName, &reg.Phone,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		items = append(items, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return items, nil
}
