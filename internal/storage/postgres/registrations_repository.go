package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RegistrationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *RegistrationRepository) WithTx(ctx context.Context, fn func(context.Context, registrations.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, &RegistrationRepository{pool: r.pool, tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if constraintViolation(err, sqlStateUniqueViolation, "registrations_user_event_key") {
			return registrations.ErrAlreadyRegistered
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LockEvent holds FOR KEY SHARE on the event row: concurrent registrations
// proceed, a concurrent delete of the event waits for this transaction.
func (r *RegistrationRepository) LockEvent(ctx context.Context, eventID int64) (int64, error) {
	return r.owner(ctx, `SELECT created_by FROM events WHERE id = $1 FOR KEY SHARE`, eventID)
}

func (r *RegistrationRepository) EventOwner(ctx context.Context, eventID int64) (int64, error) {
	return r.owner(ctx, `SELECT created_by FROM events WHERE id = $1`, eventID)
}

func (r *RegistrationRepository) owner(ctx context.Context, sql string, eventID int64) (int64, error) {
	var owner int64
	if err := pick(r.pool, r.tx).QueryRow(ctx, sql, eventID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, events.ErrNotFound
		}
		return 0, fmt.Errorf("query event: %w", err)
	}
	return owner, nil
}

func (r *RegistrationRepository) Exists(ctx context.Context, accountID, eventID int64) (bool, error) {
	var exists bool
	err := pick(r.pool, r.tx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE user_id = $1 AND event_id = $2)`,
		accountID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query registration: %w", err)
	}
	return exists, nil
}

func (r *RegistrationRepository) Create(ctx context.Context, accountID, eventID int64) (registrations.Registration, error) {
	var reg registrations.Registration
	err := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO registrations (user_id, event_id)
VALUES ($1, $2)
RETURNING id, user_id, event_id, registered_at`,
		accountID, eventID,
	).Scan(&reg.ID, &reg.AccountID, &reg.EventID, &reg.RegisteredAt)
	if err != nil {
		switch {
		case constraintViolation(err, sqlStateUniqueViolation, "registrations_user_event_key"):
			return registrations.Registration{}, registrations.ErrAlreadyRegistered
		case constraintViolation(err, sqlStateForeignKeyViolation, "registrations_event_id_fkey"):
			return registrations.Registration{}, events.ErrNotFound
		}
		return registrations.Registration{}, fmt.Errorf("insert registration: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, accountID, eventID int64) (bool, error) {
	tag, err := pick(r.pool, r.tx).Exec(ctx,
		`DELETE FROM registrations WHERE user_id = $1 AND event_id = $2`, accountID, eventID)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int64) ([]registrations.Registrant, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT r.id, r.user_id, r.event_id, r.registered_at, u.username, u.email, u.full_name, u.phone
  FROM registrations r
  JOIN users u ON u.id = r.user_id
 WHERE r.event_id = $1
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
