package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const accountColumns = `id, username, email, password_hash, full_name, phone, role, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, account accounts.NewAccount) (accounts.Account, error) {
	row := pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO users (username, email, password_hash, full_name, phone, role)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+accountColumns,
		account.Username, account.Email, account.PasswordHash, account.FullName, account.Phone, string(account.Role),
	)
	created, err := scanAccount(row)
	if err != nil {
		switch {
		case constraintViolation(err, sqlStateUniqueViolation, "users_email_key"):
			return accounts.Account{}, accounts.ErrEmailTaken
		case constraintViolation(err, sqlStateUniqueViolation, "users_username_key"):
			return accounts.Account{}, accounts.ErrUsernameTaken
		}
		return accounts.Account{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (accounts.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (accounts.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email = lower($1)`, email)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (accounts.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) (accounts.ListResult, error) {
	q := pick(r.pool, r.tx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return accounts.ListResult{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := q.Query(ctx, `
SELECT `+accountColumns+`
  FROM users
 ORDER BY created_at DESC, id DESC
 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return accounts.ListResult{}, fmt.Errorf("list users: %w", err)
	}
	items, err := collectAccounts(rows)
	if err != nil {
		return accounts.ListResult{}, err
	}
	return accounts.ListResult{Accounts: items, Total: total}, nil
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id int64, role auth.Role) (accounts.Account, error) {
	return r.getOne(ctx, `
UPDATE users SET role = $2, updated_at = now()
 WHERE id = $1
RETURNING `+accountColumns, id, string(role))
}

// Delete cascades to the account's events and every registration that
// references the account or those events.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, sql string, args ...any) (accounts.Account, error) {
	account, err := scanAccount(pick(r.pool, r.tx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, accounts.ErrNotFound
		}
		return accounts.Account{}, fmt.Errorf("query user: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (accounts.Account, error) {
	var a accounts.Account
	var role string
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FullName, &a.Phone, &role, &a.CreatedAt, &a.UpdatedAt)
	a.Role = auth.Role(role)
	return a, err
}

func collectAccounts(rows pgx.Rows) ([]accounts.Account, error) {
	defer rows.Close()
	items := make([]accounts.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}
