package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
)

type AccountRepository struct {
	db *sql.DB
	tx *sql.Tx
}

const accountColumns = `id, username, email, password_hash, full_name, phone, role, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, account accounts.NewAccount) (accounts.Account, error) {
	ts := now()
	res, err := pick(r.db, r.tx).ExecContext(ctx, `
INSERT INTO users (username, email, password_hash, full_name, phone, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.Username, account.Email, account.PasswordHash, account.FullName, account.Phone, string(account.Role), ts, ts,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "users.email"):
			return accounts.Account{}, accounts.ErrEmailTaken
		case uniqueViolation(err, "users.username"):
			return accounts.Account{}, accounts.ErrUsernameTaken
		}
		return accounts.Account{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return accounts.Account{}, fmt.Errorf("insert user: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (accounts.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE id = ?`, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (accounts.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE email = lower(?)`, email)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (accounts.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM users WHERE username = ?`, username)
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) (accounts.ListResult, error) {
	q := pick(r.db, r.tx)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return accounts.ListResult{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
SELECT `+accountColumns+`
  FROM users
 ORDER BY created_at DESC, id DESC
 LIMIT ? OFFSET ?`, limit, offset)
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
	res, err := pick(r.db, r.tx).ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), now(), id)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("update user role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	res, err := pick(r.db, r.tx).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, args ...any) (accounts.Account, error) {
	account, err := scanAccount(pick(r.db, r.tx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrNotFound
		}
		return accounts.Account{}, fmt.Errorf("query user: %w", err)
	}
	return account, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (accounts.Account, error) {
	var a accounts.Account
	var role string
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FullName, &a.Phone, &role, &a.CreatedAt, &a.UpdatedAt)
	a.Role = auth.Role(role)
	return a, err
}

func collectAccounts(rows *sql.Rows) ([]accounts.Account, error) {
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
