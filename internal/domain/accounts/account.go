package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/auth"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrSelfRoleChange     = errors.New("cannot change your own role")
)

// Account is a registered user. PasswordHash never leaves the server.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the token identity for a.
func (a Account) Identity() auth.Identity {
	return auth.Identity{AccountID: a.ID, Username: a.Username, Role: a.Role}
}

// NewAccount is what the repository persists on signup.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         auth.Role
}

type SignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,handle"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=20"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ListResult struct {
	Accounts []Account
	Total    int
}

// Repository is implemented by every storage backend. Lookups that miss
// return ErrNotFound; Create maps unique violations to ErrEmailTaken or
// ErrUsernameTaken.
type Repository interface {
	Create(ctx context.Context, account NewAccount) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	List(ctx context.Context, limit, offset int) (ListResult, error)
	UpdateRole(ctx context.Context, id int64, role auth.Role) (Account, error)
	Delete(ctx context.Context, id int64) error
}
