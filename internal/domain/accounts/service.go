package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/eventhub/internal/audit"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/sanitize"
	"github.com/Togather-Foundation/eventhub/internal/validation"
	"github.com/rs/zerolog"
)

var signupMessages = validation.Messages{
	"username":        "Username must be between 3 and 50 characters",
	"username.handle": "Username can only contain letters, numbers, and underscores",
	"email":           "Please provide a valid email address",
	"password":        "Password must be at least 6 characters long",
	"password.max":    "Password must be at most 72 characters long",
	"full_name":       "Full name must be less than 100 characters",
	"phone":           "Phone number must be at most 20 characters",
}

var loginMessages = validation.Messages{
	"email":    "Please provide a valid email address",
	"password": "Password is required",
}

type Service struct {
	repo     Repository
	audit    *audit.Logger
	logger   zerolog.Logger
	hashCost int
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		audit:    auditLogger,
		logger:   logger.With().Str("component", "accounts").Logger(),
		hashCost: auth.BcryptCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates a member account. The role is always user.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.FullName = sanitize.Text(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validation.Struct(in, signupMessages); err != nil {
		return Account{}, err
	}

	return s.create(ctx, in, auth.RoleUser)
}

func (s *Service) create(ctx context.Context, in SignupInput, role auth.Role) (Account, error) {
	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return Account{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return Account{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := auth.HashPassword(in.Password, s.hashCost)
	if err != nil {
		return Account{}, err
	}

	// The pre-checks above can race; Create still reports the duplicate.
	account, err := s.repo.Create(ctx, NewAccount{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info().Int64("account_id", account.ID).Str("role", string(role)).Msg("account created")
	return account, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// both ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (Account, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in, loginMessages); err != nil {
		return Account{}, err
	}

	account, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, fmt.Errorf("failed to load account: %w", err)
	}

	if err := auth.CheckPassword(account.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	return account, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// List returns accounts newest first.
func (s *Service) List(ctx context.Context, limit, offset int) (ListResult, error) {
	result, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	return result, nil
}

// UpdateRole sets the role of account id. Admins cannot change their own role.
func (s *Service) UpdateRole(ctx context.Context, actor auth.Identity, id int64, role string) (Account, error) {
	role = strings.TrimSpace(role)
	if !auth.ValidRole(role) {
		verrs := &validation.Errors{}
		verrs.Add("role", `Invalid role. Must be "user" or "admin"`)
		return Account{}, verrs
	}
	if actor.AccountID == id {
		return Account{}, ErrSelfRoleChange
	}

	account, err := s.repo.UpdateRole(ctx, id, auth.Role(role))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrNotFound
		}
		s.audit.LogFailure("account.role_updated", actor.Username, "account", strconv.FormatInt(id, 10), map[string]string{"role": role})
		return Account{}, fmt.Errorf("failed to update role: %w", err)
	}

	s.audit.LogSuccess("account.role_updated", actor.Username, "account", strconv.FormatInt(id, 10), map[string]string{"role": role})
	return account, nil
}

// Delete removes account id along with its events and registrations.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	if actor.AccountID == id {
		return ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.audit.LogFailure("account.deleted", actor.Username, "account", strconv.FormatInt(id, 10), nil)
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.audit.LogSuccess("account.deleted", actor.Username, "account", strconv.FormatInt(id, 10), nil)
	return nil
}

// EnsureAdmin creates an administrator unless an account already holds the
// email or username. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	in := SignupInput{
		Username: strings.TrimSpace(username),
		Email:    normalizeEmail(email),
		Password: password,
	}
	if err := validation.Struct(in, signupMessages); err != nil {
		return false, fmt.Errorf("invalid admin bootstrap settings: %w", err)
	}

	_, err := s.create(ctx, in, auth.RoleAdmin)
	switch {
	case err == nil:
		s.audit.LogSuccess("account.admin_bootstrapped", "system", "account", in.Username, nil)
		return true, nil
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
		return false, nil
	default:
		return false, err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
