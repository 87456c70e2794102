package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/Togather-Foundation/eventhub/internal/audit"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, account NewAccount) (Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(Account), args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Account), args.Error(1)
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(Account), args.Error(1)
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (Account, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(Account), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, limit, offset int) (ListResult, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).(ListResult), args.Error(1)
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, role auth.Role) (Account, error) {
	args := m.Called(ctx, id, role)
	return args.Get(0).(Account), args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, audit.Nop(), zerolog.Nop(), WithHashCost(bcrypt.MinCost))
}

var admin = auth.Identity{AccountID: 1, Username: "root", Role: auth.RoleAdmin}

func TestSignup_Success(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "alice@example.com").Return(Account{}, ErrNotFound)
	repo.On("GetByUsername", ctx, "alice").Return(Account{}, ErrNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(a NewAccount) bool {
		return a.Username == "alice" &&
			a.Email == "alice@example.com" &&
			a.FullName == "Alice Smith" &&
			a.Role == auth.RoleUser &&
			bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("secret1")) == nil
	})).Return(Account{ID: 10, Username: "alice", Email: "alice@example.com", Role: auth.RoleUser}, nil)

	account, err := svc.Signup(ctx, SignupInput{
		Username: " alice ",
		Email:    "Alice@Example.com",
		Password: "secret1",
		FullName: "<b>Alice Smith</b>",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), account.ID)
	assert.Equal(t, auth.RoleUser, account.Role)
	repo.AssertExpectations(t)
}

func TestSignup_CollectsAllFieldErrors(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	_, err := svc.Signup(context.Background(), SignupInput{
		Username: "a!",
		Email:    "not-an-email",
		Password: "123",
	})

	require.ErrorIs(t, err, validation.ErrInvalid)
	fields := validation.FieldErrors(err)
	assert.Equal(t, "Username must be between 3 and 50 characters", fields["username"])
	assert.Equal(t, "Please provide a valid email address", fields["email"])
	assert.Equal(t, "Password must be at least 6 characters long", fields["password"])
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup_UsernameCharacters(t *testing.T) {
	svc := newTestService(new(mockRepository))

	_, err := svc.Signup(context.Background(), SignupInput{
		Username: "bad name",
		Email:    "x@example.com",
		Password: "secret1",
	})

	assert.Equal(t, "Username can only contain letters, numbers, and underscores", validation.FieldErrors(err)["username"])
}

func TestSignup_Duplicates(t *testing.T) {
	ctx := context.Background()
	in := SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"}

	t.Run("email taken", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(Account{ID: 3}, nil)

		_, err := newTestService(repo).Signup(ctx, in)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("username taken", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(Account{}, ErrNotFound)
		repo.On("GetByUsername", ctx, "alice").Return(Account{ID: 3}, nil)

		_, err := newTestService(repo).Signup(ctx, in)
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("lost race surfaces as conflict", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(Account{}, ErrNotFound)
		repo.On("GetByUsername", ctx, "alice").Return(Account{}, ErrNotFound)
		repo.On("Create", ctx, mock.Anything).Return(Account{}, ErrUsernameTaken)

		_, err := newTestService(repo).Signup(ctx, in)
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "alice@example.com").Return(Account{}, errors.New("connection reset"))

		_, err := newTestService(repo).Signup(ctx, in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to check email")
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	stored := Account{ID: 4, Username: "bob", Email: "bob@example.com", PasswordHash: hash, Role: auth.RoleUser}

	t.Run("valid credentials", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "bob@example.com").Return(stored, nil)

		account, err := newTestService(repo).Authenticate(ctx, LoginInput{Email: "BOB@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), account.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "bob@example.com").Return(stored, nil)

		_, err := newTestService(repo).Authenticate(ctx, LoginInput{Email: "bob@example.com", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "ghost@example.com").Return(Account{}, ErrNotFound)

		_, err := newTestService(repo).Authenticate(ctx, LoginInput{Email: "ghost@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing password", func(t *testing.T) {
		_, err := newTestService(new(mockRepository)).Authenticate(ctx, LoginInput{Email: "bob@example.com"})
		assert.Equal(t, "Password is required", validation.FieldErrors(err)["password"])
	})
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown role", func(t *testing.T) {
		repo := new(mockRepository)
		_, err := newTestService(repo).UpdateRole(ctx, admin, 5, "owner")
		assert.ErrorIs(t, err, validation.ErrInvalid)
		repo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects own role", func(t *testing.T) {
		_, err := newTestService(new(mockRepository)).UpdateRole(ctx, admin, admin.AccountID, "user")
		assert.ErrorIs(t, err, ErrSelfRoleChange)
	})

	t.Run("missing account", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("UpdateRole", ctx, int64(5), auth.RoleAdmin).Return(Account{}, ErrNotFound)

		_, err := newTestService(repo).UpdateRole(ctx, admin, 5, "admin")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("promotes", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("UpdateRole", ctx, int64(5), auth.RoleAdmin).Return(Account{ID: 5, Role: auth.RoleAdmin}, nil)

		account, err := newTestService(repo).UpdateRole(ctx, admin, 5, "admin")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, account.Role)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("self delete", func(t *testing.T) {
		repo := new(mockRepository)
		err := newTestService(repo).Delete(ctx, admin, admin.AccountID)
		assert.ErrorIs(t, err, ErrSelfDelete)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("missing", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Delete", ctx, int64(9)).Return(ErrNotFound)
		assert.ErrorIs(t, newTestService(repo).Delete(ctx, admin, 9), ErrNotFound)
	})

	t.Run("deletes", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Delete", ctx, int64(9)).Return(nil)
		assert.NoError(t, newTestService(repo).Delete(ctx, admin, 9))
		repo.AssertExpectations(t)
	})
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when absent", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "root@example.com").Return(Account{}, ErrNotFound)
		repo.On("GetByUsername", ctx, "root").Return(Account{}, ErrNotFound)
		repo.On("Create", ctx, mock.MatchedBy(func(a NewAccount) bool {
			return a.Role == auth.RoleAdmin
		})).Return(Account{ID: 1, Role: auth.RoleAdmin}, nil)

		created, err := newTestService(repo).EnsureAdmin(ctx, "root", "root@example.com", "changeme")
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("skips when present", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByEmail", ctx, "root@example.com").Return(Account{ID: 1}, nil)

		created, err := newTestService(repo).EnsureAdmin(ctx, "root", "root@example.com", "changeme")
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, err := newTestService(new(mockRepository)).EnsureAdmin(ctx, "root", "root@example.com", "123")
		assert.ErrorIs(t, err, validation.ErrInvalid)
	})
}
