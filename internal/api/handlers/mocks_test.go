package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/api/middleware"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/admin"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testEnv = "test"

var (
	alice = auth.Identity{AccountID: 1, Username: "alice", Role: auth.RoleUser}
	root  = auth.Identity{AccountID: 99, Username: "root", Role: auth.RoleAdmin}
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Signup(ctx context.Context, in accounts.SignupInput) (accounts.Account, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(accounts.Account), args.Error(1)
}

func (m *MockAccountService) Authenticate(ctx context.Context, in accounts.LoginInput) (accounts.Account, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(accounts.Account), args.Error(1)
}

func (m *MockAccountService) Get(ctx context.Context, id int64) (accounts.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(accounts.Account), args.Error(1)
}

func (m *MockAccountService) List(ctx context.Context, limit, offset int) (accounts.ListResult, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).(accounts.ListResult), args.Error(1)
}

func (m *MockAccountService) UpdateRole(ctx context.Context, actor auth.Identity, id int64, role string) (accounts.Account, error) {
	args := m.Called(ctx, actor, id, role)
	return args.Get(0).(accounts.Account), args.Error(1)
}

func (m *MockAccountService) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Generate(identity auth.Identity) (string, time.Time, error) {
	args := m.Called(identity)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) Create(ctx context.Context, actor auth.Identity, in events.Input) (events.Event, error) {
	args := m.Called(ctx, actor, in)
	return args.Get(0).(events.Event), args.Error(1)
}

func (m *MockEventService) Get(ctx context.Context, id int64) (events.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(events.Event), args.Error(1)
}

func (m *MockEventService) Update(ctx context.Context, actor auth.Identity, id int64, in events.Input) (events.Event, error) {
	args := m.Called(ctx, actor, id, in)
	return args.Get(0).(events.Event), args.Error(1)
}

func (m *MockEventService) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockEventService) List(ctx context.Context, filters events.Filters) (events.ListResult, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(events.ListResult), args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Register(ctx context.Context, actor auth.Identity, eventID int64) (registrations.Registration, error) {
	args := m.Called(ctx, actor, eventID)
	return args.Get(0).(registrations.Registration), args.Error(1)
}

func (m *MockLedgerService) Cancel(ctx context.Context, actor auth.Identity, eventID int64) error {
	args := m.Called(ctx, actor, eventID)
	return args.Error(0)
}

func (m *MockLedgerService) ListRegistrants(ctx context.Context, actor auth.Identity, eventID int64) ([]registrations.Registrant, error) {
	args := m.Called(ctx, actor, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registrations.Registrant), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Stats(ctx context.Context) (admin.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(admin.Stats), args.Error(1)
}

// newRequest builds a request with an optional JSON body, path values and
// caller identity.
func newRequest(method, target, body string, identity *auth.Identity, pathValues map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if identity != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *identity))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
