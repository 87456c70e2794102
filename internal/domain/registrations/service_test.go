package registrations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct{ account, event int64 }

// memoryRepository is a ledger with a uniqueness guard on (account, event).
type memoryRepository struct {
	mu        sync.Mutex
	owners    map[int64]int64
	rows      map[pair]Registration
	nextID    int64
	failWith  error
	skipCheck bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{owners: map[int64]int64{}, rows: map[pair]Registration{}}
}

func (m *memoryRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepository) LockEvent(ctx context.Context, eventID int64) (int64, error) {
	return m.EventOwner(ctx, eventID)
}

func (m *memoryRepository) EventOwner(_ context.Context, eventID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	owner, ok := m.owners[eventID]
	if !ok {
		return 0, events.ErrNotFound
	}
	return owner, nil
}

func (m *memoryRepository) Exists(_ context.Context, accountID, eventID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipCheck {
		return false, nil
	}
	_, ok := m.rows[pair{accountID, eventID}]
	return ok, nil
}

func (m *memoryRepository) Create(_ context.Context, accountID, eventID int64) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pair{accountID, eventID}
	if _, ok := m.rows[key]; ok {
		return Registration{}, ErrAlreadyRegistered
	}
	m.nextID++
	reg := Registration{ID: m.nextID, AccountID: accountID, EventID: eventID, RegisteredAt: time.Now()}
	m.rows[key] = reg
	return reg, nil
}

func (m *memoryRepository) Delete(_ context.Context, accountID, eventID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pair{accountID, eventID}
	if _, ok := m.rows[key]; !ok {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

func (m *memoryRepository) ListByEvent(_ context.Context, eventID int64) ([]Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Registrant
	for key, reg := range m.rows {
		if key.event == eventID {
			out = append(out, Registrant{Registration: reg})
		}
	}
	return out, nil
}

func (m *memoryRepository) count(eventID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.rows {
		if key.event == eventID {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []pair
}

func (n *recordingNotifier) RegistrationConfirmed(_ context.Context, accountID, eventID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, pair{accountID, eventID})
}

var (
	alice = auth.Identity{AccountID: 1, Username: "alice", Role: auth.RoleUser}
	bob   = auth.Identity{AccountID: 2, Username: "bob", Role: auth.RoleUser}
	carol = auth.Identity{AccountID: 3, Username: "carol", Role: auth.RoleUser}
	root  = auth.Identity{AccountID: 9, Username: "root", Role: auth.RoleAdmin}
)

const launchParty = int64(100)

func setup() (*Service, *memoryRepository, *recordingNotifier) {
	repo := newMemoryRepository()
	repo.owners[launchParty] = alice.AccountID
	notifier := &recordingNotifier{}
	return NewService(repo, notifier, zerolog.Nop()), repo, notifier
}

func TestRegister_TwiceConflicts(t *testing.T) {
	svc, repo, notifier := setup()
	ctx := context.Background()

	reg, err := svc.Register(ctx, bob, launchParty)
	require.NoError(t, err)
	assert.Equal(t, bob.AccountID, reg.AccountID)
	assert.Equal(t, 1, repo.count(launchParty))

	_, err = svc.Register(ctx, bob, launchParty)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, 1, repo.count(launchParty))
	assert.Len(t, notifier.calls, 1)
}

func TestRegister_ConstraintViolationIsConflict(t *testing.T) {
	svc, repo, _ := setup()
	ctx := context.Background()

	_, err := svc.Register(ctx, bob, launchParty)
	require.NoError(t, err)

	// Simulate losing the race: the pre-check sees nothing, the insert hits the constraint.
	repo.skipCheck = true
	_, err = svc.Register(ctx, bob, launchParty)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegister_Concurrent(t *testing.T) {
	svc, repo, _ := setup()
	repo.skipCheck = true
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, bob, launchParty)
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyRegistered):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, repo.count(launchParty))
}

func TestRegister_MissingEvent(t *testing.T) {
	svc, _, notifier := setup()

	_, err := svc.Register(context.Background(), bob, 404)
	assert.ErrorIs(t, err, events.ErrNotFound)
	assert.Empty(t, notifier.calls)
}

func TestRegister_StorageFailure(t *testing.T) {
	svc, repo, _ := setup()
	repo.failWith = errors.New("connection reset")
	before := testutil.ToFloat64(metrics.DBErrors.WithLabelValues("register", "query_error"))

	_, err := svc.Register(context.Background(), bob, launchParty)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRegistered)
	assert.Contains(t, err.Error(), "failed to register")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DBErrors.WithLabelValues("register", "query_error")))
}

func TestRegister_RecordsQueryMetrics(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()
	failures := testutil.ToFloat64(metrics.DBErrors.WithLabelValues("register", "query_error"))

	_, err := svc.Register(ctx, bob, launchParty)
	require.NoError(t, err)
	_, err = svc.Register(ctx, bob, launchParty)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	require.NoError(t, svc.Cancel(ctx, bob, launchParty))

	// A conflict is a ledger outcome, not a storage fault.
	assert.Equal(t, failures, testutil.ToFloat64(metrics.DBErrors.WithLabelValues("register", "query_error")))
	assert.Positive(t, testutil.CollectAndCount(metrics.DBQueryDuration, "eventhub_db_query_duration_seconds"))
}

func TestCancel(t *testing.T) {
	svc, repo, _ := setup()
	ctx := context.Background()

	assert.ErrorIs(t, svc.Cancel(ctx, bob, launchParty), ErrNotRegistered)
	assert.ErrorIs(t, svc.Cancel(ctx, bob, 404), events.ErrNotFound)

	_, err := svc.Register(ctx, bob, launchParty)
	require.NoError(t, err)
	_, err = svc.Register(ctx, carol, launchParty)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.count(launchParty))

	require.NoError(t, svc.Cancel(ctx, bob, launchParty))
	assert.Equal(t, 1, repo.count(launchParty))
}

func TestListRegistrants(t *testing.T) {
	svc, _, _ := setup()
	ctx := context.Background()

	_, err := svc.Register(ctx, bob, launchParty)
	require.NoError(t, err)

	t.Run("owner", func(t *testing.T) {
		list, err := svc.ListRegistrants(ctx, alice, launchParty)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("admin", func(t *testing.T) {
		list, err := svc.ListRegistrants(ctx, root, launchParty)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("registrant who is not the owner", func(t *testing.T) {
		_, err := svc.ListRegistrants(ctx, bob, launchParty)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("stranger", func(t *testing.T) {
		_, err := svc.ListRegistrants(ctx, carol, launchParty)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing event beats permission", func(t *testing.T) {
		_, err := svc.ListRegistrants(ctx, carol, 404)
		assert.ErrorIs(t, err, events.ErrNotFound)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		svc, _, _ := setup()
		list, err := svc.ListRegistrants(ctx, alice, launchParty)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}
