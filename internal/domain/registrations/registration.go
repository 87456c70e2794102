package registrations

import (
	"context"
	"errors"
	"time"
)

// A missing event is reported as events.ErrNotFound.
var (
	ErrAlreadyRegistered = errors.New("you are already registered for this event")
	ErrNotRegistered     = errors.New("you are not registered for this event")
	ErrForbidden         = errors.New("you do not have permission to view registrations for this event")
)

// Registration is one (account, event) ledger row.
type Registration struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"user_id"`
	EventID      int64     `json:"event_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Registrant is a registration joined with the registrant's contact fields.
type Registrant struct {
	Registration
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// Repository is the ledger's storage port.
type Repository interface {
	// WithTx runs fn against a transaction-scoped Repository. A non-nil error
	// from fn rolls everything back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
	// LockEvent takes a key-share lock on the event row for the rest of the
	// transaction and returns the event's owner.
	LockEvent(ctx context.Context, eventID int64) (int64, error)
	EventOwner(ctx context.Context, eventID int64) (int64, error)
	Exists(ctx context.Context, accountID, eventID int64) (bool, error)
	// Create inserts the pair. A unique violation is ErrAlreadyRegistered and
	// a foreign key violation on the event is events.ErrNotFound.
	Create(ctx context.Context, accountID, eventID int64) (Registration, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, accountID, eventID int64) (bool, error)
	// ListByEvent returns registrants newest first.
	ListByEvent(ctx context.Context, eventID int64) ([]Registrant, error)
}

// Notifier receives ledger side effects after commit. Implementations must
// not block.
type Notifier interface {
	RegistrationConfirmed(ctx context.Context, accountID, eventID int64)
}
