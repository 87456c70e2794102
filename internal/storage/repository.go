package storage

import (
	"context"

	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/admin"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
)

// Repository groups data access by domain. The postgres and sqlite packages
// both implement it.
type Repository interface {
	Accounts() accounts.Repository
	Events() events.Repository
	Registrations() registrations.Repository
	Stats() admin.Repository

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
