package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/admin"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
)

// Repository implements storage.Repository on an embedded SQLite database.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite repository: db is nil")
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Accounts() accounts.Repository {
	return &AccountRepository{db: r.db}
}

func (r *Repository) Events() events.Repository {
	return &EventRepository{db: r.db}
}

func (r *Repository) Registrations() registrations.Repository {
	return &RegistrationRepository{db: r.db}
}

func (r *Repository) Stats() admin.Repository {
	return &StatsRepository{db: r.db, events: &EventRepository{db: r.db}}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
