package admin

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"golang.org/x/sync/errgroup"
)

// RecentLimit bounds the recent_events and recent_users lists.
const RecentLimit = 10

// Stats is the read-only admin dashboard.
type Stats struct {
	TotalUsers         int                `json:"total_users"`
	TotalEvents        int                `json:"total_events"`
	TotalRegistrations int                `json:"total_registrations"`
	EventsByCategory   map[string]int     `json:"events_by_category"`
	RecentEvents       []events.Event     `json:"recent_events"`
	RecentUsers        []accounts.Account `json:"recent_users"`
}

type Repository interface {
	CountAccounts(ctx context.Context) (int, error)
	CountEvents(ctx context.Context) (int, error)
	CountRegistrations(ctx context.Context) (int, error)
	EventsByCategory(ctx context.Context) (map[string]int, error)
	// RecentEvents and RecentAccounts order by created_at descending.
	RecentEvents(ctx context.Context, limit int) ([]events.Event, error)
	RecentAccounts(ctx context.Context, limit int) ([]accounts.Account, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Stats runs the independent reads concurrently; the first failure cancels
// the rest.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalUsers, err = s.repo.CountAccounts(ctx)
		return wrap("count accounts", err)
	})
	g.Go(func() (err error) {
		stats.TotalEvents, err = s.repo.CountEvents(ctx)
		return wrap("count events", err)
	})
	g.Go(func() (err error) {
		stats.TotalRegistrations, err = s.repo.CountRegistrations(ctx)
		return wrap("count registrations", err)
	})
	g.Go(func() (err error) {
		stats.EventsByCategory, err = s.repo.EventsByCategory(ctx)
		return wrap("group events by category", err)
	})
	g.Go(func() (err error) {
		stats.RecentEvents, err = s.repo.RecentEvents(ctx, RecentLimit)
		return wrap("load recent events", err)
	})
	g.Go(func() (err error) {
		stats.RecentUsers, err = s.repo.RecentAccounts(ctx, RecentLimit)
		return wrap("load recent accounts", err)
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	if stats.EventsByCategory == nil {
		stats.EventsByCategory = map[string]int{}
	}
	if stats.RecentEvents == nil {
		stats.RecentEvents = []events.Event{}
	}
	if stats.RecentUsers == nil {
		stats.RecentUsers = []accounts.Account{}
	}
	return stats, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
