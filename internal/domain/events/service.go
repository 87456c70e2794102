package events

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/audit"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/Togather-Foundation/eventhub/internal/validation"
	"github.com/rs/zerolog"
)

type Service struct {
	repo     Repository
	notifier Notifier
	audit    *audit.Logger
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		audit:    auditLogger,
		logger:   logger.With().Str("component", "events").Logger(),
	}
}

// Create validates in and stores a new event owned by actor. A failed
// read-back is logged and the event is returned as inserted.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in Input) (Event, error) {
	draft, err := in.Validate()
	if err != nil {
		return Event{}, err
	}

	id, err := s.repo.Create(ctx, actor.AccountID, draft)
	if err != nil {
		metrics.EventMutationsTotal.WithLabelValues("create", "error").Inc()
		return Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	metrics.EventMutationsTotal.WithLabelValues("create", "success").Inc()

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("event_id", id).Msg("read-back after create failed")
		now := time.Now().UTC()
		event = Event{
			ID:                id,
			Title:             draft.Title,
			Description:       draft.Description,
			Category:          draft.Category,
			Date:              draft.Date,
			Time:              draft.Time,
			Location:          draft.Location,
			Price:             draft.Price,
			ExpectedAttendees: draft.ExpectedAttendees,
			CreatedBy:         actor.AccountID,
			CreatorUsername:   actor.Username,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}

	if s.notifier != nil {
		s.notifier.EventCreated(ctx, actor.AccountID, event)
	}
	return event, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// Update replaces every field of event id. Existence and permission are
// checked before the payload is validated; nothing is written unless all
// three pass.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id int64, in Input) (Event, error) {
	if err := s.authorize(ctx, actor, id); err != nil {
		return Event{}, err
	}

	draft, err := in.Validate()
	if err != nil {
		return Event{}, err
	}

	if err := s.repo.Update(ctx, id, draft); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Event{}, ErrNotFound
		}
		metrics.EventMutationsTotal.WithLabelValues("update", "error").Inc()
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	metrics.EventMutationsTotal.WithLabelValues("update", "success").Inc()

	return s.Get(ctx, id)
}

// Delete removes event id and, by cascade, its registrations.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	owner, err := s.owner(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(owner) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		metrics.EventMutationsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("failed to delete event: %w", err)
	}
	metrics.EventMutationsTotal.WithLabelValues("delete", "success").Inc()

	if owner != actor.AccountID {
		s.audit.LogSuccess("event.deleted", actor.Username, "event", strconv.FormatInt(id, 10),
			map[string]string{"owner_id": strconv.FormatInt(owner, 10)})
	}
	return nil
}

// List returns one page of events ordered by date, then time.
func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	if filters.Limit < 1 {
		filters.Limit = DefaultPageSize
	}
	if filters.Limit > MaxPageSize {
		filters.Limit = MaxPageSize
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Page > math.MaxInt/filters.Limit {
		errs := &validation.Errors{}
		errs.Add("page", "page is out of range")
		return ListResult{}, errs.Err()
	}

	result, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list events: %w", err)
	}
	if result.Events == nil {
		result.Events = []Event{}
	}
	return result, nil
}

func (s *Service) authorize(ctx context.Context, actor auth.Identity, id int64) error {
	owner, err := s.owner(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(owner) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) owner(ctx context.Context, id int64) (int64, error) {
	owner, err := s.repo.Owner(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to load event owner: %w", err)
	}
	return owner, nil
}
