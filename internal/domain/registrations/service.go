package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/Togather-Foundation/eventhub/internal/domain/registrations")

// Service owns the registration ledger: at most one registration per
// (account, event) pair.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With().Str("component", "registrations").Logger(),
	}
}

// Register records actor's attendance of eventID.
//
// The event row is key-share locked so it cannot be deleted mid-transaction.
// The existence pre-check only produces a friendly error; the unique
// constraint decides concurrent races, and its violation is reported as
// ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, actor auth.Identity, eventID int64) (reg Registration, err error) {
	ctx, span := tracer.Start(ctx, "registrations.Register")
	span.SetAttributes(
		attribute.Int64("eventhub.account_id", actor.AccountID),
		attribute.Int64("eventhub.event_id", eventID),
	)
	defer func() {
		metrics.RegistrationsTotal.WithLabelValues("register", outcome(err)).Inc()
		if err != nil && outcome(err) == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}

		exists, err := tx.Exists(ctx, actor.AccountID, eventID)
		if err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if exists {
			return ErrAlreadyRegistered
		}

		reg, err = tx.Create(ctx, actor.AccountID, eventID)
		return err
	})
	metrics.RecordQuery("register", start, storageError(err))
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			return Registration{}, events.ErrNotFound
		case errors.Is(err, ErrAlreadyRegistered):
			return Registration{}, ErrAlreadyRegistered
		default:
			return Registration{}, fmt.Errorf("failed to register: %w", err)
		}
	}

	s.logger.Info().Int64("account_id", actor.AccountID).Int64("event_id", eventID).Msg("registered")
	if s.notifier != nil {
		s.notifier.RegistrationConfirmed(ctx, actor.AccountID, eventID)
	}
	return reg, nil
}

// Cancel removes actor's registration for eventID.
func (s *Service) Cancel(ctx context.Context, actor auth.Identity, eventID int64) (err error) {
	ctx, span := tracer.Start(ctx, "registrations.Cancel")
	span.SetAttributes(
		attribute.Int64("eventhub.account_id", actor.AccountID),
		attribute.Int64("eventhub.event_id", eventID),
	)
	defer func() {
		metrics.RegistrationsTotal.WithLabelValues("cancel", outcome(err)).Inc()
		span.End()
	}()

	if _, err := s.eventOwner(ctx, eventID); err != nil {
		return err
	}

	start := time.Now()
	removed, err := s.repo.Delete(ctx, actor.AccountID, eventID)
	metrics.RecordQuery("cancel", start, err)
	if err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	if !removed {
		return ErrNotRegistered
	}

	s.logger.Info().Int64("account_id", actor.AccountID).Int64("event_id", eventID).Msg("registration cancelled")
	return nil
}

// ListRegistrants returns everyone registered for eventID. Only the event's
// owner and administrators may see the list.
func (s *Service) ListRegistrants(ctx context.Context, actor auth.Identity, eventID int64) ([]Registrant, error) {
	owner, err := s.eventOwner(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(owner) {
		return nil, ErrForbidden
	}

	start := time.Now()
	registrants, err := s.repo.ListByEvent(ctx, eventID)
	metrics.RecordQuery("list_registrants", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	if registrants == nil {
		registrants = []Registrant{}
	}
	return registrants, nil
}

func (s *Service) eventOwner(ctx context.Context, eventID int64) (int64, error) {
	owner, err := s.repo.EventOwner(ctx, eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			return 0, events.ErrNotFound
		}
		return 0, fmt.Errorf("failed to load event: %w", err)
	}
	return owner, nil
}

// storageError drops ledger outcomes so only faults count as query errors.
func storageError(err error) error {
	if outcome(err) == "error" {
		return err
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAlreadyRegistered):
		return "conflict"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, events.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
