package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/eventhub/internal/api/middleware"
	"github.com/Togather-Foundation/eventhub/internal/api/problem"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/registrations"
)

// LedgerService is implemented by registrations.Service.
type LedgerService interface {
	Register(ctx context.Context, actor auth.Identity, eventID int64) (registrations.Registration, error)
	Cancel(ctx context.Context, actor auth.Identity, eventID int64) error
	ListRegistrants(ctx context.Context, actor auth.Identity, eventID int64) ([]registrations.Registrant, error)
}

type RegistrationsHandler struct {
	ledger LedgerService
	env    string
}

func NewRegistrationsHandler(ledger LedgerService, env string) *RegistrationsHandler {
	return &RegistrationsHandler{ledger: ledger, env: env}
}

// Register handles POST /events/{id}/register.
func (h *RegistrationsHandler) Register(w http.ResponseWriter, r *http.Request) {
	identity, eventID, ok := h.target(w, r)
	if !ok {
		return
	}

	reg, err := h.ledger.Register(r.Context(), identity, eventID)
	if err != nil {
		h.mapRegistrationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Successfully registered for event",
		"registration": reg,
	})
}

// Cancel handles DELETE /events/{id}/register.
func (h *RegistrationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, eventID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.ledger.Cancel(r.Context(), identity, eventID); err != nil {
		h.mapRegistrationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Successfully unregistered from event"})
}

// List handles GET /events/{id}/registrations. Only the event's creator and
// admins may call it.
func (h *RegistrationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, eventID, ok := h.target(w, r)
	if !ok {
		return
	}

	registrants, err := h.ledger.ListRegistrants(r.Context(), identity, eventID)
	if err != nil {
		h.mapRegistrationError(w, r, err)
		return
	}
	if registrants == nil {
		registrants = []registrations.Registrant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"registrations": registrants})
}

// target resolves the caller and the event path parameter, writing the error
// response itself when either is missing.
func (h *RegistrationsHandler) target(w http.ResponseWriter, r *http.Request) (auth.Identity, int64, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.mapRegistrationError(w, r, auth.ErrMissingToken)
		return auth.Identity{}, 0, false
	}
	eventID, err := pathID(r, "id")
	if err != nil {
		writeInvalidID(w, r, "event", h.env)
		return auth.Identity{}, 0, false
	}
	return identity, eventID, true
}

func (h *RegistrationsHandler) mapRegistrationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.env,
			problem.WithDetail("Access denied. No token provided."))
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.env,
			problem.WithDetail("Event not found"))
	case errors.Is(err, registrations.ErrAlreadyRegistered):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeConflict, "Already registered", err, h.env,
			problem.WithDetail("You are already registered for this event"))
	case errors.Is(err, registrations.ErrNotRegistered):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeInvalidState, "Not registered", err, h.env,
			problem.WithDetail("You are not registered for this event"))
	case errors.Is(err, registrations.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, h.env,
			problem.WithDetail("You do not have permission to view registrations for this event"))
	default:
		writeServerError(w, r, err, h.env)
	}
}
