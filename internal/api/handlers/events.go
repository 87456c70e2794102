package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/eventhub/internal/api/middleware"
	"github.com/Togather-Foundation/eventhub/internal/api/pagination"
	"github.com/Togather-Foundation/eventhub/internal/api/problem"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/events"
)

// EventService is implemented by events.Service.
type EventService interface {
	Create(ctx context.Context, actor auth.Identity, in events.Input) (events.Event, error)
	Get(ctx context.Context, id int64) (events.Event, error)
	Update(ctx context.Context, actor auth.Identity, id int64, in events.Input) (events.Event, error)
	Delete(ctx context.Context, actor auth.Identity, id int64) error
	List(ctx context.Context, filters events.Filters) (events.ListResult, error)
}

type EventsHandler struct {
	events EventService
	env    string
}

func NewEventsHandler(service EventService, env string) *EventsHandler {
	return &EventsHandler{events: service, env: env}
}

type eventListResponse struct {
	Events     []events.Event      `json:"events"`
	Pagination pagination.Envelope `json:"pagination"`
}

// List handles GET /events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := events.ParseFilters(query)
	page, err := pagination.Parse(query, events.DefaultPageSize, events.MaxPageSize)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Bad request", err, h.env,
			problem.WithDetail(err.Error()))
		return
	}
	filters.Page = page.Page
	filters.Limit = page.Limit

	result, err := h.events.List(r.Context(), filters)
	if err != nil {
		h.mapEventError(w, r, err)
		return
	}

	items := result.Events
	if items == nil {
		items = []events.Event{}
	}
	writeJSON(w, http.StatusOK, eventListResponse{
		Events:     items,
		Pagination: pagination.NewEnvelope(page, result.Total),
	})
}

// Get handles GET /events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeInvalidID(w, r, "event", h.env)
		return
	}

	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		h.mapEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": event})
}

// Create handles POST /events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.mapEventError(w, r, auth.ErrMissingToken)
		return
	}

	var in events.Input
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, r, err, h.env)
		return
	}

	event, err := h.events.Create(r.Context(), identity, in)
	if err != nil {
		h.mapEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Event created successfully",
		"event":   event,
	})
}

// Update handles PUT /events/{id}.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.mapEventError(w, r, auth.ErrMissingToken)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeInvalidID(w, r, "event", h.env)
		return
	}

	var in events.Input
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, r, err, h.env)
		return
	}

	event, err := h.events.Update(r.Context(), identity, id, in)
	if err != nil {
		h.mapEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Event updated successfully",
		"event":   event,
	})
}

// Delete handles DELETE /events/{id}.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.mapEventError(w, r, auth.ErrMissingToken)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeInvalidID(w, r, "event", h.env)
		return
	}

	if err := h.events.Delete(r.Context(), identity, id); err != nil {
		h.mapEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Event deleted successfully"})
}

func (h *EventsHandler) mapEventError(w http.ResponseWriter, r *http.Request, err error) {
	if writeValidation(w, r, err, h.env) {
		return
	}
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.env,
			problem.WithDetail("Access denied. No token provided."))
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.env,
			problem.WithDetail("Event not found"))
	case errors.Is(err, events.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, h.env,
			problem.WithDetail("You do not have permission to modify this event"))
	default:
		writeServerError(w, r, err, h.env)
	}
}
