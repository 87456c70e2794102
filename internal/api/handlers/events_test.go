package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const validEventBody = `{
	"title": "Launch Party",
	"description": "Celebrating the launch",
	"category": "Social",
	"date": "2099-06-01",
	"time": "19:00",
	"location": "Rooftop",
	"price": 0,
	"expected_attendees": 50
}`

func TestEventsHandler_List(t *testing.T) {
	t.Run("parses filters and paging", func(t *testing.T) {
		svc := new(MockEventService)
		want := events.Filters{Category: "Workshop", Search: "go", Page: 2, Limit: 5}
		svc.On("List", mock.Anything, want).Return(events.ListResult{
			Events: []events.Event{{ID: 7, Title: "Go Workshop", RegisteredCount: 3, CreatorUsername: "alice"}},
			Total:  6,
		}, nil)

		rec := httptest.NewRecorder()
		NewEventsHandler(svc, testEnv).List(rec, newRequest(http.MethodGet, "/events?category=Workshop&search=go&page=2&limit=5", "", nil, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		items := body["events"].([]any)
		require.Len(t, items, 1)
		first := items[0].(map[string]any)
		assert.Equal(t, float64(3), first["registered_count"])
		assert.Equal(t, "alice", first["creator_username"])
		assert.Equal(t, map[string]any{"page": float64(2), "limit": float64(5), "total": float64(6), "pages": float64(2)}, body["pagination"])
		svc.AssertExpectations(t)
	})

	t.Run("defaults and clamps", func(t *testing.T) {
		svc := new(MockEventService)
		svc.On("List", mock.Anything, events.Filters{Category: "All", Page: 1, Limit: events.MaxPageSize}).
			Return(events.ListResult{}, nil)

		rec := httptest.NewRecorder()
		NewEventsHandler(svc, testEnv).List(rec, newRequest(http.MethodGet, "/events?category=All&limit=1000", "", nil, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, decodeBody(t, rec)["events"])
		svc.AssertExpectations(t)
	})

	for _, query := range []string{"page=0", "page=abc", "limit=-1", "page=92233720368547759&limit=100"} {
		t.Run("rejects "+query, func(t *testing.T) {
			svc := new(MockEventService)
			rec := httptest.NewRecorder()
			NewEventsHandler(svc, testEnv).List(rec, newRequest(http.MethodGet, "/events?"+query, "", nil, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		})
	}
}

func TestEventsHandler_Get(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Get", mock.Anything, int64(7)).Return(events.Event{ID: 7, Title: "Launch Party"}, nil)
	svc.On("Get", mock.Anything, int64(8)).Return(events.Event{}, events.ErrNotFound)
	h := NewEventsHandler(svc, testEnv)

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/events/7", "", nil, map[string]string{"id": "7"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Launch Party", decodeBody(t, rec)["event"].(map[string]any)["title"])

	rec = httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/events/8", "", nil, map[string]string{"id": "8"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/events/x", "", nil, map[string]string{"id": "x"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid event ID", decodeBody(t, rec)["detail"])
}

func TestEventsHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockEventService)
		svc.On("Create", mock.Anything, alice, mock.MatchedBy(func(in events.Input) bool {
			return in.Title == "Launch Party" && in.Price != nil && *in.ExpectedAttendees == 50
		})).Return(events.Event{ID: 1, Title: "Launch Party", CreatedBy: alice.AccountID}, nil)

		rec := httptest.NewRecorder()
		NewEventsHandler(svc, testEnv).Create(rec, newRequest(http.MethodPost, "/events", validEventBody, &alice, nil))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Event created successfully", decodeBody(t, rec)["message"])
		svc.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		svc := new(MockEventService)
		verrs := &validation.Errors{}
		verrs.Add("date", "Event date cannot be in the past")
		svc.On("Create", mock.Anything, alice, mock.Anything).Return(events.Event{}, verrs)

		rec := httptest.NewRecorder()
		NewEventsHandler(svc, testEnv).Create(rec, newRequest(http.MethodPost, "/events", `{"date":"2000-01-01"}`, &alice, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Event date cannot be in the past", decodeBody(t, rec)["errors"].(map[string]any)["date"])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewEventsHandler(new(MockEventService), testEnv).Create(rec, newRequest(http.MethodPost, "/events", validEventBody, nil, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestEventsHandler_UpdateAndDelete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"forbidden", events.ErrForbidden, http.StatusForbidden},
		{"missing", events.ErrNotFound, http.StatusNotFound},
		{"wrapped storage failure", fmt.Errorf("failed to update event: %w", assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run("update "+tt.name, func(t *testing.T) {
			svc := new(MockEventService)
			svc.On("Update", mock.Anything, alice, int64(3), mock.Anything).Return(events.Event{ID: 3}, tt.err)

			rec := httptest.NewRecorder()
			NewEventsHandler(svc, testEnv).Update(rec, newRequest(http.MethodPut, "/events/3", validEventBody, &alice, map[string]string{"id": "3"}))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})

		t.Run("delete "+tt.name, func(t *testing.T) {
			svc := new(MockEventService)
			svc.On("Delete", mock.Anything, alice, int64(3)).Return(tt.err)

			rec := httptest.NewRecorder()
			NewEventsHandler(svc, testEnv).Delete(rec, newRequest(http.MethodDelete, "/events/3", "", &alice, map[string]string{"id": "3"}))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestEventsHandler_UpdateBadID(t *testing.T) {
	svc := new(MockEventService)
	rec := httptest.NewRecorder()
	NewEventsHandler(svc, testEnv).Update(rec, newRequest(http.MethodPut, "/events/0", validEventBody, &alice, map[string]string{"id": "0"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEventsHandler_BodyTooLarge(t *testing.T) {
	svc := new(MockEventService)
	req := newRequest(http.MethodPost, "/events", validEventBody, &alice, nil)
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	NewEventsHandler(svc, testEnv).Create(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}
