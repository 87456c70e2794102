package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/admin"
	"github.com/Togather-Foundation/eventhub/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_Stats(t *testing.T) {
	stats := new(MockStatsService)
	stats.On("Stats", mock.Anything).Return(admin.Stats{
		TotalUsers:       3,
		TotalEvents:      2,
		EventsByCategory: map[string]int{"Social": 2},
	}, nil)

	rec := httptest.NewRecorder()
	NewAdminHandler(stats, new(MockAccountService), testEnv).
		Stats(rec, newRequest(http.MethodGet, "/admin/stats", "", &root, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["total_users"])
	assert.Equal(t, map[string]any{"Social": float64(2)}, body["events_by_category"])
}

func TestAdminHandler_ListUsers(t *testing.T) {
	svc := new(MockAccountService)
	svc.On("List", mock.Anything, defaultUsersLimit, 20).Return(accounts.ListResult{
		Accounts: []accounts.Account{{ID: 1, Username: "alice"}},
		Total:    21,
	}, nil)

	rec := httptest.NewRecorder()
	NewAdminHandler(new(MockStatsService), svc, testEnv).
		ListUsers(rec, newRequest(http.MethodGet, "/admin/users?page=2", "", &root, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["users"], 1)
	assert.Equal(t, float64(2), body["pagination"].(map[string]any)["pages"])
	svc.AssertExpectations(t)

	rec = httptest.NewRecorder()
	NewAdminHandler(new(MockStatsService), svc, testEnv).
		ListUsers(rec, newRequest(http.MethodGet, "/admin/users?limit=0", "", &root, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewAdminHandler(new(MockStatsService), svc, testEnv).
		ListUsers(rec, newRequest(http.MethodGet, "/admin/users?page=92233720368547759", "", &root, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "List", 1)
}

func TestAdminHandler_UpdateRole(t *testing.T) {
	invalidRole := &validation.Errors{}
	invalidRole.Add("role", `Invalid role. Must be "user" or "admin"`)

	tests := []struct {
		name       string
		target     string
		body       string
		err        error
		wantStatus int
	}{
		{"promoted", "1", `{"role":"admin"}`, nil, http.StatusOK},
		{"invalid role", "1", `{"role":"owner"}`, invalidRole, http.StatusBadRequest},
		{"self change", "99", `{"role":"user"}`, accounts.ErrSelfRoleChange, http.StatusBadRequest},
		{"missing user", "404", `{"role":"admin"}`, accounts.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAccountService)
			svc.On("UpdateRole", mock.Anything, root, mock.AnythingOfType("int64"), mock.AnythingOfType("string")).
				Return(accounts.Account{ID: 1, Username: "alice", Role: auth.RoleAdmin}, tt.err)

			rec := httptest.NewRecorder()
			NewAdminHandler(new(MockStatsService), svc, testEnv).
				UpdateRole(rec, newRequest(http.MethodPut, "/admin/users/"+tt.target+"/role", tt.body, &root, map[string]string{"id": tt.target}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "admin", decodeBody(t, rec)["user"].(map[string]any)["role"])
			}
		})
	}
}

func TestAdminHandler_DeleteUser(t *testing.T) {
	svc := new(MockAccountService)
	svc.On("Delete", mock.Anything, root, int64(1)).Return(nil)
	svc.On("Delete", mock.Anything, root, int64(99)).Return(accounts.ErrSelfDelete)
	h := NewAdminHandler(new(MockStatsService), svc, testEnv)

	rec := httptest.NewRecorder()
	h.DeleteUser(rec, newRequest(http.MethodDelete, "/admin/users/1", "", &root, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteUser(rec, newRequest(http.MethodDelete, "/admin/users/99", "", &root, map[string]string{"id": "99"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You cannot delete your own account", decodeBody(t, rec)["detail"])
	svc.AssertExpectations(t)
}
