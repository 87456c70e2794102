package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/eventhub/internal/api/middleware"
	"github.com/Togather-Foundation/eventhub/internal/api/pagination"
	"github.com/Togather-Foundation/eventhub/internal/api/problem"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
	"github.com/Togather-Foundation/eventhub/internal/domain/admin"
)

const (
	defaultUsersLimit = 20
	maxUsersLimit     = 100
)

type StatsService interface {
	Stats(ctx context.Context) (admin.Stats, error)
}

// AccountAdminService is the slice of accounts.Service behind /admin/users.
type AccountAdminService interface {
	List(ctx context.Context, limit, offset int) (accounts.ListResult, error)
	UpdateRole(ctx context.Context, actor auth.Identity, id int64, role string) (accounts.Account, error)
	Delete(ctx context.Context, actor auth.Identity, id int64) error
}

// AdminHandler serves the admin dashboard and user management routes. The
// router mounts it behind RequireRole(admin).
type AdminHandler struct {
	stats    StatsService
	accounts AccountAdminService
	env      string
}

func NewAdminHandler(stats StatsService, accounts AccountAdminService, env string) *AdminHandler {
	return &AdminHandler{stats: stats, accounts: accounts, env: env}
}

type userListResponse struct {
	Users      []accounts.Account  `json:"users"`
	Pagination pagination.Envelope `json:"pagination"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.mapAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query(), defaultUsersLimit, maxUsersLimit)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Bad request", err, h.env,
			problem.WithDetail(err.Error()))
		return
	}

	result, err := h.accounts.List(r.Context(), page.Limit, page.Offset())
	if err != nil {
		h.mapAdminError(w, r, err)
		return
	}

	users := result.Accounts
	if users == nil {
		users = []accounts.Account{}
	}
	writeJSON(w, http.StatusOK, userListResponse{
		Users:      users,
		Pagination: pagination.NewEnvelope(page, result.Total),
	})
}

// UpdateRole handles PUT /admin/users/{id}/role.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.mapAdminError(w, r, auth.ErrMissingToken)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeInvalidID(w, r, "user", h.env)
		return
	}

	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.env)
		return
	}

	account, err := h.accounts.UpdateRole(r.Context(), identity, id, req.Role)
	if err != nil {
		h.mapAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User role updated successfully",
		"user":    account,
	})
}

// DeleteUser handles DELETE /admin/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.mapAdminError(w, r, auth.ErrMissingToken)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeInvalidID(w, r, "user", h.env)
		return
	}

	if err := h.accounts.Delete(r.Context(), identity, id); err != nil {
		h.mapAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted successfully"})
}

func (h *AdminHandler) mapAdminError(w http.ResponseWriter, r *http.Request, err error) {
	if writeValidation(w, r, err, h.env) {
		return
	}
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.env,
			problem.WithDetail("Access denied. No token provided."))
	case errors.Is(err, accounts.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.env,
			problem.WithDetail("User not found"))
	case errors.Is(err, accounts.ErrSelfDelete):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeInvalidState, "Bad request", err, h.env,
			problem.WithDetail("You cannot delete your own account"))
	case errors.Is(err, accounts.ErrSelfRoleChange):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeInvalidState, "Bad request", err, h.env,
			problem.WithDetail("You cannot change your own role"))
	default:
		writeServerError(w, r, err, h.env)
	}
}
