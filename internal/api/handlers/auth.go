package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/api/middleware"
	"github.com/Togather-Foundation/eventhub/internal/api/problem"
	"github.com/Togather-Foundation/eventhub/internal/auth"
	"github.com/Togather-Foundation/eventhub/internal/domain/accounts"
)

// AccountService is the slice of accounts.Service the auth routes need.
type AccountService interface {
	Signup(ctx context.Context, in accounts.SignupInput) (accounts.Account, error)
	Authenticate(ctx context.Context, in accounts.LoginInput) (accounts.Account, error)
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Generate(identity auth.Identity) (string, time.Time, error)
}

type AuthHandler struct {
	accounts AccountService
	tokens   TokenIssuer
	env      string
}

func NewAuthHandler(accounts AccountService, tokens TokenIssuer, env string) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, env: env}
}

type sessionResponse struct {
	Message   string           `json:"message,omitempty"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      accounts.Account `json:"user"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in accounts.SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, r, err, h.env)
		return
	}

	account, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		h.mapAuthError(w, r, err)
		return
	}

	h.writeSession(w, r, http.StatusCreated, "User registered successfully", account)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in accounts.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, r, err, h.env)
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), in)
	if err != nil {
		h.mapAuthError(w, r, err)
		return
	}

	h.writeSession(w, r, http.StatusOK, "Login successful", account)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, h.env,
			problem.WithDetail("Access denied. No token provided."))
		return
	}

	account, err := h.accounts.Get(r.Context(), identity.AccountID)
	if err != nil {
		h.mapAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, message string, account accounts.Account) {
	token, expiresAt, err := h.tokens.Generate(account.Identity())
	if err != nil {
		writeServerError(w, r, err, h.env)
		return
	}
	writeJSON(w, status, sessionResponse{
		Message:   message,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      account,
	})
}

func (h *AuthHandler) mapAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if writeValidation(w, r, err, h.env) {
		return
	}
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, h.env,
			problem.WithDetail("An account with this email already exists"))
	case errors.Is(err, accounts.ErrUsernameTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, h.env,
			problem.WithDetail("This username is already taken"))
	case errors.Is(err, accounts.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, h.env,
			problem.WithDetail("Invalid credentials"))
	case errors.Is(err, accounts.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.env,
			problem.WithDetail("User not found"))
	default:
		writeServerError(w, r, err, h.env)
	}
}
