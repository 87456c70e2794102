package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommandFlags(t *testing.T) {
	for _, flag := range []string{"host", "port"} {
		if f := serveCmd.Flags().Lookup(flag); f == nil {
			t.Errorf("expected flag %q to be defined on serve command", flag)
		}
	}
}

func TestServeCommandHelp(t *testing.T) {
	cmd := newServeCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Start the EventHub HTTP server")
	assert.Contains(t, buf.String(), "--port")
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Environment = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = ":memory:"
	cfg.Auth.JWTSecret = "serve-test-secret"
	cfg.AdminBootstrap = config.AdminBootstrapConfig{
		Username: "root",
		Email:    "root@example.com",
		Password: "rootpass",
	}
	return cfg
}

func TestNewApp_SQLite(t *testing.T) {
	app, err := newApp(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := strings.NewReader(`{"email":"root@example.com","password":"rootpass"}`)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "admin", session.User.Role)
}

func TestNewApp_BootstrapIsIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.Database.URL = "file:" + t.TempDir() + "/eventhub.db"

	first, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	first.Close()

	second, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	result, err := second.Accounts.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestNewApp_InvalidEmailSender(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.Email = config.EmailConfig{Enabled: true, From: "not-an-address", ResendAPIKey: "re_test"}

	_, err := newApp(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "email")
}
