package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, res *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestWrite_DevIncludesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/events/1", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusInternalServerError, TypeInternal, "Internal Server Error", errors.New("boom"), "development")

	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	body := decode(t, res)
	assert.Equal(t, "boom", body.Detail)
	assert.Equal(t, "/events/1", body.Instance)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
}

func TestWrite_ProdSanitizesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/events/1", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusInternalServerError, TypeInternal, "Internal Server Error", errors.New("pq: connection refused"), "production")

	body := decode(t, res)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), body.Detail)
}

func TestWrite_ExplicitDetailAndErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://example.com/events", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusBadRequest, TypeValidation, "Validation failed", errors.New("invalid"), "production",
		WithDetail("Validation failed"),
		WithErrors(map[string]string{"title": "Event title must be between 3 and 200 characters"}),
		WithInstance("/custom"),
	)

	body := decode(t, res)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, TypeValidation, body.Type)
	assert.Equal(t, "Validation failed", body.Detail)
	assert.Equal(t, "/custom", body.Instance)
	assert.Equal(t, "Event title must be between 3 and 200 characters", body.Errors["title"])
}

func TestWriteProblem_NoErrorsFieldWhenEmpty(t *testing.T) {
	res := httptest.NewRecorder()
	WriteProblem(res, ProblemDetails{Type: TypeNotFound, Title: "Not Found", Status: http.StatusNotFound})

	var raw map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&raw))
	assert.NotContains(t, raw, "errors")
	assert.Equal(t, http.StatusNotFound, res.Code)
}
