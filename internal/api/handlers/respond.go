package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/eventhub/internal/api/problem"
	"github.com/Togather-Foundation/eventhub/internal/validation"
)

var (
	errInvalidJSON = errors.New("invalid JSON body")
	errInvalidID   = errors.New("invalid id")
	errBodyTooBig  = errors.New("request body too large")
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errInvalidJSON
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooBig
		}
		return errInvalidJSON
	}
	if dec.More() {
		return errInvalidJSON
	}
	return nil
}

// writeDecodeError maps a decodeJSON failure to 400 or 413.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	if errors.Is(err, errBodyTooBig) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", err, env,
			problem.WithDetail("Request body exceeds the allowed size"))
		return
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Bad request", err, env,
		problem.WithDetail("Request body must be a valid JSON object"))
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(key))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

func writeInvalidID(w http.ResponseWriter, r *http.Request, what, env string) {
	problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Bad request", errInvalidID, env,
		problem.WithDetail("Invalid "+what+" ID"))
}

// writeValidation reports err as a 400 with its field map. It returns false
// when err is not a validation failure.
func writeValidation(w http.ResponseWriter, r *http.Request, err error, env string) bool {
	if !errors.Is(err, validation.ErrInvalid) {
		return false
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Validation failed", err, env,
		problem.WithDetail("Validation failed"),
		problem.WithErrors(validation.FieldErrors(err)))
	return true
}

func writeServerError(w http.ResponseWriter, r *http.Request, err error, env string) {
	problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, env)
}
