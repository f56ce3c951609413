package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/cache"
	"github.com/nhiquach/white-elephant-party/internal/config"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

type errorBody struct {
	Error  string        `json:"error"`
	Reason engine.Reason `json:"reason,omitempty"`
}

// statusForReason maps engine rejections onto HTTP.
func statusForReason(r engine.Reason) int {
	switch r {
	case engine.ReasonNotFound:
		return http.StatusNotFound
	case engine.ReasonUnauthorized:
		return http.StatusForbidden
	case engine.ReasonInvalidState:
		return http.StatusConflict
	case engine.ReasonRuleViolation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError renders err; what describes the failed operation for
// unexpected errors ("Cannot steal gift").
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, what string, err error) {
	var re *engine.RejectedError
	switch {
	case errors.As(err, &re):
		writeJSON(w, statusForReason(re.Reason), errorBody{Error: what + ": " + re.Message, Reason: re.Reason})
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Party not found")
	case errors.Is(err, cache.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		writeMessage(w, http.StatusServiceUnavailable, "Party is busy, try again")
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, what)
	}
}

// decodeBody reads a size-limited JSON body into dst. An empty body leaves
// dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// cleanText trims s and checks it against limit. required rejects empty input.
func cleanText(field, s string, limit int, required bool) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" && required {
		return "", fmt.Errorf("%s required", field)
	}
	if len([]rune(s)) > limit {
		return "", fmt.Errorf("%s must be at most %d characters", field, limit)
	}
	return s, nil
}
