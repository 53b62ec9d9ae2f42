package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/transport/http/middleware"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps responses that hand out an access token.
type AuthEnvelope struct {
	Message     string       `json:"message,omitempty"`
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user,omitempty"`
}

type PostEnvelope struct {
	Message string       `json:"message"`
	Post    *domain.Post `json:"post"`
}

type CommentEnvelope struct {
	Message string          `json:"message"`
	Comment *domain.Comment `json:"comment"`
}

type ProfileEnvelope struct {
	Message string          `json:"message,omitempty"`
	User    *domain.Profile `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrQuotaExceeded, http.StatusTooManyRequests},
}

// writeServiceError maps a service error onto a status code. The client sees
// the text the service put in front of the sentinel. Upstream failures and
// anything unrecognised are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrExternal) {
		logFailure(r, err)
		writeError(w, http.StatusBadGateway, "upstream service failure")
		return
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			writeError(w, m.status, publicMessage(err, m.err))
			return
		}
	}
	logFailure(r, err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func logFailure(r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
}

func publicMessage(err, sentinel error) string {
	if msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error()); msg != "" {
		return msg
	}
	return sentinel.Error()
}

func decodeJSON(r *http.Request, v interface{}) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// viewerID returns the authenticated user id; Auth middleware guarantees
// claims on every route that calls it.
func viewerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return claims.UserID, true
}
