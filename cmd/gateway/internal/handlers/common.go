package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mindsage/analyzer/internal/auth"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("user_id does not match the authenticated user")
)

func sendJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, message string, code int) {
	sendJSON(w, code, map[string]string{
		"error": message,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// resolveUser reconciles a user id supplied by the client with the
// authenticated caller. An empty requested id means the caller. Development
// callers may name any user.
func resolveUser(r *http.Request, requested string) (string, int, error) {
	userCtx, ok := auth.UserFromContext(r.Context())
	if !ok {
		return "", http.StatusUnauthorized, errUnauthorized
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return userCtx.UserID, 0, nil
	}
	if requested != userCtx.UserID && userCtx.TokenType != auth.TokenTypeDev {
		return "", http.StatusForbidden, errForbidden
	}
	return requested, 0, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
