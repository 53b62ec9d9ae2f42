package middleware

import (
	"encoding/json"
	"net/http"
)

// reject ends the request with {"error": msg}. Unauthorized responses carry
// a Bearer challenge.
func reject(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
