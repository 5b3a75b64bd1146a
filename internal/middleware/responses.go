package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteError reports a failed request. htmx swaps and JSON clients get
// {"error": msg}; form posts and browsers get plain text.
func WriteError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if !wantsJSON(r) {
		http.Error(w, msg, code)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func wantsJSON(r *http.Request) bool {
	if IsHTMX(r.Context()) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
