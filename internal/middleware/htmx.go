package middleware

import (
	"net/http"
	"strings"
)

const hxRequestHeader = "HX-Request"

// HTMX tags the request context with whether htmx issued it. The same URL
// can answer with a page or a fragment, so responses vary on the header.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", hxRequestHeader)
		fromHTMX := strings.EqualFold(r.Header.Get(hxRequestHeader), "true")
		next.ServeHTTP(w, r.WithContext(WithHTMX(r.Context(), fromHTMX)))
	})
}
