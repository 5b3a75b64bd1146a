package observability

import (
	"strings"
	"unicode"
)

const (
	maxRouteRunes  = 180
	maxMethodRunes = 10
)

// clip strips control runes from a request-derived value and keeps at most
// limit runes, so one log line stays one line.
func clip(value string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range value {
		if n == limit {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// SanitizeRoute returns route fit for a log field. An empty route logs as "/".
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clip(route, maxRouteRunes)
}

// SanitizeMethod returns method fit for a log field.
func SanitizeMethod(method string) string {
	return clip(method, maxMethodRunes)
}
