package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sessionChain(s *Sessions, seen *SessionData) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = *SessionFromContext(r.Context())
		_, _ = w.Write([]byte("ok"))
	})
	return HTMX(s.Session(s.CSRF(final)))
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionIssuesAndReadsCookie(t *testing.T) {
	t.Parallel()

	s := NewSessions(strings.Repeat("k", 32))
	var seen SessionData
	h := sessionChain(s, &seen)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, seen.ID, 26, "session ids are ULIDs")
	require.NotEmpty(t, seen.CSRFToken)
	first := seen

	sess := cookieNamed(rec.Result().Cookies(), sessionCookieName)
	require.NotNil(t, sess)
	require.True(t, sess.HttpOnly)
	csrf := cookieNamed(rec.Result().Cookies(), csrfCookieName)
	require.NotNil(t, csrf)
	require.Equal(t, first.CSRFToken, csrf.Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sess)
	req.AddCookie(csrf)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, first.ID, seen.ID)
	require.Nil(t, cookieNamed(rec.Result().Cookies(), sessionCookieName), "unchanged session is not rewritten")

	tampered := *sess
	tampered.Value = "x" + sess.Value
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&tampered)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotEqual(t, first.ID, seen.ID)

	other := NewSessions(strings.Repeat("z", 32))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sess)
	rec = httptest.NewRecorder()
	sessionChain(other, &seen).ServeHTTP(rec, req)
	require.NotEqual(t, first.ID, seen.ID, "cookie signed with another key is ignored")
}

func TestCSRFGuardsUnsafeMethods(t *testing.T) {
	t.Parallel()

	s := NewSessions("")
	var seen SessionData
	h := sessionChain(s, &seen)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	sess := cookieNamed(rec.Result().Cookies(), sessionCookieName)
	csrf := cookieNamed(rec.Result().Cookies(), csrfCookieName)
	token := seen.CSRFToken

	post := func(form url.Values, header string, htmx bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/events/lang", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		if htmx {
			req.Header.Set("HX-Request", "true")
		}
		req.AddCookie(sess)
		req.AddCookie(csrf)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec = post(url.Values{}, "", false)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid CSRF token")

	rec = post(url.Values{}, "wrong", true)
	require.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid CSRF token", body["error"])

	require.Equal(t, http.StatusOK, post(url.Values{"_csrf": {token}}, "", false).Code)
	require.Equal(t, http.StatusOK, post(url.Values{}, token, true).Code)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	WriteError(rec, req, http.StatusNotFound, "missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "missing\n", rec.Body.String())

	req = req.WithContext(WithHTMX(req.Context(), true))
	rec = httptest.NewRecorder()
	WriteError(rec, req, http.StatusConflict, "stale")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.JSONEq(t, `{"error":"stale"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	WriteError(rec, req, http.StatusServiceUnavailable, "closed")
	require.JSONEq(t, `{"error":"closed"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHTMXMarksContextAndVaries(t *testing.T) {
	t.Parallel()

	var seen bool
	h := HTMX(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { seen = IsHTMX(r.Context()) }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "TRUE")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.True(t, seen)
	require.Equal(t, "HX-Request", rec.Header().Get("Vary"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, seen)
}

func TestResponseRecorderRunsHookOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	rec := httptest.NewRecorder()
	rw := NewResponseRecorder(rec)
	rw.SetBeforeWrite(func(w http.ResponseWriter) {
		calls++
		w.Header().Set("X-Hook", "1")
	})
	require.False(t, rw.Wrote())
	rw.WriteHeader(http.StatusAccepted)
	_, _ = rw.Write([]byte("a"))
	require.Equal(t, 1, calls)
	require.Equal(t, http.StatusAccepted, rw.Status())
	require.Equal(t, "1", rec.Header().Get("X-Hook"))
}

func TestAssetsWithCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte("body{}"), 0o644))
	h := AssetsWithCache(dir, "/assets/")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/styles.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "body{}", rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	req := httptest.NewRequest(http.MethodGet, "/assets/styles.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/missing.css", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
