// Package handlers exposes the session engines over HTTP. Full page loads
// get the whole document; htmx events get the swapped fragment back.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brayrpgs/portfolio/internal/app"
	"github.com/brayrpgs/portfolio/internal/i18n"
	"github.com/brayrpgs/portfolio/internal/middleware"
	"github.com/brayrpgs/portfolio/internal/observability"
	"github.com/brayrpgs/portfolio/internal/projects"
	"github.com/brayrpgs/portfolio/internal/render"
)

const defaultLoadWait = 5 * time.Second

// Handlers serves the portfolio page and its event endpoints.
type Handlers struct {
	registry *app.Registry
	tmpl     *render.Templates
	loadWait time.Duration
}

// Option customises Handlers.
type Option func(*Handlers)

// WithLoadWait bounds how long a read waits for a new session's dataset.
// Pages served before it arrives poll until it does.
func WithLoadWait(d time.Duration) Option {
	return func(h *Handlers) {
		if d > 0 {
			h.loadWait = d
		}
	}
}

// New returns handlers backed by registry.
func New(registry *app.Registry, tmpl *render.Templates, opts ...Option) *Handlers {
	h := &Handlers{registry: registry, tmpl: tmpl, loadWait: defaultLoadWait}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the page, event, and API endpoints on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/api/projects", h.Projects)
	r.Route("/events", func(r chi.Router) {
		r.Post("/lang", h.ToggleLanguage)
		r.Post("/filter", h.SelectFilter)
		r.Post("/cards/{card}/next", h.carousel(app.TriggerNext))
		r.Post("/cards/{card}/prev", h.carousel(app.TriggerPrevious))
	})
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Home renders the whole document for the session.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	csrf := middleware.SessionFromContext(r.Context()).CSRFToken
	e, err := h.loadedEngine(r)
	if err == nil {
		err = e.View(r.Context(), func(s app.Snapshot) error {
			return h.tmpl.Page(s.Page, csrf).Render(r.Context(), &buf)
		})
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeHTML(w, &buf)
}

// ToggleLanguage switches the session to the other language.
func (h *Handlers) ToggleLanguage(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, app.Event{Trigger: app.TriggerLanguage}, h.mainFragment(r))
}

// SelectFilter applies the technology posted in the tech field.
func (h *Handlers) SelectFilter(w http.ResponseWriter, r *http.Request) {
	ev := app.Event{Trigger: app.TriggerFilter, Value: r.PostFormValue("tech")}
	h.dispatch(w, r, ev, h.mainFragment(r))
}

func (h *Handlers) carousel(trigger app.Trigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "card"))
		if err != nil || index < 0 {
			middleware.WriteError(w, r, http.StatusBadRequest, "invalid card")
			return
		}
		ev := app.Event{Trigger: trigger, Card: index, Pass: r.PostFormValue("pass")}
		csrf := middleware.SessionFromContext(r.Context()).CSRFToken
		h.dispatch(w, r, ev, func(s app.Snapshot) templ.Component {
			return h.tmpl.Carousel(s.Card, csrf)
		})
	}
}

type projectsResponse struct {
	Lang         string             `json:"lang"`
	Filter       string             `json:"filter"`
	Loaded       bool               `json:"loaded"`
	Technologies []string           `json:"technologies"`
	Projects     []projects.Project `json:"projects"`
}

// Projects returns the session's visible projects as JSON.
func (h *Handlers) Projects(w http.ResponseWriter, r *http.Request) {
	var resp projectsResponse
	e, err := h.loadedEngine(r)
	if err == nil {
		err = e.View(r.Context(), func(s app.Snapshot) error {
			resp = projectsResponse{
				Lang:         string(s.Lang),
				Filter:       s.Filter,
				Loaded:       s.Loaded,
				Technologies: techValues(s),
				Projects:     s.Visible,
			}
			return nil
		})
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

func techValues(s app.Snapshot) []string {
	out := s.Technologies.Sorted()
	if out == nil {
		out = []string{}
	}
	return out
}

func (h *Handlers) mainFragment(r *http.Request) func(app.Snapshot) templ.Component {
	csrf := middleware.SessionFromContext(r.Context()).CSRFToken
	return func(s app.Snapshot) templ.Component { return h.tmpl.Main(s.Page, csrf) }
}

// dispatch runs ev on the session engine. htmx requests get the fragment
// rendered on the engine loop; plain form posts are sent back to the page.
func (h *Handlers) dispatch(w http.ResponseWriter, r *http.Request, ev app.Event, fragment func(app.Snapshot) templ.Component) {
	htmx := middleware.IsHTMX(r.Context())
	var buf bytes.Buffer
	var view app.ViewFunc
	if htmx {
		view = func(s app.Snapshot) error {
			return fragment(s).Render(r.Context(), &buf)
		}
	}
	if err := h.engine(r).Dispatch(r.Context(), ev, view); err != nil {
		if !htmx && staleState(err) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h.fail(w, r, err)
		return
	}
	if !htmx {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeHTML(w, &buf)
}

// engine returns the session's engine. New sessions start in the primary language.
func (h *Handlers) engine(r *http.Request) *app.Engine {
	sd := middleware.SessionFromContext(r.Context())
	return h.registry.Engine(sd.ID, i18n.Primary)
}

// loadedEngine returns the session's engine once its dataset has been
// applied, or after loadWait. A page rendered before then polls for the
// finished one.
func (h *Handlers) loadedEngine(r *http.Request) (*app.Engine, error) {
	e := h.engine(r)
	ctx, cancel := context.WithTimeout(r.Context(), h.loadWait)
	defer cancel()
	err := e.WaitLoaded(ctx)
	switch {
	case err == nil:
		return e, nil
	case errors.Is(err, app.ErrClosed), r.Context().Err() != nil:
		return nil, err
	}
	observability.FromContext(r.Context()).Debug("dataset still loading", zap.Duration("waited", h.loadWait))
	return e, nil
}

// staleState reports errors caused by a page older than the session state.
func staleState(err error) bool {
	return errors.Is(err, render.ErrStalePass) || errors.Is(err, render.ErrNoCard) || errors.Is(err, app.ErrNoCarousel)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, render.ErrStalePass), errors.Is(err, app.ErrNoCarousel):
		status = http.StatusConflict
	case errors.Is(err, render.ErrNoCard):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrUnknownTrigger):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrClosed), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	logger := observability.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("event failed", zap.Error(err))
	} else {
		logger.Debug("event rejected", zap.Int("status", status), zap.Error(err))
	}
	middleware.WriteError(w, r, status, http.StatusText(status))
}

func writeHTML(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
