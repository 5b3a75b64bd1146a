package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brayrpgs/portfolio/internal/i18n"
	"github.com/brayrpgs/portfolio/internal/projects"
	"github.com/brayrpgs/portfolio/internal/render"
)

const instrumentationName = "github.com/brayrpgs/portfolio/internal/app"

var tracer = otel.Tracer(instrumentationName)

// Trigger identifies an event kind in the dispatch table.
type Trigger string

const (
	TriggerLanguage Trigger = "lang.toggle"
	TriggerFilter   Trigger = "filter.select"
	TriggerNext     Trigger = "carousel.next"
	TriggerPrevious Trigger = "carousel.prev"
	TriggerLoaded   Trigger = "dataset.loaded"
)

var (
	// ErrClosed is returned by an engine that has been shut down.
	ErrClosed = errors.New("app: engine closed")
	// ErrUnknownTrigger is returned for an event with no registered handler.
	ErrUnknownTrigger = errors.New("app: unknown trigger")
	// ErrNoCarousel is returned when navigating a card without images.
	ErrNoCarousel = render.ErrNoCarousel
)

// Event is one input to the engine.
type Event struct {
	Trigger Trigger
	// Value is the selected filter value for filter.select.
	Value string
	// Card and Pass address a card for carousel events. An empty Pass skips
	// the stale-pass check.
	Card int
	Pass string
	// Projects is the dataset.loaded payload.
	Projects []projects.Project
}

// Snapshot is the state visible to a view callback. It is only valid for
// the duration of the callback.
type Snapshot struct {
	Page   *render.Page
	Card   *render.Card
	Lang   i18n.Language
	Filter string
	Loaded bool
	// Technologies is derived from the loaded dataset only.
	Technologies projects.Set
	// Visible is the filtered project list in dataset order.
	Visible []projects.Project
}

// ViewFunc reads a snapshot on the engine loop, after the event's handler
// and before the next event.
type ViewFunc func(Snapshot) error

// Handler applies one event to the engine's state and page. It returns the
// card the event addressed, if any.
type Handler func(ctx context.Context, ev Event) (*render.Card, error)

// DatasetLoader fetches the project dataset. It never fails; unavailable data
// is an empty collection.
type DatasetLoader interface {
	Projects(ctx context.Context) []projects.Project
}

// LoaderFunc adapts a function to DatasetLoader.
type LoaderFunc func(ctx context.Context) []projects.Project

func (f LoaderFunc) Projects(ctx context.Context) []projects.Project { return f(ctx) }

type request struct {
	ctx  context.Context
	ev   Event
	read bool
	view ViewFunc
	errc chan error
}

// Engine owns one session's state and page. Events are handled one at a time
// on the engine's loop goroutine.
type Engine struct {
	state    *State
	page     *render.Page
	orch     *render.Orchestrator
	handlers map[Trigger]Handler

	logger     *zap.Logger
	dispatched metric.Int64Counter

	events    chan request
	loaded    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine builds the startup page in lang and starts the event loop.
func NewEngine(orch *render.Orchestrator, lang i18n.Language, opts ...EngineOption) *Engine {
	e := &Engine{
		state:  NewState(lang),
		orch:   orch,
		logger: zap.NewNop(),
		events: make(chan request),
		loaded: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.page = orch.NewPage(e.state.Language())
	e.page.Loading = true
	e.handlers = map[Trigger]Handler{
		TriggerLanguage: e.toggleLanguage,
		TriggerFilter:   e.selectFilter,
		TriggerNext:     e.nextImage,
		TriggerPrevious: e.previousImage,
		TriggerLoaded:   e.loadProjects,
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"portfolio.events.dispatched",
		metric.WithDescription("Events handled by session engines."),
	)
	if err != nil {
		e.logger.Warn("dispatch counter unavailable", zap.Error(err))
	}
	e.dispatched = counter
	go e.loop()
	return e
}

// Start fetches the dataset in the background and posts dataset.loaded. The
// returned channel yields the dispatch result once and is then closed.
func (e *Engine) Start(ctx context.Context, loader DatasetLoader) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		ps := loader.Projects(ctx)
		err := e.Dispatch(ctx, Event{Trigger: TriggerLoaded, Projects: ps}, nil)
		if err != nil {
			e.logger.Debug("dataset not delivered", zap.Error(err))
		}
		result <- err
	}()
	return result
}

// Loaded is closed once the first dataset.loaded event has been applied.
func (e *Engine) Loaded() <-chan struct{} { return e.loaded }

// WaitLoaded blocks until the dataset has been applied, the engine closes, or
// ctx is done.
func (e *Engine) WaitLoaded(ctx context.Context) error {
	select {
	case <-e.loaded:
		return nil
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch hands ev to the loop and waits for its handler to finish. When
// view is non-nil it runs on the loop right after the handler succeeds.
func (e *Engine) Dispatch(ctx context.Context, ev Event, view ViewFunc) error {
	return e.submit(ctx, request{ctx: ctx, ev: ev, view: view})
}

// View runs view on the loop without changing state.
func (e *Engine) View(ctx context.Context, view ViewFunc) error {
	return e.submit(ctx, request{ctx: ctx, read: true, view: view})
}

// Close stops the loop. Pending and later calls return ErrClosed.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}

func (e *Engine) submit(ctx context.Context, r request) error {
	r.errc = make(chan error, 1)
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	select {
	case e.events <- r:
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// the loop always answers a request it has received
	return <-r.errc
}

func (e *Engine) loop() {
	for {
		select {
		case r := <-e.events:
			r.errc <- e.handle(r)
		case <-e.done:
			return
		}
	}
}

func (e *Engine) handle(r request) error {
	if r.read {
		if r.view == nil {
			return nil
		}
		return r.view(e.snapshot(nil))
	}

	ctx, span := tracer.Start(r.ctx, "app.dispatch",
		trace.WithAttributes(attribute.String("portfolio.trigger", string(r.ev.Trigger))))
	defer span.End()

	h, ok := e.handlers[r.ev.Trigger]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownTrigger, r.ev.Trigger)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if e.dispatched != nil {
		e.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", string(r.ev.Trigger))))
	}

	card, err := h(ctx, r.ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug("event rejected", zap.String("trigger", string(r.ev.Trigger)), zap.Error(err))
		return err
	}
	if r.view == nil {
		return nil
	}
	return r.view(e.snapshot(card))
}

func (e *Engine) snapshot(card *render.Card) Snapshot {
	return Snapshot{
		Page:         e.page,
		Card:         card,
		Lang:         e.state.Language(),
		Filter:       e.state.Filter().Value(),
		Loaded:       e.state.Loaded(),
		Technologies: e.state.Technologies(),
		Visible:      e.state.Visible(),
	}
}

// rerender is the full pass run after a dataset or filter change.
func (e *Engine) rerender() {
	e.orch.RenderProjects(e.page, e.state.Visible(), e.state.Filter(), e.state.Technologies())
}

func (e *Engine) loadProjects(_ context.Context, ev Event) (*render.Card, error) {
	first := !e.state.Loaded()
	e.state.LoadProjects(ev.Projects)
	e.rerender()
	if first {
		e.page.Loading = false
		close(e.loaded)
	}
	e.logger.Debug("dataset loaded", zap.Int("projects", len(ev.Projects)))
	return nil, nil
}

func (e *Engine) selectFilter(_ context.Context, ev Event) (*render.Card, error) {
	e.state.SelectFilter(ev.Value)
	e.rerender()
	return nil, nil
}

// toggleLanguage runs the partial pass: text only, cards and carousels stay.
func (e *Engine) toggleLanguage(_ context.Context, _ Event) (*render.Card, error) {
	e.orch.Localize(e.page, e.state.ToggleLanguage())
	return nil, nil
}

func (e *Engine) nextImage(_ context.Context, ev Event) (*render.Card, error) {
	card, err := e.page.Card(ev.Pass, ev.Card)
	if err != nil {
		return nil, err
	}
	return card, card.Next()
}

func (e *Engine) previousImage(_ context.Context, ev Event) (*render.Card, error) {
	card, err := e.page.Card(ev.Pass, ev.Card)
	if err != nil {
		return nil, err
	}
	return card, card.Previous()
}
