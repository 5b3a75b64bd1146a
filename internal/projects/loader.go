package projects

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/brayrpgs/portfolio/internal/projects")

const defaultCacheTTL = 5 * time.Minute

// Loader fetches the dataset from a Source and caches the decoded collection.
// Fetch and decode failures degrade to an empty collection; they are logged,
// never returned. A failed fetch is not cached, so the next call retries.
type Loader struct {
	source Source
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	cached  []Project
	expires time.Time
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithCacheTTL sets how long a fetched collection is reused. Non-positive
// values disable caching.
func WithCacheTTL(d time.Duration) LoaderOption {
	return func(l *Loader) { l.ttl = d }
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoader builds a loader over source. A nil source always yields an empty collection.
func NewLoader(source Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		source: source,
		ttl:    defaultCacheTTL,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Projects returns the current collection.
func (l *Loader) Projects(ctx context.Context) []Project {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil && l.ttl > 0 && l.now().Before(l.expires) {
		return slices.Clone(l.cached)
	}

	out, ok := l.fetch(ctx)
	if ok {
		l.cached = out
		l.expires = l.now().Add(l.ttl)
	}
	return slices.Clone(out)
}

// Invalidate drops the cached collection.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

// fetch reports false when the source could not be read. Decode problems
// still count as a fetch: the kept entries are the dataset.
func (l *Loader) fetch(ctx context.Context) ([]Project, bool) {
	if l.source == nil {
		l.logger.Warn("dataset source not configured")
		return []Project{}, false
	}
	ctx, span := tracer.Start(ctx, "projects.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("dataset.source", l.source.String()))

	raw, err := l.source.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		l.logger.Warn("dataset unavailable", zap.String("source", l.source.String()), zap.Error(err))
		return []Project{}, false
	}
	out, err := Decode(raw)
	if err != nil {
		span.RecordError(err)
		l.logger.Warn("dataset decode problems", zap.String("source", l.source.String()), zap.Int("kept", len(out)), zap.Error(err))
	}
	if out == nil {
		out = []Project{}
	}
	span.SetAttributes(attribute.Int("dataset.projects", len(out)))
	return out, true
}
