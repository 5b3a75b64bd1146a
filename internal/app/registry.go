package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brayrpgs/portfolio/internal/i18n"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 5000
)

// Factory creates the engine for a new session.
type Factory func(lang i18n.Language) *Engine

type session struct {
	engine   *Engine
	lastSeen time.Time
}

// Registry keeps one engine per page session and evicts idle ones.
type Registry struct {
	newEngine Factory
	ttl       time.Duration
	max       int
	now       func() time.Time
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithMaxSessions caps live sessions. Creating a session beyond the cap
// evicts the least recently seen one.
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithRegistryClock overrides the time source used for idle tracking.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns an empty registry creating engines with factory.
func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		newEngine: factory,
		ttl:       defaultSessionTTL,
		max:       defaultMaxSessions,
		now:       time.Now,
		logger:    zap.NewNop(),
		sessions:  map[string]*session{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine returns the engine of session id, creating it in lang when absent.
// lang is ignored for existing sessions.
func (r *Registry) Engine(id string, lang i18n.Language) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = now
		return s.engine
	}
	for len(r.sessions) >= r.max {
		r.evictOldest()
	}
	e := r.newEngine(lang)
	r.sessions[id] = &session{engine: e, lastSeen: now}
	r.logger.Debug("session started", zap.String("session", id), zap.String("lang", string(lang)))
	return e
}

// evictOldest closes the least recently seen session. r.mu must be held.
func (r *Registry) evictOldest() {
	var (
		oldestID string
		oldest   *session
	)
	for id, s := range r.sessions {
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, s
		}
	}
	if oldest == nil {
		return
	}
	oldest.engine.Close()
	delete(r.sessions, oldestID)
	r.logger.Debug("session evicted at capacity", zap.String("session", oldestID), zap.Int("max", r.max))
}

// Sweep closes and removes sessions idle longer than the TTL. It returns the
// number evicted.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	n := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			s.engine.Close()
			delete(r.sessions, id)
			n++
		}
	}
	if n > 0 {
		r.logger.Debug("sessions evicted", zap.Int("count", n), zap.Int("remaining", len(r.sessions)))
	}
	return n
}

// Run sweeps every interval until ctx is done, then closes all sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close shuts down every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.engine.Close()
		delete(r.sessions, id)
	}
}
