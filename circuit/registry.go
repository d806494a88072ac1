package circuit

import (
	"sync"
	"time"
)

// TransitionFn is invoked on every breaker state change.
type TransitionFn func(endpointKey string, from, to State)

// Registry owns the per-endpoint breakers. Breakers are created lazily on
// first use; all access goes through get-or-create under the registry lock,
// never through ambient globals.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	now      func() time.Time
	breakers map[string]*Breaker
	onChange TransitionFn
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock injects a time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithTransitionHook registers a callback fired on every state change
// (used to feed metrics and logs).
func WithTransitionHook(fn TransitionFn) Option {
	return func(r *Registry) { r.onChange = fn }
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(cfg Config, opts ...Option) *Registry {
	r := &Registry{
		cfg:      cfg,
		now:      time.Now,
		breakers: make(map[string]*Breaker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the breaker for an endpoint key, creating it if needed.
func (r *Registry) Get(endpointKey string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[endpointKey]
	if !ok {
		b = NewBreaker(r.cfg, r.now)
		if r.onChange != nil {
			key := endpointKey
			hook := r.onChange
			b.onTransition = func(from, to State) { hook(key, from, to) }
		}
		r.breakers[endpointKey] = b
	}
	return b
}

// Allow reports whether an attempt to the endpoint may proceed, and whether
// it was admitted as the half-open probe.
func (r *Registry) Allow(endpointKey string) (allowed, probe bool) {
	return r.Get(endpointKey).Allow()
}

// RecordSuccess reports a successful delivery to the endpoint.
func (r *Registry) RecordSuccess(endpointKey string) {
	r.Get(endpointKey).RecordSuccess()
}

// RecordFailure reports a retryable delivery failure to the endpoint.
func (r *Registry) RecordFailure(endpointKey string) {
	r.Get(endpointKey).RecordFailure()
}

// Reset discards the breaker for an endpoint, returning it to CLOSED on
// next use. Exposed for operators.
func (r *Registry) Reset(endpointKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, endpointKey)
}

// Snapshot returns a copy of every breaker's state, keyed by endpoint.
func (r *Registry) Snapshot() map[string]Snapshot {
	r.mu.Lock()
	keys := make([]string, 0, len(r.breakers))
	bs := make([]*Breaker, 0, len(r.breakers))
	for k, b := range r.breakers {
		keys = append(keys, k)
		bs = append(bs, b)
	}
	r.mu.Unlock()

	out := make(map[string]Snapshot, len(keys))
	for i, b := range bs {
		out[keys[i]] = b.Snapshot()
	}
	return out
}
