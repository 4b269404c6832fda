package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
	"github.com/easyref/easyref-api/internal/core/theme"
)

// Registry owns one Workspace per creator profile.
type Registry struct {
	backend ports.Backend
	policy  theme.Policy
	hooks   Hooks
	log     zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithThemePolicy sets the baseline reconciliation policy of new workspaces.
func WithThemePolicy(p theme.Policy) RegistryOption {
	return func(r *Registry) { r.policy = p }
}

func WithHooks(h Hooks) RegistryOption {
	return func(r *Registry) { r.hooks = h }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(backend ports.Backend, log zerolog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		backend: backend,
		log:     log,
		now:     time.Now,
		items:   make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the workspace of p, creating and loading it on first use,
// and feeds p into it as the latest committed profile.
func (r *Registry) Open(ctx context.Context, p domain.Profile) (*Workspace, error) {
	r.mu.Lock()
	w, ok := r.items[p.ID]
	if !ok {
		w = newWorkspace(p, r.backend, r.policy, r.hooks)
		r.items[p.ID] = w
	}
	w.touch(r.now())
	r.mu.Unlock()

	if err := w.sync(ctx, p); err != nil {
		return nil, err
	}
	return w, nil
}

// Lookup returns the workspace of profileID if it is loaded.
func (r *Registry) Lookup(profileID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[profileID]
	return w, ok
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep evicts workspaces idle for longer than maxIdle. Busy workspaces are
// kept. It returns the number evicted.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, w := range r.items {
		if w.idleSince().After(cutoff) || w.Busy() {
			continue
		}
		delete(r.items, id)
		n++
	}
	if n > 0 {
		r.log.Debug().Int("evicted", n).Int("live", len(r.items)).Msg("workspaces swept")
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(maxIdle)
		}
	}
}
