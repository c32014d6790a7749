package call

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry holds the process-wide managers, at most one per local user and
// therefore at most one live session per user. Managers are created lazily:
// on first API contact or on the first inbound signal addressed to a user.
type Registry struct {
	deps Deps
	cfg  Config

	mu       sync.Mutex
	managers map[uuid.UUID]*Manager
}

func NewRegistry(deps Deps, cfg Config) *Registry {
	return &Registry{
		deps:     deps,
		cfg:      cfg,
		managers: make(map[uuid.UUID]*Manager),
	}
}

// For returns the manager bound to userID, creating it if needed. A display
// name observed here backfills a manager created earlier by an inbound
// signal, which only knows the user's id.
func (r *Registry) For(userID uuid.UUID, name string) *Manager {
	r.mu.Lock()
	m, ok := r.managers[userID]
	if !ok {
		m = NewManager(userID, name, r.deps, r.cfg)
		r.managers[userID] = m
	}
	r.mu.Unlock()
	if ok {
		m.ensureName(name)
	}
	return m
}

// Dispatch routes an inbound signal to the addressed user's manager.
func (r *Registry) Dispatch(ctx context.Context, sig Signal) error {
	return r.For(sig.To, "").Dispatch(ctx, sig)
}
