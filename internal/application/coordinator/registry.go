package coordinator

import (
	"context"
	"sync"
	"time"

	"carbonmarket/internal/metrics"

	"github.com/rs/zerolog/log"
)

// StoreFactory binds a session store to one browser session id.
type StoreFactory func(sessionID string) SessionStore

// Registry holds one Coordinator per browser session.
type Registry struct {
	deps     Deps
	newStore StoreFactory

	mu    sync.Mutex
	items map[string]*Coordinator
}

// NewRegistry builds a registry. deps.Store is ignored; every coordinator gets newStore(id).
func NewRegistry(deps Deps, newStore StoreFactory) *Registry {
	return &Registry{deps: deps, newStore: newStore, items: make(map[string]*Coordinator)}
}

// Get returns the coordinator for sessionID, creating and starting it on first access.
func (r *Registry) Get(ctx context.Context, sessionID string) *Coordinator {
	r.mu.Lock()
	c, ok := r.items[sessionID]
	if !ok {
		d := r.deps
		d.Store = r.newStore(sessionID)
		c = New(d)
		r.items[sessionID] = c
		metrics.SetActiveSessions(len(r.items))
	}
	r.mu.Unlock()

	c.Start(ctx)
	c.touch()
	return c
}

// Drop forgets the coordinator for sessionID. The persisted session is not touched.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.items, sessionID)
	metrics.SetActiveSessions(len(r.items))
	r.mu.Unlock()
}

// Sweep drops coordinators idle for longer than maxIdle and returns how many went.
// A dropped session is restored from its store on the next request.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, c := range r.items {
		if !c.idleSince().After(cutoff) && !c.inflight.Load() {
			delete(r.items, id)
			n++
		}
	}
	metrics.SetActiveSessions(len(r.items))
	if n > 0 {
		log.Info().Int("dropped", n).Int("remaining", len(r.items)).Msg("session sweep")
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
