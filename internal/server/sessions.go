package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/engine"
)

var errSessionUnknown = errors.New("unknown session")

// registry tracks the live editing sessions this process owns. Each
// entry is an independent engine; nothing is shared between them.
type registry struct {
	mu      sync.Mutex
	engines map[uuid.UUID]*engine.Engine
}

func newRegistry() *registry {
	return &registry{engines: make(map[uuid.UUID]*engine.Engine)}
}

func (r *registry) add(e *engine.Engine) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.engines[id] = e
	return id
}

func (r *registry) get(id uuid.UUID) (*engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[id]
	if !ok {
		return nil, errSessionUnknown
	}
	return e, nil
}

func (r *registry) remove(id uuid.UUID) (*engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[id]
	if !ok {
		return nil, errSessionUnknown
	}
	delete(r.engines, id)
	return e, nil
}
