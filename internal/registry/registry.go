package registry

import (
	"sync"

	"github.com/mediware/smart-health-backend/internal/domain"
)

// Registry is the in-memory set of registered device tokens. It is owned by
// the composition root, starts empty, and only grows for the life of the
// process; there is no unregister or expiry path.
type Registry struct {
	mu     sync.RWMutex
	seen   map[string]struct{}
	tokens []string
}

func New() *Registry {
	return &Registry{
		seen: make(map[string]struct{}),
	}
}

// Register adds a token if absent. Registering an already-known token is a
// no-op, not an error. An empty token is rejected.
func (r *Registry) Register(token string) error {
	if token == "" {
		return domain.ErrNoToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[token]; ok {
		return nil
	}

	r.seen[token] = struct{}{}
	r.tokens = append(r.tokens, token)
	return nil
}

// List returns a snapshot of the registered tokens in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.tokens))
	copy(out, r.tokens)
	return out
}

// Len reports the number of distinct registered tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
