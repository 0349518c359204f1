package ble

import (
	"strings"
	"sync"
)

// Registry owns one Session per device address with explicit creation
// and teardown. Whoever manages device lifecycles holds the registry;
// there is no package-global connection state.
type Registry struct {
	adapter Adapter
	opts    SessionOptions

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry backed by the given adapter.
func NewRegistry(adapter Adapter, opts SessionOptions) *Registry {
	return &Registry{
		adapter:  adapter,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for the given address, creating it lazily.
// Addresses are case-normalized so "aa:bb..." and "AA:BB..." share one
// session.
func (r *Registry) Get(address string) *Session {
	key := normalizeAddress(address)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := NewSession(r.adapter, key, r.opts)
	r.sessions[key] = s
	return s
}

// Remove closes and forgets the session for the given address, if any.
func (r *Registry) Remove(address string) {
	key := normalizeAddress(address)

	r.mu.Lock()
	s, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if ok {
		_ = s.Close()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears down every session. The registry remains usable; closed
// sessions are forgotten so a later Get starts fresh.
func (r *Registry) Close() error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func normalizeAddress(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}
