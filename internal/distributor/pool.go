// Package distributor implements the round-robin backend selection used
// by the standalone connection distributor. It has no socket code of its
// own, so it can be unit-tested without a network; whatever socket
// plumbing wraps it lives in cmd/blinkdb-distributor.
package distributor

import (
	"errors"
	"sync"
)

// ErrNoBackends is returned by Pool.Next when the pool is empty.
var ErrNoBackends = errors.New("distributor: no backends configured")

// Pool picks a backend address by round-robin, one pick per incoming
// connection. It is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	backends []string
	next     int
}

// NewPool returns a Pool cycling through backends in the given order.
func NewPool(backends []string) *Pool {
	p := &Pool{backends: make([]string, len(backends))}
	copy(p.backends, backends)
	return p
}

// Next returns the next backend address in round-robin order.
func (p *Pool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.backends) == 0 {
		return "", ErrNoBackends
	}
	addr := p.backends[p.next]
	p.next = (p.next + 1) % len(p.backends)
	return addr, nil
}
