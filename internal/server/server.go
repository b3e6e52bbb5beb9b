package server

import (
	"github.com/madhumita77/blinkdb-project/internal/engine"
	"github.com/madhumita77/blinkdb-project/internal/persistence"
)

// newEngine builds the storage engine a Server serves, shared between
// the epoll-based Linux implementation (server_linux.go) and the
// goroutine-per-connection fallback (server_other.go).
func newEngine(cfg Config) *engine.Engine {
	return engine.New(engine.Config{
		Capacity:      cfg.Capacity,
		FlushInterval: cfg.FlushInterval,
		Log:           persistence.NewLog(cfg.DataFile),
	})
}
