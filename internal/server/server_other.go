//go:build !linux

// The non-Linux build swaps the epoll readiness loop for a goroutine per
// connection, each doing one blocking read per iteration. Nothing about
// a conforming connection's behavior depends on the readiness mechanism:
// it only needs to serialize parse-then-reply per connection and never
// hold more than one command's worth of unread data.
package server

import (
	"fmt"
	"net"
	"sync"

	"k8s.io/klog/v2"

	"github.com/madhumita77/blinkdb-project/internal/engine"
)

const readChunkSize = 4096

// Server accepts connections on a net.Listener and serves each from its
// own goroutine.
type Server struct {
	cfg    Config
	engine *engine.Engine

	mu      sync.Mutex
	clients int
}

// New validates cfg and builds the storage engine it will serve. The
// listening socket is not created until Run.
func New(cfg Config) (*Server, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, engine: newEngine(cfg)}, nil
}

// Close stops the background flush worker and performs a final flush.
func (s *Server) Close() error {
	return s.engine.Close()
}

// Run binds the listening socket and accepts connections until an
// unrecoverable error occurs. It blocks.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	defer ln.Close()

	klog.Infof("server: listening on port %d (goroutine-per-connection fallback)", s.cfg.Port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			klog.Warningf("server: accept: %v", err)
			continue
		}

		s.mu.Lock()
		if s.clients >= maxClients {
			s.mu.Unlock()
			conn.Close()
			continue
		}
		s.clients++
		s.mu.Unlock()

		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		s.clients--
		s.mu.Unlock()
	}()

	cc := &clientConn{}
	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			return
		}

		reply := cc.feed(s.engine, buf[:n])
		if reply == nil {
			continue
		}
		if _, err := conn.Write(reply); err != nil {
			return
		}
	}
}
