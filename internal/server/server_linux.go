//go:build linux

// Package server's Linux build drives a single-threaded, level-triggered
// epoll loop directly over raw sockets: one epoll instance covers the
// listening socket and every accepted client socket, and the loop never
// blocks anywhere except inside epoll_wait itself.
package server

import (
	"fmt"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"github.com/madhumita77/blinkdb-project/internal/engine"
)

const (
	maxEvents     = 1024
	readChunkSize = 4096
)

// Server is the epoll-driven connection server. It owns the listening
// socket, the epoll instance, and one clientConn per accepted connection.
type Server struct {
	cfg    Config
	engine *engine.Engine

	listenFD int
	epollFD  int
	conns    map[int]*clientConn
}

// New validates cfg, builds the storage engine it will serve, and
// prepares a Server. The listening socket and epoll instance are not
// created until Run.
func New(cfg Config) (*Server, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:    cfg,
		engine: newEngine(cfg),
		conns:  make(map[int]*clientConn),
	}, nil
}

// Close stops the background flush worker and performs a final flush.
func (s *Server) Close() error {
	return s.engine.Close()
}

// Run binds the listening socket, creates the epoll instance, and drives
// the event loop until an unrecoverable error occurs. It blocks.
func (s *Server) Run() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("server: socket: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("server: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fmt.Errorf("server: SO_REUSEPORT: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: s.cfg.Port}); err != nil {
		return fmt.Errorf("server: bind :%d: %w", s.cfg.Port, err)
	}
	if err := unix.Listen(fd, ListenBacklog); err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("server: set listener non-blocking: %w", err)
	}
	s.listenFD = fd

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("server: epoll_create1: %w", err)
	}
	defer unix.Close(epfd)
	s.epollFD = epfd

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}); err != nil {
		return fmt.Errorf("server: epoll_ctl add listener: %w", err)
	}

	klog.Infof("server: listening on port %d (epoll)", s.cfg.Port)

	events := make([]unix.EpollEvent, maxEvents)
	for {
		n, err := unix.EpollWait(epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("server: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			evFD := int(events[i].Fd)
			if evFD == fd {
				s.acceptAll()
				continue
			}
			s.handleReadable(evFD)
		}
	}
}

// acceptAll drains the accept queue: the listening socket is
// level-triggered, so every readable event may represent more than one
// pending connection.
func (s *Server) acceptAll() {
	for {
		connFD, _, err := unix.Accept(s.listenFD)
		if err != nil {
			if err != unix.EAGAIN {
				klog.Warningf("server: accept: %v", err)
			}
			return
		}

		if len(s.conns) >= maxClients {
			unix.Close(connFD)
			continue
		}
		if err := unix.SetNonblock(connFD, true); err != nil {
			klog.Warningf("server: set client non-blocking: %v", err)
			unix.Close(connFD)
			continue
		}
		if err := unix.EpollCtl(s.epollFD, unix.EPOLL_CTL_ADD, connFD, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(connFD)}); err != nil {
			klog.Warningf("server: epoll_ctl add client: %v", err)
			unix.Close(connFD)
			continue
		}
		s.conns[connFD] = &clientConn{}
	}
}

// handleReadable reads once from fd, feeds the bytes to its clientConn,
// and writes back any reply. One read per readable event; the buffering
// that lets a command span multiple reads lives in clientConn.feed, not
// here.
func (s *Server) handleReadable(fd int) {
	conn, ok := s.conns[fd]
	if !ok {
		return
	}

	buf := make([]byte, readChunkSize)
	n, err := unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		s.closeConn(fd)
		return
	}
	if n == 0 {
		s.closeConn(fd)
		return
	}

	reply := conn.feed(s.engine, buf[:n])
	if reply == nil {
		return
	}
	if err := writeAll(fd, reply); err != nil {
		s.closeConn(fd)
	}
}

func (s *Server) closeConn(fd int) {
	unix.EpollCtl(s.epollFD, unix.EPOLL_CTL_DEL, fd, nil)
	unix.Close(fd)
	delete(s.conns, fd)
}

func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}
