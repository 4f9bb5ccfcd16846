package net

import (
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and creates Sessions.
// New/dead sessions are communicated to the game loop via channels.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64 // session IDs of dead sessions
	opts     SessionOptions
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(bindAddr string, opts SessionOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		opts:     opts,
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine. It accepts connections, starts
// sessions, and pushes them onto the newConns channel.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.opts, s.log)
		sess.Start()

		s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("connection queue full, rejecting client")
			sess.Close()
		}
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
