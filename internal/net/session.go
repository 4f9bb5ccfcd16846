package net

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orrery/server/internal/net/packet"
	"go.uber.org/zap"
)

// SessionOptions sizes a session's queues and limits.
type SessionOptions struct {
	InQueueSize      int
	OutQueueSize     int
	PacketsPerSecond int           // 0 = unlimited
	WriteTimeout     time.Duration // 0 = no deadline
}

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads packets from here
	OutQueue chan []byte // writer goroutine reads from here

	IP   string
	Name string // set by the hello handler

	outBuf  [][]byte // buffered packets, flushed by the broadcast system (game loop only)
	closing bool     // CloseAfterFlush called (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int
	pktCount   int
	pktResetAt int64

	writeTimeout time.Duration

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, opts.InQueueSize),
		OutQueue:     make(chan []byte, opts.OutQueueSize),
		IP:           conn.RemoteAddr().String(),
		closeCh:      make(chan struct{}),
		pktPerSec:    opts.PacketsPerSecond,
		writeTimeout: opts.WriteTimeout,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateHandshake))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a packet. Nothing reaches TCP until FlushOutput.
// Game loop only.
func (s *Session) Send(data []byte) {
	if s.closed.Load() || s.closing {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected.
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow client")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// CloseAfterFlush flushes buffered output and closes the session once the
// writer has sent it, so a final S_ERROR reaches the client. Later sends are
// dropped. If OutQueue has no room the session closes at once. Game loop only.
func (s *Session) CloseAfterFlush() {
	if s.closing || s.closed.Load() {
		return
	}
	s.closing = true
	s.SetState(packet.StateDisconnecting)
	s.FlushOutput()
	select {
	case s.OutQueue <- nil:
	default:
		s.Close()
	}
}

// Close shuts down the session. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

// readLoop reads frames from the connection and pushes them onto InQueue.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		// Block rather than drop: a lost C_ADD_BODY would silently diverge
		// the client's view from the server's.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes packets from OutQueue as frames. A nil packet marks the
// end of output queued by CloseAfterFlush.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if data == nil || !s.writeOnePacket(data) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOnePacket(data []byte) bool {
	if len(data) > 0 {
		s.log.Debug("TX",
			zap.String("op", fmt.Sprintf("0x%02X", data[0])),
			zap.Int("len", len(data)),
		)
	}

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := WriteFrame(s.conn, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
