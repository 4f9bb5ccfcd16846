package system

import (
	"time"

	coresys "github.com/orrery/server/internal/core/system"
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"go.uber.org/zap"
)

// SessionSource hands new and dead sessions to the game loop. Implemented by
// net.Server.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
	NotifyDead(id uint64)
}

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase Input.
type InputSystem struct {
	source     SessionSource
	registry   *packet.Registry
	store      *net.SessionStore
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(source SessionSource, registry *packet.Registry, store *net.SessionStore, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		source:     source,
		registry:   registry,
		store:      store,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	s.acceptNew()
	s.reapDead()

	var closed []*net.Session
	s.store.ForEach(func(sess *net.Session) {
		s.drain(sess)
		if sess.IsClosed() {
			closed = append(closed, sess)
		}
	})
	for _, sess := range closed {
		s.store.Remove(sess.ID)
		s.source.NotifyDead(sess.ID)
		s.log.Info("client disconnected",
			zap.Uint64("session", sess.ID),
			zap.String("name", sess.Name),
			zap.Int("online", s.store.Count()),
		)
	}
}

func (s *InputSystem) acceptNew() {
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
		default:
			return
		}
	}
}

func (s *InputSystem) reapDead() {
	for {
		select {
		case id := <-s.source.DeadSessions():
			s.store.Remove(id)
		default:
			return
		}
	}
}

// drain dispatches up to maxPerTick queued packets. Packets already queued
// by a session that has since closed are still applied.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("dispatch failed",
					zap.Uint64("session", sess.ID),
					zap.Error(err),
				)
			}
		default:
			return
		}
	}
}
