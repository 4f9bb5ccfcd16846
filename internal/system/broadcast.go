package system

import (
	"time"

	"github.com/orrery/server/internal/core/event"
	coresys "github.com/orrery/server/internal/core/system"
	"github.com/orrery/server/internal/handler"
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/world"
)

// BroadcastSystem sends the simulation state to every joined client and
// flushes all session output. Phase Output.
type BroadcastSystem struct {
	world     *world.State
	store     *net.SessionStore
	every     int // ticks between snapshots
	tickCount int
	force     bool // send a snapshot this tick regardless of every
}

func NewBroadcastSystem(ws *world.State, store *net.SessionStore, bus *event.Bus, snapshotEvery int) *BroadcastSystem {
	s := &BroadcastSystem{
		world: ws,
		store: store,
		every: max(snapshotEvery, 1),
	}
	event.Subscribe(bus, func(e event.PauseChanged) {
		s.broadcast(handler.BuildState(e.Paused, ws.Sim.Len()))
	})
	event.Subscribe(bus, func(event.SimulationReset) {
		s.broadcast(handler.BuildState(ws.Paused, ws.Sim.Len()))
		s.force = true
	})
	event.Subscribe(bus, func(event.BodyAdded) {
		s.force = true
	})
	event.Subscribe(bus, func(e event.SimulationDiverged) {
		s.broadcast(handler.BuildDiverged(&physics.DivergenceError{Step: e.Step, Index: e.Index, Label: e.Label}))
	})
	return s
}

func (s *BroadcastSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *BroadcastSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.force || s.tickCount >= s.every {
		s.tickCount = 0
		s.force = false
		s.sendSnapshot()
	}
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

func (s *BroadcastSystem) sendSnapshot() {
	if !s.anyJoined() {
		return
	}
	sim := s.world.Sim
	for _, chunk := range handler.BuildSnapshots(sim.Steps(), sim.Time(), sim.Bodies()) {
		s.broadcast(chunk)
	}
	s.broadcast(handler.BuildStats(sim.Stats()))
}

// broadcast queues data for every session past the hello exchange. The
// same slice is shared; sessions never mutate what they send.
func (s *BroadcastSystem) broadcast(data []byte) {
	s.store.ForEach(func(sess *net.Session) {
		if joined(sess) {
			sess.Send(data)
		}
	})
}

func (s *BroadcastSystem) anyJoined() bool {
	found := false
	s.store.ForEach(func(sess *net.Session) {
		found = found || joined(sess)
	})
	return found
}

func joined(sess *net.Session) bool {
	st := sess.State()
	return st == packet.StateViewing || st == packet.StateControlling
}
