package system

import (
	"math"
	"time"

	"github.com/orrery/server/internal/core/event"
	coresys "github.com/orrery/server/internal/core/system"
	"github.com/orrery/server/internal/world"
	"go.uber.org/zap"
)

// PhysicsSystem advances the simulation. Phase Update.
//
// While running it takes stepsPerTick steps each tick. While paused it takes
// at most one step per tick, and only when one was requested.
type PhysicsSystem struct {
	world        *world.State
	bus          *event.Bus
	stepsPerTick int
	diagEvery    int // ticks between energy logs, 0 = off
	log          *zap.Logger

	tickCount int
	baseline  float64 // total energy at the first diagnostic since reset
	haveBase  bool
}

func NewPhysicsSystem(ws *world.State, bus *event.Bus, stepsPerTick, diagEvery int, log *zap.Logger) *PhysicsSystem {
	s := &PhysicsSystem{
		world:        ws,
		bus:          bus,
		stepsPerTick: max(stepsPerTick, 1),
		diagEvery:    diagEvery,
		log:          log,
	}
	event.Subscribe(bus, func(event.SimulationReset) { s.haveBase = false })
	return s
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PhysicsSystem) Update(_ time.Duration) {
	sim := s.world.Sim
	switch {
	case !s.world.Paused:
		for i := 0; i < s.stepsPerTick; i++ {
			sim.Step()
		}
	case s.world.TakeStep():
		sim.Step()
	}

	if d := s.world.NewDivergence(); d != nil {
		s.log.Warn("simulation diverged",
			zap.Uint64("step", d.Step),
			zap.Int("body", d.Index),
			zap.String("label", d.Label),
		)
		event.Emit(s.bus, event.SimulationDiverged{Epoch: s.world.Epoch(), Step: d.Step, Index: d.Index, Label: d.Label})
	}

	if s.diagEvery > 0 {
		s.tickCount++
		if s.tickCount >= s.diagEvery {
			s.tickCount = 0
			s.logDiagnostics()
		}
	}
}

func (s *PhysicsSystem) logDiagnostics() {
	sim := s.world.Sim
	st := sim.Stats()
	total := st.Total()
	if !s.haveBase {
		s.baseline, s.haveBase = total, true
	}
	drift := 0.0
	if s.baseline != 0 {
		drift = (total - s.baseline) / math.Abs(s.baseline)
	}
	s.log.Info("energy",
		zap.Uint64("step", sim.Steps()),
		zap.Int("bodies", sim.Len()),
		zap.Float64("kinetic", st.Kinetic),
		zap.Float64("potential", st.Potential),
		zap.Float64("drift", drift),
	)
}
