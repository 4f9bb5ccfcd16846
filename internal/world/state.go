package world

import (
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/scenario"
)

// State is everything the game loop owns about the running simulation.
// Accessed only from the game loop goroutine, no locks needed.
type State struct {
	Sim      *physics.Simulation
	Scenario *scenario.Scenario
	RunID    int64 // persisted run row, 0 when the database is disabled

	Paused       bool
	pendingSteps int

	// epoch counts resets. Steps restart at 0 on reset, so (epoch, step)
	// identifies a state within a run.
	epoch uint64

	// Divergence already announced to clients and the event log.
	// Cleared when the simulation is reset.
	reportedDivergence bool
}

func NewState(sim *physics.Simulation, sc *scenario.Scenario) *State {
	return &State{Sim: sim, Scenario: sc}
}

// Pause stops free-running stepping. Returns false if already paused.
func (s *State) Pause() bool {
	if s.Paused {
		return false
	}
	s.Paused = true
	return true
}

// Resume restarts free-running stepping and drops any queued single steps.
// Returns false if not paused.
func (s *State) Resume() bool {
	if !s.Paused {
		return false
	}
	s.Paused = false
	s.pendingSteps = 0
	return true
}

// RequestStep queues one single step while paused. Ignored when running.
func (s *State) RequestStep() bool {
	if !s.Paused {
		return false
	}
	s.pendingSteps++
	return true
}

// TakeStep consumes one queued single step.
func (s *State) TakeStep() bool {
	if s.pendingSteps == 0 {
		return false
	}
	s.pendingSteps--
	return true
}

// PendingSteps returns the number of queued single steps.
func (s *State) PendingSteps() int { return s.pendingSteps }

// Reset restores the simulation to its template and starts a new epoch.
func (s *State) Reset() {
	s.Sim.Reset()
	s.epoch++
	s.reportedDivergence = false
}

// Epoch returns the number of resets since construction.
func (s *State) Epoch() uint64 { return s.epoch }

// NewDivergence returns the simulation's divergence the first time it is
// observed after construction or the last Reset, and nil otherwise.
func (s *State) NewDivergence() *physics.DivergenceError {
	if s.reportedDivergence {
		return nil
	}
	d := s.Sim.Divergence()
	if d == nil {
		return nil
	}
	s.reportedDivergence = true
	return d
}
