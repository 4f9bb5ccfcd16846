package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Config is the construction input of a Simulation.
type Config struct {
	G         float64
	Dt        float64
	Softening float64
	Bodies    []Body
}

// Simulation owns one body collection and the constants it is stepped with.
// G, dt and softening cannot change after New. Not safe for concurrent use:
// the driver calls every method from a single goroutine.
type Simulation struct {
	g         float64
	dt        float64
	softening float64

	store    *Store
	template []Body
	steps    uint64
	diverged *DivergenceError
}

// New validates cfg and builds a Simulation. The caller's body slice is
// copied twice: once as the live collection and once as the reset template.
func New(cfg Config) (*Simulation, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	bodies := cloneBodies(cfg.Bodies)
	for i := range bodies {
		bodies[i].Acc = r3.Vec{}
	}
	return &Simulation{
		g:         cfg.G,
		dt:        cfg.Dt,
		softening: cfg.Softening,
		store:     NewStore(bodies),
		template:  bodies,
	}, nil
}

func validate(cfg Config) error {
	switch {
	case !finite(cfg.G):
		return &ConfigError{Field: "g", Reason: "must be a finite number"}
	case cfg.G <= 0:
		return &ConfigError{Field: "g", Reason: "must be positive"}
	case !finite(cfg.Dt):
		return &ConfigError{Field: "dt", Reason: "must be a finite number"}
	case !finite(cfg.Softening):
		return &ConfigError{Field: "softening", Reason: "must be a finite number"}
	case cfg.Softening < 0:
		return &ConfigError{Field: "softening", Reason: "must not be negative"}
	}
	for i, b := range cfg.Bodies {
		if !finite(b.Mass) {
			return &ConfigError{Field: fmt.Sprintf("bodies[%d].mass", i), Reason: "must be a finite number"}
		}
		if !finiteVec(b.Pos) {
			return &ConfigError{Field: fmt.Sprintf("bodies[%d].position", i), Reason: "must be finite"}
		}
		if !finiteVec(b.Vel) {
			return &ConfigError{Field: fmt.Sprintf("bodies[%d].velocity", i), Reason: "must be finite"}
		}
	}
	return nil
}

func (s *Simulation) G() float64         { return s.g }
func (s *Simulation) Dt() float64        { return s.dt }
func (s *Simulation) Softening() float64 { return s.softening }
func (s *Simulation) Len() int           { return s.store.Len() }

// Steps returns the number of steps taken since construction or the last Reset.
func (s *Simulation) Steps() uint64 { return s.steps }

// Time returns the simulated time elapsed since construction or the last Reset.
func (s *Simulation) Time() float64 { return float64(s.steps) * s.dt }

// Step advances the whole collection by one time step and then checks the
// result for non-finite values.
func (s *Simulation) Step() {
	Step(s.store.bodies, s.g, s.dt, s.softening)
	s.steps++
	if s.diverged == nil {
		s.diverged = s.checkFinite()
	}
}

// Divergence returns the first recorded divergence, or nil while every
// body's state is finite.
func (s *Simulation) Divergence() *DivergenceError {
	return s.diverged
}

// AddBody appends a body with zero acceleration and returns its index. It takes
// part in force evaluation from the next Step on. Inputs are not range checked.
func (s *Simulation) AddBody(pos, vel r3.Vec, mass float64) int {
	return s.store.Append(Body{Mass: mass, Pos: pos, Vel: vel})
}

// AddLabeled is AddBody for callers that name the body.
func (s *Simulation) AddLabeled(label string, pos, vel r3.Vec, mass float64) int {
	return s.store.Append(Body{Label: label, Mass: mass, Pos: pos, Vel: vel})
}

// Reset discards every runtime change, including added bodies, and restores
// a fresh copy of the construction-time template.
func (s *Simulation) Reset() {
	s.store.Restore(s.template)
	s.steps = 0
	s.diverged = nil
}

// Bodies returns a snapshot; mutating it does not affect the simulation.
func (s *Simulation) Bodies() []Body {
	return s.store.Snapshot()
}

// Body returns a copy of body i.
func (s *Simulation) Body(i int) (Body, bool) {
	return s.store.At(i)
}

func (s *Simulation) checkFinite() *DivergenceError {
	for i, b := range s.store.bodies {
		if !finiteVec(b.Pos) || !finiteVec(b.Vel) || !finiteVec(b.Acc) {
			return &DivergenceError{Step: s.steps, Index: i, Label: b.Label}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v r3.Vec) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}
