package physics

import "gonum.org/v1/gonum/spatial/r3"

// Body is a single point mass. Acc is derived state: it is overwritten on
// every force pass and never accumulated across steps.
type Body struct {
	Label string
	Mass  float64
	Pos   r3.Vec
	Vel   r3.Vec
	Acc   r3.Vec
}

// Store is the ordered body collection owned by a Simulation.
// Indexes are stable until Restore; there is no removal of single bodies.
type Store struct {
	bodies []Body
}

// NewStore returns a store holding a copy of bodies.
func NewStore(bodies []Body) *Store {
	return &Store{bodies: cloneBodies(bodies)}
}

func (s *Store) Len() int { return len(s.bodies) }

// Append adds b at the end and returns its index.
func (s *Store) Append(b Body) int {
	s.bodies = append(s.bodies, b)
	return len(s.bodies) - 1
}

// At returns a copy of the body at index i.
func (s *Store) At(i int) (Body, bool) {
	if i < 0 || i >= len(s.bodies) {
		return Body{}, false
	}
	return s.bodies[i], true
}

// Snapshot returns a copy that shares no memory with the store.
func (s *Store) Snapshot() []Body {
	return cloneBodies(s.bodies)
}

// Restore replaces the whole collection with a copy of bodies.
func (s *Store) Restore(bodies []Body) {
	s.bodies = cloneBodies(bodies)
}

// cloneBodies is the typed deep copy used for templates and snapshots.
// Body holds only values (strings are immutable), so a slice copy is deep.
func cloneBodies(bodies []Body) []Body {
	out := make([]Body, len(bodies))
	copy(out, bodies)
	return out
}
