package physics

import "gonum.org/v1/gonum/spatial/r3"

// Step advances bodies by one fixed time step of dt.
//
// The phase order is part of the scheme and must not change:
//  1. positions move with the velocities from before this step
//  2. accelerations are recomputed from the new positions
//  3. velocities move with the fresh accelerations
//
// Nothing is validated; non-finite input propagates into the result.
func Step(bodies []Body, g, dt, softening float64) {
	advancePositions(bodies, dt)
	ComputeAccelerations(bodies, g, softening)
	advanceVelocities(bodies, dt)
}

func advancePositions(bodies []Body, dt float64) {
	for i := range bodies {
		b := &bodies[i]
		b.Pos = r3.Add(b.Pos, r3.Scale(dt, b.Vel))
	}
}

func advanceVelocities(bodies []Body, dt float64) {
	for i := range bodies {
		b := &bodies[i]
		b.Vel = r3.Add(b.Vel, r3.Scale(dt, b.Acc))
	}
}
