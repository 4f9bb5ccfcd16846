package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// KineticEnergy returns sum(m v² / 2).
func KineticEnergy(bodies []Body) float64 {
	var ke float64
	for _, b := range bodies {
		ke += 0.5 * b.Mass * r3.Dot(b.Vel, b.Vel)
	}
	return ke
}

// PotentialEnergy returns the pair potential -G mi mj / sqrt(r2 + softening)
// summed over unordered pairs. The kernel's force is not exactly the
// gradient of this potential, so it is only useful for watching drift.
func PotentialEnergy(bodies []Body, g, softening float64) float64 {
	var pe float64
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			d := r3.Sub(bodies[j].Pos, bodies[i].Pos)
			r := math.Sqrt(r3.Dot(d, d) + softening)
			if r == 0 {
				continue
			}
			pe -= g * bodies[i].Mass * bodies[j].Mass / r
		}
	}
	return pe
}

// Momentum returns sum(m v).
func Momentum(bodies []Body) r3.Vec {
	var p r3.Vec
	for _, b := range bodies {
		p = r3.Add(p, r3.Scale(b.Mass, b.Vel))
	}
	return p
}

// CenterOfMass returns the mass-weighted mean position and the total mass.
// With zero total mass the position is the origin.
func CenterOfMass(bodies []Body) (r3.Vec, float64) {
	var (
		c r3.Vec
		m float64
	)
	for _, b := range bodies {
		c = r3.Add(c, r3.Scale(b.Mass, b.Pos))
		m += b.Mass
	}
	if m == 0 {
		return r3.Vec{}, 0
	}
	return r3.Scale(1/m, c), m
}

// Stats is a point-in-time summary used for logs and the S_STATS packet.
type Stats struct {
	Kinetic   float64
	Potential float64
	Momentum  r3.Vec
}

func (s Stats) Total() float64 { return s.Kinetic + s.Potential }

// Stats summarises the current body collection.
func (s *Simulation) Stats() Stats {
	bodies := s.store.bodies
	return Stats{
		Kinetic:   KineticEnergy(bodies),
		Potential: PotentialEnergy(bodies, s.g, s.softening),
		Momentum:  Momentum(bodies),
	}
}
