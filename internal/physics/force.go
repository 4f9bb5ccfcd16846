package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ComputeAccelerations overwrites Acc of every body with the softened
// gravitational pull of all other bodies.
//
// Every ordered pair (i, j), i != j, is evaluated on its own; the work is not
// halved with Newton's third law, so acc(i) and acc(j) come from two
// independent passes. The pair factor is
//
//	f = G * m(j) / (r2 * sqrt(r2 + softening))
//
// Softening only enters under the square root, so the factor still grows
// like 1/r2 as two bodies close in.
func ComputeAccelerations(bodies []Body, g, softening float64) {
	for i := range bodies {
		var acc r3.Vec
		pi := bodies[i].Pos
		for j := range bodies {
			if i == j {
				continue
			}
			d := r3.Sub(bodies[j].Pos, pi)
			r2 := r3.Dot(d, d)

			denom := r2 * math.Sqrt(r2+softening)
			if denom == 0 {
				// Coincident pair: no direction to pull along.
				continue
			}
			f := g * bodies[j].Mass / denom
			if math.IsInf(f, 0) {
				continue
			}
			acc = r3.Add(acc, r3.Scale(f, d))
		}
		bodies[i].Acc = acc
	}
}
