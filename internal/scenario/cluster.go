package scenario

import (
	"math"

	"github.com/orrery/server/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// ClusterParams configures a randomly sampled stellar cluster.
type ClusterParams struct {
	Count    int
	Diameter float64 // AU
	Seed     uint64
}

// Cluster samples Count stars. Each position component is
// Diameter*N(0,1) - Diameter/2, each velocity component is N(0,1) and the
// mass is uniform in [0, 1). Velocities are not derived from the
// gravitational potential.
func Cluster(p ClusterParams) ([]physics.Body, error) {
	if p.Count < 0 {
		return nil, &physics.ConfigError{Field: "count", Reason: "must not be negative"}
	}
	if math.IsNaN(p.Diameter) || math.IsInf(p.Diameter, 0) {
		return nil, &physics.ConfigError{Field: "diameter", Reason: "must be a finite number"}
	}

	s := NewSampler(p.Seed)
	half := p.Diameter / 2
	bodies := make([]physics.Body, p.Count)
	for i := range bodies {
		pos := r3.Vec{
			X: p.Diameter*s.Normal() - half,
			Y: p.Diameter*s.Normal() - half,
			Z: p.Diameter*s.Normal() - half,
		}
		vel := r3.Vec{X: s.Normal(), Y: s.Normal(), Z: s.Normal()}
		bodies[i] = physics.Body{Mass: s.Uniform(), Pos: pos, Vel: vel}
	}
	return bodies, nil
}
