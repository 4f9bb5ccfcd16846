package scenario

import (
	"math"

	"golang.org/x/exp/rand"
)

// Sampler draws the random numbers used by generated scenarios. Two
// samplers built from the same seed produce the same sequence.
type Sampler struct {
	rng *rand.Rand
}

func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Uniform returns a value in [0, 1).
func (s *Sampler) Uniform() float64 {
	return s.rng.Float64()
}

// openUniform returns a value in (0, 1).
func (s *Sampler) openUniform() float64 {
	for {
		if u := s.rng.Float64(); u != 0 {
			return u
		}
	}
}

// Normal returns a standard normal variate using the Box-Muller transform.
func (s *Sampler) Normal() float64 {
	u := s.openUniform()
	v := s.openUniform()
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}
