package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/orrery/server/internal/physics"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// File is the on-disk scenario format.
//
//	name: binary
//	bodies:
//	  - label: Sun
//	    mass: 1
//	    position: [0, 0, 0]
//	    velocity: [0, 0, 0]
type File struct {
	Name   string      `yaml:"name"`
	Bodies []BodyEntry `yaml:"bodies"`
}

// BodyEntry uses pointers so a missing field can be told apart from zero.
type BodyEntry struct {
	Label    string      `yaml:"label,omitempty"`
	Mass     *float64    `yaml:"mass"`
	Position *[3]float64 `yaml:"position"`
	Velocity *[3]float64 `yaml:"velocity"`
}

// LoadFile reads a YAML scenario from path.
func LoadFile(path string) (*File, []physics.Body, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	f, bodies, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return f, bodies, nil
}

// Decode parses a YAML scenario. A missing mass, position or velocity is
// reported as *physics.ConfigError.
func Decode(r io.Reader) (*File, []physics.Body, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, nil, fmt.Errorf("parse scenario: %w", err)
	}

	bodies := make([]physics.Body, len(f.Bodies))
	for i, e := range f.Bodies {
		switch {
		case e.Mass == nil:
			return nil, nil, &physics.ConfigError{Field: fmt.Sprintf("bodies[%d].mass", i), Reason: "missing"}
		case e.Position == nil:
			return nil, nil, &physics.ConfigError{Field: fmt.Sprintf("bodies[%d].position", i), Reason: "missing"}
		case e.Velocity == nil:
			return nil, nil, &physics.ConfigError{Field: fmt.Sprintf("bodies[%d].velocity", i), Reason: "missing"}
		}
		p, v := *e.Position, *e.Velocity
		bodies[i] = physics.Body{
			Label: norm.NFC.String(e.Label),
			Mass:  *e.Mass,
			Pos:   r3.Vec{X: p[0], Y: p[1], Z: p[2]},
			Vel:   r3.Vec{X: v[0], Y: v[1], Z: v[2]},
		}
	}
	return &f, bodies, nil
}

// Encode writes bodies in the format Decode reads.
func Encode(w io.Writer, name string, bodies []physics.Body) error {
	f := File{Name: name, Bodies: make([]BodyEntry, len(bodies))}
	for i, b := range bodies {
		m := b.Mass
		p := [3]float64{b.Pos.X, b.Pos.Y, b.Pos.Z}
		v := [3]float64{b.Vel.X, b.Vel.Y, b.Vel.Z}
		f.Bodies[i] = BodyEntry{Label: b.Label, Mass: &m, Position: &p, Velocity: &v}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return enc.Close()
}
