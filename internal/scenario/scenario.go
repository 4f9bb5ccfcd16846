// Package scenario produces the initial body collections a simulation is
// built from: built-in named systems, YAML files, seeded random clusters and
// Lua scripts.
package scenario

import (
	"fmt"

	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/physics"
)

// Scenario is a provider's output plus what is needed to reproduce it.
type Scenario struct {
	Kind   string
	Name   string
	Seed   uint64 // effective seed for cluster and lua kinds, else 0
	Bodies []physics.Body
}

// Scripter runs a scenario script. Implemented by scripting.Engine.
type Scripter interface {
	RunScenario(path string, p ClusterParams) ([]physics.Body, error)
}

// Build runs the provider selected by cfg. A zero seed is replaced with
// a fresh one from NewSeed. scripts may be nil unless cfg.Kind is "lua".
func Build(cfg config.ScenarioConfig, scripts Scripter) (*Scenario, error) {
	sc := &Scenario{Kind: cfg.Kind}
	switch cfg.Kind {
	case "named":
		bodies, err := Named(cfg.Name)
		if err != nil {
			return nil, err
		}
		sc.Name, sc.Bodies = cfg.Name, bodies

	case "file":
		f, bodies, err := LoadFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		sc.Name, sc.Bodies = f.Name, bodies
		if sc.Name == "" {
			sc.Name = cfg.Path
		}

	case "cluster", "lua":
		seed := cfg.Seed
		if seed == 0 {
			var err error
			if seed, err = NewSeed(); err != nil {
				return nil, err
			}
		}
		params := ClusterParams{Count: cfg.Count, Diameter: cfg.Diameter, Seed: seed}
		var (
			bodies []physics.Body
			err    error
		)
		if cfg.Kind == "cluster" {
			sc.Name = "cluster"
			bodies, err = Cluster(params)
		} else {
			if scripts == nil {
				return nil, fmt.Errorf("lua scenario %s: no script engine", cfg.Script)
			}
			sc.Name = cfg.Script
			bodies, err = scripts.RunScenario(cfg.Script, params)
		}
		if err != nil {
			return nil, err
		}
		sc.Seed, sc.Bodies = seed, bodies

	default:
		return nil, fmt.Errorf("unknown scenario kind %q", cfg.Kind)
	}
	return sc, nil
}
