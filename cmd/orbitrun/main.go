// Command orbitrun runs a configured scenario headless for a fixed number of
// steps, reports energy and momentum drift, and can write the final state as
// a scenario file. With -run it instead replays a recorded run: it prints the
// run's event log and continues from its latest stored snapshot.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/scenario"
	"github.com/orrery/server/internal/scripting"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "config/orrery.toml", "server config to take the scenario and constants from")
	steps := flag.Int("steps", 10000, "steps to run")
	every := flag.Int("every", 0, "report every N steps (0 = only at the end)")
	seed := flag.Uint64("seed", 0, "override scenario.seed for cluster and lua scenarios")
	out := flag.String("out", "", "write the final state as scenario YAML to this path")
	verbose := flag.Bool("v", false, "log scenario building")
	runID := flag.Int64("run", 0, "continue recorded run ID from its latest snapshot (needs [database])")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *seed != 0 {
		cfg.Scenario.Seed = *seed
	}

	log := zap.NewNop()
	if *verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	defer log.Sync()

	var (
		sc     *scenario.Scenario
		simCfg physics.Config
	)
	if *runID != 0 {
		if sc, simCfg, err = replay(cfg.Database, *runID, log); err != nil {
			return err
		}
	} else {
		engine := scripting.NewEngine(log)
		defer engine.Close()
		if sc, err = scenario.Build(cfg.Scenario, engine); err != nil {
			return fmt.Errorf("scenario: %w", err)
		}
		simCfg = physics.Config{
			G:         cfg.Simulation.G,
			Dt:        cfg.Simulation.Dt,
			Softening: cfg.Simulation.Softening,
			Bodies:    sc.Bodies,
		}
	}

	sim, err := physics.New(simCfg)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	fmt.Printf("scenario  %s (%s), %d bodies", sc.Name, sc.Kind, sim.Len())
	if sc.Seed != 0 {
		fmt.Printf(", seed %d", sc.Seed)
	}
	fmt.Println()

	start := sim.Stats()
	report(sim, start)
	began := time.Now()
	for i := 1; i <= *steps; i++ {
		sim.Step()
		if *every > 0 && i%*every == 0 && i != *steps {
			report(sim, start)
		}
	}
	elapsed := time.Since(began)
	report(sim, start)
	fmt.Printf("%d steps in %s\n", *steps, elapsed.Round(time.Millisecond))

	if d := sim.Divergence(); d != nil {
		fmt.Printf("warning: %v\n", d)
	}

	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		if err := scenario.Encode(f, fmt.Sprintf("%s@%d", sc.Name, sim.Steps()), sim.Bodies()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *out)
	}
	return nil
}

func report(sim *physics.Simulation, start physics.Stats) {
	st := sim.Stats()
	drift := 0.0
	if e0 := start.Total(); e0 != 0 {
		drift = (st.Total() - e0) / math.Abs(e0)
	}
	dp := r3.Norm(r3.Sub(st.Momentum, start.Momentum))
	fmt.Printf("step %8d  t=%-10.4f  E=%-14.6e  dE/E=%-11.3e  |dp|=%.3e\n",
		sim.Steps(), sim.Time(), st.Total(), drift, dp)
}
