package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/persist"
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/scenario"
	"go.uber.org/zap"
)

// replay prints the event log of a recorded run and returns its latest
// snapshot as the scenario to continue from, with the run's own constants.
func replay(dbCfg config.DatabaseConfig, runID int64, log *zap.Logger) (*scenario.Scenario, physics.Config, error) {
	if !dbCfg.Enabled {
		return nil, physics.Config{}, errors.New("-run needs database.enabled in the config")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, dbCfg, log)
	if err != nil {
		return nil, physics.Config{}, err
	}
	defer db.Close()

	run, err := persist.NewRunRepo(db).Get(ctx, runID)
	if err != nil {
		return nil, physics.Config{}, err
	}
	fmt.Printf("run %d started %s: %s (%s), %d bodies, G=%g dt=%g eps=%g\n",
		run.ID, run.StartedAt.Format(time.RFC3339), run.ScenarioName, run.ScenarioKind,
		run.BodyCount, run.G, run.Dt, run.Softening)

	events, err := persist.NewEventRepo(db).List(ctx, runID)
	if err != nil {
		return nil, physics.Config{}, err
	}
	for _, ev := range events {
		fmt.Printf("  epoch %-3d step %-8d %-9s %v\n", ev.Epoch, ev.Step, ev.Kind, ev.Detail)
	}

	snaps := persist.NewSnapshotRepo(db)
	epoch, step, ok, err := snaps.Latest(ctx, runID)
	if err != nil {
		return nil, physics.Config{}, err
	}
	if !ok {
		return nil, physics.Config{}, fmt.Errorf("run %d has no stored snapshots", runID)
	}
	bodies, err := snaps.Load(ctx, runID, epoch, step)
	if err != nil {
		return nil, physics.Config{}, err
	}
	fmt.Printf("continuing from epoch %d step %d\n", epoch, step)

	sc := &scenario.Scenario{
		Kind:   run.ScenarioKind,
		Name:   fmt.Sprintf("run%d@%d.%d", run.ID, epoch, step),
		Seed:   run.Seed,
		Bodies: bodies,
	}
	return sc, physics.Config{G: run.G, Dt: run.Dt, Softening: run.Softening, Bodies: bodies}, nil
}
