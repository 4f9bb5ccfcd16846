package system

import (
	"context"
	"math"
	"time"

	"github.com/orrery/server/internal/core/event"
	coresys "github.com/orrery/server/internal/core/system"
	"github.com/orrery/server/internal/persist"
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/world"
	"go.uber.org/zap"
)

// SnapshotSaver is implemented by persist.SnapshotRepo.
type SnapshotSaver interface {
	Save(ctx context.Context, runID int64, epoch, step uint64, bodies []physics.Body) error
}

// EventAppender is implemented by persist.EventRepo.
type EventAppender interface {
	Append(ctx context.Context, runID int64, epoch, step uint64, kind string, detail map[string]any) error
}

// PersistenceSystem periodically stores the body collection and records run
// events as they are dispatched. Phase Persist.
type PersistenceSystem struct {
	world     *world.State
	snapshots SnapshotSaver
	events    EventAppender
	log       *zap.Logger
	tickCount int
	interval  int // snapshot every N ticks

	saved      bool
	savedEpoch uint64
	savedStep  uint64
}

func NewPersistenceSystem(ws *world.State, bus *event.Bus, snapshots SnapshotSaver, events EventAppender, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	s := &PersistenceSystem{
		world:     ws,
		snapshots: snapshots,
		events:    events,
		log:       log,
		interval:  max(intervalTicks, 1),
	}
	event.Subscribe(bus, func(e event.SimulationReset) {
		s.record(e.Epoch, 0, persist.EventReset, map[string]any{"bodies": e.Bodies, "session": e.SessionID})
	})
	event.Subscribe(bus, func(e event.BodyAdded) {
		s.record(e.Epoch, e.Step, persist.EventAddBody, map[string]any{"index": e.Index, "mass": jsonFloat(e.Mass), "session": e.SessionID})
	})
	event.Subscribe(bus, func(e event.SimulationDiverged) {
		s.record(e.Epoch, e.Step, persist.EventDiverged, map[string]any{"index": e.Index, "label": e.Label})
	})
	event.Subscribe(bus, func(e event.PauseChanged) {
		kind := persist.EventResume
		if e.Paused {
			kind = persist.EventPause
		}
		s.record(e.Epoch, e.Step, kind, map[string]any{"session": e.SessionID})
	})
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveSnapshot()
}

// SaveSnapshot stores the current body collection unless that epoch and
// step are already stored. Called on shutdown as well as on the interval.
func (s *PersistenceSystem) SaveSnapshot() {
	sim := s.world.Sim
	epoch, step := s.world.Epoch(), sim.Steps()
	if s.saved && epoch == s.savedEpoch && step == s.savedStep {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.snapshots.Save(ctx, s.world.RunID, epoch, step, sim.Bodies()); err != nil {
		s.log.Error("snapshot save failed", zap.Uint64("epoch", epoch), zap.Uint64("step", step), zap.Error(err))
		return
	}
	s.saved, s.savedEpoch, s.savedStep = true, epoch, step
	s.log.Debug("snapshot saved", zap.Uint64("epoch", epoch), zap.Uint64("step", step), zap.Int("bodies", sim.Len()))
}

// record stores an event under the epoch and step it was emitted at. Events
// are dispatched a tick after emission, so the world's current step is
// already past them.
func (s *PersistenceSystem) record(epoch, step uint64, kind string, detail map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.events.Append(ctx, s.world.RunID, epoch, step, kind, detail); err != nil {
		s.log.Error("run event not recorded", zap.String("kind", kind), zap.Error(err))
	}
}

// jsonFloat keeps non-finite client input from failing JSON encoding.
func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
