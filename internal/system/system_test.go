package system

import (
	"context"
	"errors"
	"math"
	gonet "net"
	"testing"
	"time"

	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/core/event"
	coresys "github.com/orrery/server/internal/core/system"
	"github.com/orrery/server/internal/handler"
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"github.com/orrery/server/internal/persist"
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/world"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

type fakeSource struct {
	newCh  chan *net.Session
	deadCh chan uint64
	dead   []uint64
}

func newFakeSource() *fakeSource {
	return &fakeSource{newCh: make(chan *net.Session, 8), deadCh: make(chan uint64, 8)}
}

func (f *fakeSource) NewSessions() <-chan *net.Session { return f.newCh }
func (f *fakeSource) DeadSessions() <-chan uint64     { return f.deadCh }
func (f *fakeSource) NotifyDead(id uint64)            { f.dead = append(f.dead, id) }

type savedSnapshot struct {
	epoch  uint64
	step   uint64
	bodies int
}

type recordedEvent struct {
	epoch uint64
	step  uint64
	kind  string
}

type snapshotKey struct {
	runID       int64
	epoch, step uint64
	idx         int
}

// fakeRepo enforces the snapshot_bodies primary key like the real table.
type fakeRepo struct {
	snapshots []savedSnapshot
	events    []recordedEvent
	keys      map[snapshotKey]bool
	rejected  int
	fail      bool
}

func (f *fakeRepo) Save(_ context.Context, runID int64, epoch, step uint64, bodies []physics.Body) error {
	if f.fail {
		return errors.New("db down")
	}
	if f.keys == nil {
		f.keys = make(map[snapshotKey]bool)
	}
	for i := range bodies {
		if f.keys[snapshotKey{runID, epoch, step, i}] {
			f.rejected++
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	for i := range bodies {
		f.keys[snapshotKey{runID, epoch, step, i}] = true
	}
	f.snapshots = append(f.snapshots, savedSnapshot{epoch, step, len(bodies)})
	return nil
}

func (f *fakeRepo) Append(_ context.Context, _ int64, epoch, step uint64, kind string, _ map[string]any) error {
	f.events = append(f.events, recordedEvent{epoch, step, kind})
	return nil
}

func (f *fakeRepo) kinds() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.kind
	}
	return out
}

type harness struct {
	runner *coresys.Runner
	source *fakeSource
	world  *world.State
	repo   *fakeRepo
	nextID uint64
	t      *testing.T
}

func newHarness(t *testing.T, stepsPerTick, snapshotEvery, persistEvery int) *harness {
	t.Helper()
	sim, err := physics.New(physics.Config{
		G: 39.5, Dt: 0.001, Softening: 0.15,
		Bodies: []physics.Body{
			{Label: "Sun", Mass: 1},
			{Label: "Earth", Mass: 3e-6, Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 6.28}},
		},
	})
	if err != nil {
		t.Fatalf("physics.New: %v", err)
	}
	log := zap.NewNop()
	ws := world.NewState(sim, nil)
	bus := event.NewBus()
	store := net.NewSessionStore()
	reg := packet.NewRegistry(log)
	handler.RegisterAll(reg, &handler.Deps{Config: config.Defaults(), Log: log, World: ws, Bus: bus})

	h := &harness{runner: coresys.NewRunner(), source: newFakeSource(), world: ws, repo: &fakeRepo{}, t: t}
	h.runner.Register(NewPersistenceSystem(ws, bus, h.repo, h.repo, log, persistEvery))
	h.runner.Register(NewBroadcastSystem(ws, store, bus, snapshotEvery))
	h.runner.Register(NewPhysicsSystem(ws, bus, stepsPerTick, 1, log))
	h.runner.Register(NewEventDispatchSystem(bus))
	h.runner.Register(NewInputSystem(h.source, reg, store, 16, log))
	return h
}

func (h *harness) connect() *net.Session {
	h.t.Helper()
	a, b := gonet.Pipe()
	h.t.Cleanup(func() { a.Close(); b.Close() })
	h.nextID++
	sess := net.NewSession(a, h.nextID, net.SessionOptions{InQueueSize: 16, OutQueueSize: 256}, zap.NewNop())
	h.source.newCh <- sess
	return sess
}

func (h *harness) tick() { h.runner.Tick(16 * time.Millisecond) }

func queue(sess *net.Session, opcode byte, build func(*packet.Writer)) {
	w := packet.NewWriterWithOpcode(opcode)
	if build != nil {
		build(w)
	}
	sess.InQueue <- w.Bytes()
}

func helloPacket(w *packet.Writer) {
	w.WriteS("tester")
	w.WriteS("")
}

func drain(sess *net.Session) []byte {
	var ops []byte
	for {
		select {
		case p := <-sess.OutQueue:
			ops = append(ops, p[0])
		default:
			return ops
		}
	}
}

func count(ops []byte, op byte) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func TestRunsAndBroadcasts(t *testing.T) {
	h := newHarness(t, 3, 2, 100)
	sess := h.connect()
	queue(sess, packet.C_OPCODE_HELLO, helloPacket)

	h.tick()
	if sess.State() != packet.StateControlling {
		t.Fatalf("state = %s", sess.State())
	}
	if steps := h.world.Sim.Steps(); steps != 3 {
		t.Fatalf("steps after one tick = %d, want 3", steps)
	}
	ops := drain(sess)
	if len(ops) == 0 || ops[0] != packet.S_OPCODE_WELCOME {
		t.Fatalf("first tick sent %v", ops)
	}

	h.tick()
	ops = drain(sess)
	if count(ops, packet.S_OPCODE_SNAPSHOT) != 1 || count(ops, packet.S_OPCODE_STATS) != 1 {
		t.Fatalf("second tick sent %v, want snapshot and stats", ops)
	}
	h.tick()
	if ops := drain(sess); count(ops, packet.S_OPCODE_SNAPSHOT) != 0 {
		t.Fatalf("snapshot sent off-interval: %v", ops)
	}
}

func TestPauseStepResume(t *testing.T) {
	h := newHarness(t, 2, 1, 100)
	sess := h.connect()
	queue(sess, packet.C_OPCODE_HELLO, helloPacket)
	queue(sess, packet.C_OPCODE_PAUSE, nil)
	h.tick()
	if !h.world.Paused || h.world.Sim.Steps() != 0 {
		t.Fatalf("paused = %v, steps = %d", h.world.Paused, h.world.Sim.Steps())
	}
	if ops := drain(sess); count(ops, packet.S_OPCODE_STATE) != 1 {
		t.Fatalf("pause not announced: %v", ops)
	}

	queue(sess, packet.C_OPCODE_STEP, nil)
	queue(sess, packet.C_OPCODE_STEP, nil)
	h.tick()
	h.tick()
	h.tick()
	if h.world.Sim.Steps() != 2 {
		t.Fatalf("steps = %d, want one per requested step", h.world.Sim.Steps())
	}

	queue(sess, packet.C_OPCODE_RESUME, nil)
	h.tick()
	if h.world.Paused || h.world.Sim.Steps() != 4 {
		t.Fatalf("paused = %v, steps = %d", h.world.Paused, h.world.Sim.Steps())
	}
}

func TestResetAndEventsRecorded(t *testing.T) {
	h := newHarness(t, 1, 100, 100)
	sess := h.connect()
	queue(sess, packet.C_OPCODE_HELLO, helloPacket)
	queue(sess, packet.C_OPCODE_ADD_BODY_DRAG, func(w *packet.Writer) {
		for _, v := range []float64{5, 0, 0, 0, 1, 0} {
			w.WriteF(v)
		}
	})
	h.tick()
	if h.world.Sim.Len() != 3 {
		t.Fatalf("len = %d", h.world.Sim.Len())
	}

	queue(sess, packet.C_OPCODE_RESET, nil)
	h.tick()
	if h.world.Sim.Len() != 2 {
		t.Fatalf("len after reset = %d", h.world.Sim.Len())
	}
	// The reset tick still runs physics after the handler.
	if h.world.Sim.Steps() != 1 {
		t.Fatalf("steps after reset tick = %d", h.world.Sim.Steps())
	}
	ops := drain(sess)
	if count(ops, packet.S_OPCODE_STATE) != 1 || count(ops, packet.S_OPCODE_SNAPSHOT) < 2 {
		t.Fatalf("reset tick output %v", ops)
	}
	want := []recordedEvent{
		{epoch: 0, step: 0, kind: persist.EventAddBody},
		{epoch: 1, step: 0, kind: persist.EventReset},
	}
	if len(h.repo.events) != len(want) {
		t.Fatalf("events = %+v", h.repo.events)
	}
	for i, w := range want {
		if h.repo.events[i] != w {
			t.Errorf("event %d = %+v, want %+v", i, h.repo.events[i], w)
		}
	}
}

func TestDivergenceAnnouncedOnce(t *testing.T) {
	h := newHarness(t, 1, 100, 100)
	sess := h.connect()
	queue(sess, packet.C_OPCODE_HELLO, helloPacket)
	h.tick()
	drain(sess)

	h.world.Sim.AddBody(r3.Vec{X: math.NaN()}, r3.Vec{}, 1)
	for i := 0; i < 5; i++ {
		h.tick()
	}
	if h.world.Sim.Divergence() == nil {
		t.Fatal("simulation did not diverge")
	}
	if ops := drain(sess); count(ops, packet.S_OPCODE_DIVERGED) != 1 {
		t.Fatalf("S_DIVERGED sent %d times", count(ops, packet.S_OPCODE_DIVERGED))
	}
	var diverged []recordedEvent
	for _, e := range h.repo.events {
		if e.kind == persist.EventDiverged {
			diverged = append(diverged, e)
		}
	}
	if len(diverged) != 1 {
		t.Fatalf("events = %v", h.repo.kinds())
	}
	if at := h.world.Sim.Divergence().Step; diverged[0].step != at {
		t.Fatalf("divergence recorded at step %d, detected at %d", diverged[0].step, at)
	}
}

func TestPersistenceInterval(t *testing.T) {
	h := newHarness(t, 1, 100, 3)
	for i := 0; i < 7; i++ {
		h.tick()
	}
	if len(h.repo.snapshots) != 2 || h.repo.snapshots[0].step != 3 || h.repo.snapshots[1].step != 6 {
		t.Fatalf("snapshots = %+v", h.repo.snapshots)
	}

	h.repo.fail = true
	h.tick()
	h.tick()
	if len(h.repo.snapshots) != 2 {
		t.Fatal("failed save recorded")
	}
}

func TestSaveSnapshotSkipsSavedStep(t *testing.T) {
	sim, _ := physics.New(physics.Config{G: 1, Dt: 0.1})
	ws := world.NewState(sim, nil)
	repo := &fakeRepo{}
	ps := NewPersistenceSystem(ws, event.NewBus(), repo, repo, zap.NewNop(), 10)
	ps.SaveSnapshot()
	ps.SaveSnapshot()
	sim.Step()
	ps.SaveSnapshot()
	if len(repo.snapshots) != 2 {
		t.Fatalf("snapshots = %+v", repo.snapshots)
	}

	// Step 1 again, but in a new epoch.
	ws.Reset()
	sim.Step()
	ps.SaveSnapshot()
	if len(repo.snapshots) != 3 || repo.snapshots[2] != (savedSnapshot{epoch: 1, step: 1}) {
		t.Fatalf("snapshots after reset = %+v", repo.snapshots)
	}
}

func TestSnapshotsAcrossResetKeepDistinctKeys(t *testing.T) {
	tests := []struct {
		name       string
		before     int
		after      int
		wantEpochs []uint64
		wantSteps  []uint64
	}{
		{"reset after three", 3, 3, []uint64{0, 0, 0, 1, 1, 1}, []uint64{1, 2, 3, 1, 2, 3}},
		{"reset after one", 1, 2, []uint64{0, 1, 1}, []uint64{1, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 1, 100, 1)
			sess := h.connect()
			queue(sess, packet.C_OPCODE_HELLO, helloPacket)
			for i := 0; i < tt.before; i++ {
				h.tick()
			}
			// Reset lands at step 0; the same tick steps to 1 and saves.
			queue(sess, packet.C_OPCODE_RESET, nil)
			for i := 0; i < tt.after; i++ {
				h.tick()
			}
			if h.repo.rejected != 0 {
				t.Fatalf("%d snapshot saves hit an existing key", h.repo.rejected)
			}
			if len(h.repo.snapshots) != len(tt.wantSteps) {
				t.Fatalf("snapshots = %+v", h.repo.snapshots)
			}
			for i, s := range h.repo.snapshots {
				if s.epoch != tt.wantEpochs[i] || s.step != tt.wantSteps[i] {
					t.Errorf("snapshot %d = (%d, %d), want (%d, %d)", i, s.epoch, s.step, tt.wantEpochs[i], tt.wantSteps[i])
				}
			}
		})
	}
}

func TestClosedSessionRemoved(t *testing.T) {
	h := newHarness(t, 1, 100, 100)
	sess := h.connect()
	queue(sess, packet.C_OPCODE_HELLO, helloPacket)
	queue(sess, packet.C_OPCODE_QUIT, nil)
	h.tick()
	if !sess.IsClosed() {
		t.Fatal("quit did not close the session")
	}
	if len(h.source.dead) != 1 || h.source.dead[0] != sess.ID {
		t.Fatalf("dead = %v", h.source.dead)
	}
}
