package persist

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/physics"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSnapshotRows(t *testing.T) {
	bodies := []physics.Body{
		{Label: "Sun", Mass: 1},
		{Label: "Earth", Mass: 3e-6, Pos: r3.Vec{X: 1}, Vel: r3.Vec{Y: 6.28}, Acc: r3.Vec{X: -39}},
	}
	rows := snapshotRows(7, 2, 42, bodies)
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	for _, row := range rows {
		if len(row) != len(snapshotColumns) {
			t.Fatalf("row has %d values for %d columns", len(row), len(snapshotColumns))
		}
	}
	r := rows[1]
	if r[0] != int64(7) || r[1] != int64(2) || r[2] != int64(42) || r[3] != int32(1) || r[4] != "Earth" {
		t.Fatalf("key columns = %v", r[:5])
	}
	if r[6] != 1.0 || r[10] != 6.28 {
		t.Fatalf("state columns = %v", r[5:])
	}
}

func TestEncodeDetail(t *testing.T) {
	raw, err := encodeDetail(nil)
	if err != nil || string(raw) != "{}" {
		t.Fatalf("nil detail = %s, %v", raw, err)
	}
	raw, err = encodeDetail(map[string]any{"index": 3})
	if err != nil || string(raw) != `{"index":3}` {
		t.Fatalf("detail = %s, %v", raw, err)
	}
}

// TestRepos runs against a real PostgreSQL when ORRERY_TEST_DSN is set.
func TestRepos(t *testing.T) {
	dsn := os.Getenv("ORRERY_TEST_DSN")
	if dsn == "" {
		t.Skip("ORRERY_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 1, ConnMaxLifetime: time.Minute}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()
	if err := RunMigrations(ctx, db.Pool, zap.NewNop()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	run := &RunRow{ScenarioKind: "cluster", ScenarioName: "cluster", Seed: 1 << 63, G: 39.5, Dt: 0.008, Softening: 0.15, BodyCount: 2}
	if err := NewRunRepo(db).Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := NewRunRepo(db).Get(ctx, run.ID)
	if err != nil || got.Seed != 1<<63 {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	snaps := NewSnapshotRepo(db)
	if _, _, ok, err := snaps.Latest(ctx, run.ID); err != nil || ok {
		t.Fatalf("Latest on empty run = %v, %v", ok, err)
	}
	bodies := []physics.Body{
		{Label: "a", Mass: 1, Pos: r3.Vec{X: 1}},
		{Label: "b", Mass: 2, Vel: r3.Vec{Z: -1}},
	}
	if err := snaps.Save(ctx, run.ID, 0, 10, bodies); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Same step after a reset is a distinct key.
	if err := snaps.Save(ctx, run.ID, 1, 10, bodies[:1]); err != nil {
		t.Fatalf("Save after reset: %v", err)
	}
	loaded, err := snaps.Load(ctx, run.ID, 0, 10)
	if err != nil || len(loaded) != 2 || loaded[1] != bodies[1] {
		t.Fatalf("Load = %+v, %v", loaded, err)
	}
	if epoch, step, ok, err := snaps.Latest(ctx, run.ID); err != nil || !ok || epoch != 1 || step != 10 {
		t.Fatalf("Latest = (%d, %d), %v, %v", epoch, step, ok, err)
	}

	events := NewEventRepo(db)
	for _, e := range []struct {
		epoch, step uint64
		kind        string
	}{
		{0, 10, EventPause},
		{1, 0, EventReset},
		{1, 3, EventResume},
	} {
		if err := events.Append(ctx, run.ID, e.epoch, e.step, e.kind, nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	list, err := events.List(ctx, run.ID)
	if err != nil || len(list) != 3 {
		t.Fatalf("List = %+v, %v", list, err)
	}
	for i, want := range []string{EventPause, EventReset, EventResume} {
		if list[i].Kind != want {
			t.Errorf("event %d = %s, want %s", i, list[i].Kind, want)
		}
	}
}
