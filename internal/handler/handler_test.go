package handler

import (
	gonet "net"
	"testing"

	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/core/event"
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gonum.org/v1/gonum/spatial/r3"
)

type fixture struct {
	deps *Deps
	reg  *packet.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sim, err := physics.New(physics.Config{
		G: 39.5, Dt: 0.008, Softening: 0.15,
		Bodies: []physics.Body{{Label: "Sun", Mass: 1}},
	})
	if err != nil {
		t.Fatalf("physics.New: %v", err)
	}
	deps := &Deps{
		Config: config.Defaults(),
		Log:    zap.NewNop(),
		World:  world.NewState(sim, nil),
		Bus:    event.NewBus(),
	}
	reg := packet.NewRegistry(zap.NewNop())
	RegisterAll(reg, deps)
	return &fixture{deps: deps, reg: reg}
}

func newSession(t *testing.T) *net.Session {
	t.Helper()
	a, b := gonet.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return net.NewSession(a, 1, net.SessionOptions{InQueueSize: 8, OutQueueSize: 64}, zap.NewNop())
}

func (f *fixture) send(t *testing.T, sess *net.Session, build func(w *packet.Writer), opcode byte) error {
	t.Helper()
	w := packet.NewWriterWithOpcode(opcode)
	if build != nil {
		build(w)
	}
	return f.reg.Dispatch(sess, sess.State(), w.Bytes())
}

func hello(name, password string) func(*packet.Writer) {
	return func(w *packet.Writer) {
		w.WriteS(name)
		w.WriteS(password)
	}
}

// sent flushes sess and returns the opcodes of every queued packet.
func sent(sess *net.Session) [][]byte {
	sess.FlushOutput()
	var out [][]byte
	for {
		select {
		case p := <-sess.OutQueue:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestHelloOpenServer(t *testing.T) {
	f := newFixture(t)
	sess := newSession(t)
	if err := f.send(t, sess, hello("ada", ""), packet.C_OPCODE_HELLO); err != nil {
		t.Fatalf("hello: %v", err)
	}
	if sess.State() != packet.StateControlling || sess.Name != "ada" {
		t.Fatalf("state = %s, name = %q", sess.State(), sess.Name)
	}
	out := sent(sess)
	if len(out) != 2 || out[0][0] != packet.S_OPCODE_WELCOME || out[1][0] != packet.S_OPCODE_SNAPSHOT {
		t.Fatalf("sent %d packets", len(out))
	}
	r := packet.NewReader(out[0])
	if g := r.ReadF(); g != 39.5 {
		t.Fatalf("welcome G = %v", g)
	}
	r.ReadF()
	r.ReadF()
	if role := packet.SessionState(r.ReadC()); role != packet.StateControlling {
		t.Fatalf("welcome role = %s", role)
	}

	if err := f.send(t, sess, hello("ada", ""), packet.C_OPCODE_HELLO); err == nil {
		t.Fatal("second hello accepted")
	}
}

func TestHelloWithPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("kepler"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		password string
		viewers  bool
		want     packet.SessionState
	}{
		{name: "right password", password: "kepler", want: packet.StateControlling},
		{name: "viewer", password: "", viewers: true, want: packet.StateViewing},
		{name: "viewers disabled", password: "", want: packet.StateDisconnecting},
		{name: "wrong password", password: "brahe", viewers: true, want: packet.StateDisconnecting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.deps.Config.Control.PasswordHash = string(hash)
			f.deps.Config.Control.AllowViewers = tt.viewers
			sess := newSession(t)
			f.send(t, sess, hello("x", tt.password), packet.C_OPCODE_HELLO)
			if sess.State() != tt.want {
				t.Fatalf("state = %s, want %s", sess.State(), tt.want)
			}
			if tt.want == packet.StateDisconnecting {
				// The writer closes the session once S_ERROR is out.
				out := sent(sess)
				if sess.IsClosed() || len(out) != 2 || out[0][0] != packet.S_OPCODE_ERROR || out[1] != nil {
					t.Fatalf("refusal: closed = %v, sent %v", sess.IsClosed(), out)
				}
			}
		})
	}
}

func TestViewerCannotMutate(t *testing.T) {
	f := newFixture(t)
	sess := newSession(t)
	sess.SetState(packet.StateViewing)
	for _, op := range []byte{packet.C_OPCODE_RESET, packet.C_OPCODE_PAUSE, packet.C_OPCODE_ADD_BODY_DRAG} {
		if err := f.send(t, sess, nil, op); err == nil {
			t.Fatalf("viewer allowed opcode %#x", op)
		}
	}
	if f.deps.World.Paused || f.deps.World.Sim.Len() != 1 {
		t.Fatal("viewer mutated the world")
	}
}

func TestAddBody(t *testing.T) {
	f := newFixture(t)
	sess := newSession(t)
	sess.SetState(packet.StateControlling)

	var added []event.BodyAdded
	event.Subscribe(f.deps.Bus, func(e event.BodyAdded) { added = append(added, e) })

	f.send(t, sess, func(w *packet.Writer) {
		for _, v := range []float64{1, 2, 3, 0, 6.28, 0, 0.5} {
			w.WriteF(v)
		}
	}, packet.C_OPCODE_ADD_BODY)
	f.send(t, sess, func(w *packet.Writer) {
		for _, v := range []float64{-1, 0, 0, 0, -1, 0} {
			w.WriteF(v)
		}
	}, packet.C_OPCODE_ADD_BODY_DRAG)

	sim := f.deps.World.Sim
	if sim.Len() != 3 {
		t.Fatalf("len = %d, want 3", sim.Len())
	}
	b, _ := sim.Body(1)
	want := physics.Body{Mass: 0.5, Pos: r3.Vec{X: 1, Y: 2, Z: 3}, Vel: r3.Vec{Y: 6.28}}
	if b != want {
		t.Fatalf("body 1 = %+v, want %+v", b, want)
	}
	if b, _ := sim.Body(2); b.Mass != f.deps.Config.Control.AddBodyMass {
		t.Fatalf("drag body mass = %v", b.Mass)
	}

	f.deps.Bus.SwapBuffers()
	f.deps.Bus.DispatchAll()
	if len(added) != 2 || added[0].Index != 1 || added[1].Index != 2 {
		t.Fatalf("events = %+v", added)
	}

	// Truncated payload: no body, an error reply.
	f.send(t, sess, func(w *packet.Writer) { w.WriteF(1) }, packet.C_OPCODE_ADD_BODY)
	if sim.Len() != 3 {
		t.Fatal("truncated add body mutated the simulation")
	}
	if out := sent(sess); len(out) != 1 || out[0][0] != packet.S_OPCODE_ERROR {
		t.Fatalf("sent %d packets", len(out))
	}
}

func TestControl(t *testing.T) {
	f := newFixture(t)
	sess := newSession(t)
	sess.SetState(packet.StateControlling)
	ws := f.deps.World

	var pauses []bool
	resets := 0
	event.Subscribe(f.deps.Bus, func(e event.PauseChanged) { pauses = append(pauses, e.Paused) })
	event.Subscribe(f.deps.Bus, func(event.SimulationReset) { resets++ })

	f.send(t, sess, nil, packet.C_OPCODE_STEP)
	if out := sent(sess); len(out) != 1 || out[0][0] != packet.S_OPCODE_ERROR {
		t.Fatal("step while running not refused")
	}

	f.send(t, sess, nil, packet.C_OPCODE_PAUSE)
	f.send(t, sess, nil, packet.C_OPCODE_PAUSE)
	f.send(t, sess, nil, packet.C_OPCODE_STEP)
	if !ws.Paused || ws.PendingSteps() != 1 {
		t.Fatalf("paused = %v, pending = %d", ws.Paused, ws.PendingSteps())
	}
	f.send(t, sess, nil, packet.C_OPCODE_RESUME)

	ws.Sim.AddBody(r3.Vec{X: 1}, r3.Vec{}, 1)
	ws.Sim.Step()
	f.send(t, sess, nil, packet.C_OPCODE_RESET)
	if ws.Sim.Len() != 1 || ws.Sim.Steps() != 0 {
		t.Fatalf("reset: len = %d, steps = %d", ws.Sim.Len(), ws.Sim.Steps())
	}

	f.deps.Bus.SwapBuffers()
	f.deps.Bus.DispatchAll()
	if len(pauses) != 2 || !pauses[0] || pauses[1] || resets != 1 {
		t.Fatalf("pauses = %v, resets = %d", pauses, resets)
	}
}

func TestQuit(t *testing.T) {
	f := newFixture(t)
	sess := newSession(t)
	if err := f.send(t, sess, nil, packet.C_OPCODE_QUIT); err != nil {
		t.Fatalf("quit: %v", err)
	}
	if !sess.IsClosed() {
		t.Fatal("session not closed")
	}
}

func TestBuildSnapshotsChunks(t *testing.T) {
	bodies := make([]physics.Body, MaxSnapshotBodies+3)
	for i := range bodies {
		bodies[i].Mass = float64(i)
	}
	chunks := BuildSnapshots(9, 0.5, bodies)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > net.MaxPayload {
			t.Fatalf("chunk %d is %d bytes", i, len(c))
		}
	}
	r := packet.NewReader(chunks[1])
	if r.ReadQ() != 9 || r.ReadF() != 0.5 {
		t.Fatal("header mismatch")
	}
	total, off, count := r.ReadD(), r.ReadD(), r.ReadD()
	if int(total) != len(bodies) || int(off) != MaxSnapshotBodies || count != 3 {
		t.Fatalf("total = %d, offset = %d, count = %d", total, off, count)
	}
	if m := r.ReadF(); m != float64(MaxSnapshotBodies) {
		t.Fatalf("first mass in chunk = %v", m)
	}

	if empty := BuildSnapshots(0, 0, nil); len(empty) != 1 {
		t.Fatalf("empty collection gave %d packets", len(empty))
	}
}
