package handler

import (
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"github.com/orrery/server/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	snapshotHeader = 1 + 8 + 8 + 4 + 4 + 4
	snapshotBody   = 7 * 8

	// MaxSnapshotBodies is how many bodies fit in one S_SNAPSHOT frame.
	MaxSnapshotBodies = (net.MaxPayload - snapshotHeader) / snapshotBody
)

// BuildWelcome builds S_WELCOME: G dt softening F, role C, paused C.
func BuildWelcome(g, dt, softening float64, role packet.SessionState, paused bool) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_WELCOME)
	w.WriteF(g)
	w.WriteF(dt)
	w.WriteF(softening)
	w.WriteC(byte(role))
	w.WriteBool(paused)
	return w.Bytes()
}

// BuildSnapshots builds one or more S_SNAPSHOT packets covering bodies.
// Each is: step Q, time F, total D, offset D, count D, then count ×
// (mass x y z vx vy vz F). An empty collection still yields one packet.
func BuildSnapshots(step uint64, time float64, bodies []physics.Body) [][]byte {
	var out [][]byte
	for off := 0; off == 0 || off < len(bodies); off += MaxSnapshotBodies {
		end := min(off+MaxSnapshotBodies, len(bodies))
		chunk := bodies[off:end]

		w := packet.NewWriterWithOpcode(packet.S_OPCODE_SNAPSHOT)
		w.Grow(snapshotHeader + len(chunk)*snapshotBody)
		w.WriteQ(step)
		w.WriteF(time)
		w.WriteD(uint32(len(bodies)))
		w.WriteD(uint32(off))
		w.WriteD(uint32(len(chunk)))
		for _, b := range chunk {
			w.WriteF(b.Mass)
			writeVec(w, b.Pos)
			writeVec(w, b.Vel)
		}
		out = append(out, w.Bytes())
		if len(bodies) == 0 {
			break
		}
	}
	return out
}

// BuildState builds S_STATE: paused C, bodies D.
func BuildState(paused bool, bodies int) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_STATE)
	w.WriteBool(paused)
	w.WriteD(uint32(bodies))
	return w.Bytes()
}

// BuildDiverged builds S_DIVERGED: step Q, index D, label S.
func BuildDiverged(d *physics.DivergenceError) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_DIVERGED)
	w.WriteQ(d.Step)
	w.WriteD(uint32(d.Index))
	w.WriteS(d.Label)
	return w.Bytes()
}

// BuildStats builds S_STATS: kinetic potential px py pz F.
func BuildStats(st physics.Stats) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_STATS)
	w.WriteF(st.Kinetic)
	w.WriteF(st.Potential)
	writeVec(w, st.Momentum)
	return w.Bytes()
}

// BuildError builds S_ERROR: message S.
func BuildError(msg string) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_ERROR)
	w.WriteS(msg)
	return w.Bytes()
}

func writeVec(w *packet.Writer, v r3.Vec) {
	w.WriteF(v.X)
	w.WriteF(v.Y)
	w.WriteF(v.Z)
}
