package handler

import (
	"github.com/orrery/server/internal/core/event"
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// HandleAddBody processes C_ADD_BODY: x y z vx vy vz mass, all float64.
// Values are not range checked; a body that overflows shows up as divergence.
func HandleAddBody(sess *net.Session, r *packet.Reader, deps *Deps) {
	pos, vel := readVec(r), readVec(r)
	mass := r.ReadF()
	if r.Err() != nil {
		sess.Send(BuildError("malformed add body"))
		return
	}
	addBody(sess, deps, pos, vel, mass)
}

// HandleAddBodyDrag processes C_ADD_BODY_DRAG: x y z vx vy vz. The client
// derives the velocity from a drag gesture; mass comes from configuration.
func HandleAddBodyDrag(sess *net.Session, r *packet.Reader, deps *Deps) {
	pos, vel := readVec(r), readVec(r)
	if r.Err() != nil {
		sess.Send(BuildError("malformed add body"))
		return
	}
	addBody(sess, deps, pos, vel, deps.Config.Control.AddBodyMass)
}

func addBody(sess *net.Session, deps *Deps, pos, vel r3.Vec, mass float64) {
	idx := deps.World.Sim.AddBody(pos, vel, mass)
	deps.Log.Debug("body added",
		zap.Uint64("session", sess.ID),
		zap.Int("index", idx),
		zap.Float64("mass", mass),
	)
	event.Emit(deps.Bus, event.BodyAdded{
		Epoch:     deps.World.Epoch(),
		Step:      deps.World.Sim.Steps(),
		Index:     idx,
		Mass:      mass,
		SessionID: sess.ID,
	})
}

func readVec(r *packet.Reader) r3.Vec {
	return r3.Vec{X: r.ReadF(), Y: r.ReadF(), Z: r.ReadF()}
}
