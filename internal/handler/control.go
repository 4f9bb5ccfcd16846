package handler

import (
	"github.com/orrery/server/internal/core/event"
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"go.uber.org/zap"
)

// HandleReset processes C_RESET.
func HandleReset(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.World.Reset()
	n := deps.World.Sim.Len()
	deps.Log.Info("simulation reset", zap.Uint64("session", sess.ID), zap.Int("bodies", n))
	event.Emit(deps.Bus, event.SimulationReset{Epoch: deps.World.Epoch(), Bodies: n, SessionID: sess.ID})
}

// HandlePause processes C_PAUSE. Pausing twice is a no-op.
func HandlePause(sess *net.Session, _ *packet.Reader, deps *Deps) {
	if deps.World.Pause() {
		emitPause(sess, deps, true)
	}
}

// HandleResume processes C_RESUME.
func HandleResume(sess *net.Session, _ *packet.Reader, deps *Deps) {
	if deps.World.Resume() {
		emitPause(sess, deps, false)
	}
}

// HandleStep processes C_STEP: one step on the next tick while paused.
func HandleStep(sess *net.Session, _ *packet.Reader, deps *Deps) {
	if !deps.World.RequestStep() {
		sess.Send(BuildError("step requires pause"))
	}
}

func emitPause(sess *net.Session, deps *Deps, paused bool) {
	event.Emit(deps.Bus, event.PauseChanged{
		Epoch:     deps.World.Epoch(),
		Step:      deps.World.Sim.Steps(),
		Paused:    paused,
		SessionID: sess.ID,
	})
}
