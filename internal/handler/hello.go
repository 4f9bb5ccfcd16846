package handler

import (
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const maxNameLen = 32

// HandleHello processes C_HELLO: [name\0][password\0].
// With no control password configured every client controls. Otherwise the
// right password grants control, an empty one grants a read-only view when
// viewers are allowed, and anything else is refused.
func HandleHello(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS()
	password := r.ReadS()
	if err := r.Err(); err != nil {
		refuse(sess, "malformed hello")
		return
	}
	if n := []rune(name); len(n) > maxNameLen {
		name = string(n[:maxNameLen])
	}
	sess.Name = name

	role, reason := authenticate(password, deps)
	if role == packet.StateDisconnecting {
		deps.Log.Warn("hello refused",
			zap.Uint64("session", sess.ID),
			zap.String("name", name),
			zap.String("ip", sess.IP),
			zap.String("reason", reason),
		)
		refuse(sess, reason)
		return
	}

	sess.SetState(role)
	deps.Log.Info("client joined",
		zap.Uint64("session", sess.ID),
		zap.String("name", name),
		zap.Stringer("role", role),
	)

	sim := deps.World.Sim
	sess.Send(BuildWelcome(sim.G(), sim.Dt(), sim.Softening(), role, deps.World.Paused))
	for _, chunk := range BuildSnapshots(sim.Steps(), sim.Time(), sim.Bodies()) {
		sess.Send(chunk)
	}
}

func authenticate(password string, deps *Deps) (packet.SessionState, string) {
	hash := deps.Config.Control.PasswordHash
	switch {
	case hash == "":
		return packet.StateControlling, ""
	case password != "":
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			return packet.StateDisconnecting, "wrong password"
		}
		return packet.StateControlling, ""
	case deps.Config.Control.AllowViewers:
		return packet.StateViewing, ""
	default:
		return packet.StateDisconnecting, "password required"
	}
}

// refuse sends S_ERROR and closes the session after the writer delivers it.
func refuse(sess *net.Session, reason string) {
	sess.Send(BuildError(reason))
	sess.CloseAfterFlush()
}
