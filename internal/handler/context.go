package handler

import (
	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/core/event"
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"github.com/orrery/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config *config.Config
	Log    *zap.Logger
	World  *world.State
	Bus    *event.Bus
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	reg.Register(packet.C_OPCODE_HELLO,
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, r *packet.Reader) {
			HandleHello(sess.(*net.Session), r, deps)
		},
	)

	control := []packet.SessionState{packet.StateControlling}
	reg.Register(packet.C_OPCODE_ADD_BODY, control,
		func(sess any, r *packet.Reader) {
			HandleAddBody(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_ADD_BODY_DRAG, control,
		func(sess any, r *packet.Reader) {
			HandleAddBodyDrag(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_RESET, control,
		func(sess any, r *packet.Reader) {
			HandleReset(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_PAUSE, control,
		func(sess any, r *packet.Reader) {
			HandlePause(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_RESUME, control,
		func(sess any, r *packet.Reader) {
			HandleResume(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_STEP, control,
		func(sess any, r *packet.Reader) {
			HandleStep(sess.(*net.Session), r, deps)
		},
	)

	// Quit is accepted in every live state.
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateHandshake, packet.StateViewing, packet.StateControlling},
		func(sess any, r *packet.Reader) {
			HandleQuit(sess.(*net.Session), r, deps)
		},
	)
}
