package handler

import (
	"github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"go.uber.org/zap"
)

// HandleQuit processes C_QUIT. InputSystem removes the closed session.
func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info("client quit", zap.Uint64("session", sess.ID), zap.String("name", sess.Name))
	sess.Close()
}
