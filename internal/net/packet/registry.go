package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrShortPacket is returned when a payload ends before all its fields.
var ErrShortPacket = errors.New("packet: short payload")

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateHandshake   SessionState = iota
	StateViewing                  // receives snapshots, cannot mutate
	StateControlling              // may add bodies, reset, pause and step
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateViewing:
		return "Viewing"
	case StateControlling:
		return "Controlling"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the opcode in data[0], validates the session
// state, and calls the handler. Unknown opcodes are ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty packet")
	}
	opcode := data[0]
	reg.log.Debug("packet received",
		zap.Uint8("opcode", opcode),
		zap.Int("size", len(data)),
		zap.Stringer("state", state),
	)

	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("unknown opcode", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("opcode not allowed in state",
			zap.Uint8("opcode", opcode),
			zap.Stringer("state", state),
		)
		return fmt.Errorf("opcode %d not allowed in state %s", opcode, state)
	}

	return reg.safeCall(entry.fn, sess, NewReader(data), opcode)
}

// safeCall runs a handler, turning a panic into an error so one bad
// packet cannot stop the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	fn(sess, r)
	return nil
}
