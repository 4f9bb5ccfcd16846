package system

import (
	"time"

	"github.com/orrery/server/internal/core/event"
	coresys "github.com/orrery/server/internal/core/system"
)

// EventDispatchSystem delivers events emitted since its last run. Phase PreUpdate.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
