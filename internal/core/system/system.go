package system

import (
	"fmt"
	"time"
)

// Phase orders systems within a tick. Lower phases run first.
type Phase int

const (
	PhaseInput      Phase = iota // drain session queues, apply commands
	PhasePreUpdate               // dispatch last tick's events
	PhaseUpdate                  // advance the simulation
	PhasePostUpdate              // diagnostics
	PhaseOutput                  // build and flush packets
	PhasePersist                 // record snapshots
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// System is one unit of per-tick work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
