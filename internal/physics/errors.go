package physics

import (
	"errors"
	"fmt"
)

// ErrDiverged matches any *DivergenceError with errors.Is.
var ErrDiverged = errors.New("physics: simulation diverged (NaN or Inf detected)")

// ConfigError reports malformed construction input. It is fatal: no
// Simulation is created.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("physics: invalid config %s: %s", e.Field, e.Reason)
}

// DivergenceError records the first body found with non-finite state.
// It is informational; stepping continues until the driver resets.
type DivergenceError struct {
	Step  uint64
	Index int
	Label string
}

func (e *DivergenceError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("physics: body %d (%s) diverged at step %d", e.Index, e.Label, e.Step)
	}
	return fmt.Sprintf("physics: body %d diverged at step %d", e.Index, e.Step)
}

func (e *DivergenceError) Unwrap() error { return ErrDiverged }
