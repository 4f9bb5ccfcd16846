package event

// Every event carries the reset epoch and simulation step it was emitted at,
// so consumers dispatching a tick later record when it happened.

// BodyAdded is emitted after a client appends a body.
type BodyAdded struct {
	Epoch     uint64
	Step      uint64
	Index     int
	Mass      float64
	SessionID uint64
}

// SimulationReset is emitted after the body collection is restored to its
// construction-time template. Epoch is the new epoch; the step is always 0.
type SimulationReset struct {
	Epoch     uint64
	Bodies    int
	SessionID uint64
}

// SimulationDiverged is emitted once when a step first produces NaN or Inf.
type SimulationDiverged struct {
	Epoch uint64
	Step  uint64
	Index int
	Label string
}

// PauseChanged is emitted when the driver pauses or resumes stepping.
type PauseChanged struct {
	Epoch     uint64
	Step      uint64
	Paused    bool
	SessionID uint64
}
