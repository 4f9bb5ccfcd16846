package system

import (
	"testing"
	"time"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase            { return r.phase }
func (r recorder) Update(_ time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"persist", PhasePersist, &log})
	r.Register(recorder{"physics", PhaseUpdate, &log})
	r.Register(recorder{"input", PhaseInput, &log})
	r.Register(recorder{"physics-2", PhaseUpdate, &log})
	r.Register(recorder{"output", PhaseOutput, &log})

	r.Tick(time.Millisecond)

	want := []string{"input", "physics", "physics-2", "output", "persist"}
	if len(log) != len(want) {
		t.Fatalf("ran %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("ran %v, want %v", log, want)
		}
	}
	if r.Ticks() != 1 {
		t.Fatalf("ticks = %d", r.Ticks())
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseUpdate.String() != "update" || Phase(42).String() != "phase(42)" {
		t.Fatalf("unexpected names %q %q", PhaseUpdate, Phase(42))
	}
}
