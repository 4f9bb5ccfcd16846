package event

import "testing"

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e BodyAdded) { got = append(got, e.Index) })

	Emit(b, BodyAdded{Index: 1})
	Emit(b, BodyAdded{Index: 2})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("delivered before swap: %v", got)
	}
	if b.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", b.Pending())
	}

	b.SwapBuffers()
	Emit(b, BodyAdded{Index: 3})
	b.DispatchAll()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 3 {
		t.Fatalf("events redelivered: %v", got)
	}
}

func TestBusRoutesByType(t *testing.T) {
	b := NewBus()
	var resets, pauses int
	Subscribe(b, func(SimulationReset) { resets++ })
	Subscribe(b, func(e PauseChanged) {
		if e.Paused {
			pauses++
		}
	})

	Emit(b, SimulationReset{Bodies: 2})
	Emit(b, PauseChanged{Paused: true})
	Emit(b, SimulationDiverged{Step: 9}) // no subscriber
	b.SwapBuffers()
	b.DispatchAll()

	if resets != 1 || pauses != 1 {
		t.Fatalf("resets = %d, pauses = %d", resets, pauses)
	}
}

func TestBusPreservesOrderAcrossTypes(t *testing.T) {
	for run := 0; run < 50; run++ {
		b := NewBus()
		var got []string
		Subscribe(b, func(BodyAdded) { got = append(got, "add") })
		Subscribe(b, func(SimulationReset) { got = append(got, "reset") })
		Subscribe(b, func(PauseChanged) { got = append(got, "pause") })

		Emit(b, BodyAdded{Index: 1})
		Emit(b, SimulationReset{Bodies: 1})
		Emit(b, PauseChanged{Paused: true})
		Emit(b, BodyAdded{Index: 1})
		b.SwapBuffers()
		b.DispatchAll()

		want := []string{"add", "reset", "pause", "add"}
		if len(got) != len(want) {
			t.Fatalf("run %d: got %v, want %v", run, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d: got %v, want %v", run, got, want)
			}
		}
	}
}
