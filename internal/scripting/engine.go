package scripting

import (
	"fmt"

	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/scenario"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/spatial/r3"
)

// Engine wraps a single gopher-lua VM used to build scripted scenarios.
// Single-goroutine access only.
//
// A scenario script defines a global function
//
//	function build_scenario(params)
//	  -- params.count, params.diameter, params.seed
//	  return { {label = "a", mass = 1, x = 0, y = 0, z = 0, vx = 0, vy = 0, vz = 0}, ... }
//	end
//
// and may call randn() and uniform(), which draw from a sampler seeded with
// params.seed so scripted runs replay like generated clusters.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

var _ scenario.Scripter = (*Engine)(nil)

func NewEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

func (e *Engine) Close() {
	e.vm.Close()
}

// RunScenario loads the script at path and returns the bodies its
// build_scenario function produces.
func (e *Engine) RunScenario(path string, p scenario.ClusterParams) ([]physics.Body, error) {
	bodies, err := e.run(func() error { return e.vm.DoFile(path) }, p)
	if err != nil {
		return nil, fmt.Errorf("lua scenario %s: %w", path, err)
	}
	e.log.Debug("lua scenario built", zap.String("file", path), zap.Int("bodies", len(bodies)))
	return bodies, nil
}

// RunScenarioString is RunScenario for an in-memory script.
func (e *Engine) RunScenarioString(src string, p scenario.ClusterParams) ([]physics.Body, error) {
	return e.run(func() error { return e.vm.DoString(src) }, p)
}

func (e *Engine) run(load func() error, p scenario.ClusterParams) ([]physics.Body, error) {
	sampler := scenario.NewSampler(p.Seed)
	e.vm.SetGlobal("randn", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(sampler.Normal()))
		return 1
	}))
	e.vm.SetGlobal("uniform", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(sampler.Uniform()))
		return 1
	}))
	e.vm.SetGlobal("build_scenario", lua.LNil)

	if err := load(); err != nil {
		return nil, err
	}

	fn := e.vm.GetGlobal("build_scenario")
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("build_scenario is not defined")
	}

	params := e.vm.NewTable()
	params.RawSetString("count", lua.LNumber(p.Count))
	params.RawSetString("diameter", lua.LNumber(p.Diameter))
	params.RawSetString("seed", lua.LNumber(p.Seed))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, params); err != nil {
		return nil, err
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("build_scenario returned %s, want table", ret.Type())
	}
	return bodiesFromTable(tbl)
}

func bodiesFromTable(tbl *lua.LTable) ([]physics.Body, error) {
	n := tbl.Len()
	bodies := make([]physics.Body, 0, n)
	for i := 1; i <= n; i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, &physics.ConfigError{Field: fmt.Sprintf("bodies[%d]", i-1), Reason: "not a table"}
		}
		var vals [7]float64
		for k, key := range []string{"mass", "x", "y", "z", "vx", "vy", "vz"} {
			v, err := number(entry, key, i-1)
			if err != nil {
				return nil, err
			}
			vals[k] = v
		}
		b := physics.Body{
			Mass: vals[0],
			Pos:  r3.Vec{X: vals[1], Y: vals[2], Z: vals[3]},
			Vel:  r3.Vec{X: vals[4], Y: vals[5], Z: vals[6]},
		}
		if s, ok := entry.RawGetString("label").(lua.LString); ok {
			b.Label = norm.NFC.String(string(s))
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func number(t *lua.LTable, key string, index int) (float64, error) {
	switch v := t.RawGetString(key).(type) {
	case lua.LNumber:
		return float64(v), nil
	case *lua.LNilType:
		return 0, &physics.ConfigError{Field: fmt.Sprintf("bodies[%d].%s", index, key), Reason: "missing"}
	default:
		return 0, &physics.ConfigError{Field: fmt.Sprintf("bodies[%d].%s", index, key), Reason: "not a number"}
	}
}
