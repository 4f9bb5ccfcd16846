package scenario

import (
	"fmt"
	"sort"

	"github.com/orrery/server/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// daysPerYear converts ephemeris velocities from AU/day to AU/year.
const daysPerYear = 365.25

var named = map[string]func() []physics.Body{
	"sun_earth":      SunEarth,
	"sun_earth_moon": SunEarthMoon,
	"inner_solar":    InnerSolarSystem,
}

// Named returns a copy of the built-in scenario called name.
func Named(name string) ([]physics.Body, error) {
	fn, ok := named[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (have %v)", name, Names())
	}
	return fn(), nil
}

// Names lists the built-in scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sun() physics.Body {
	return physics.Body{Label: "Sun", Mass: 1}
}

func earth() physics.Body {
	return physics.Body{
		Label: "Earth",
		Mass:  3.0024584e-6,
		Pos:   r3.Vec{X: -9.051926231556208e-01, Y: -4.357809584563914e-01, Z: 7.171988139119006e-05},
		Vel: r3.Vec{
			X: daysPerYear * 7.299728965315843e-03,
			Y: daysPerYear * -1.550943326828365e-02,
			Z: daysPerYear * 1.434870704149275e-06,
		},
	}
}

// SunEarth is the reference two-body run: a resting Sun at the origin and
// the Earth from an ephemeris snapshot.
func SunEarth() []physics.Body {
	return []physics.Body{sun(), earth()}
}

// SunEarthMoon adds the Moon to SunEarth.
func SunEarthMoon() []physics.Body {
	return []physics.Body{
		sun(),
		earth(),
		{
			Label: "Moon",
			Mass:  3.694e-8,
			Pos:   r3.Vec{X: -9.035591935787990e-01, Y: -4.378567418590332e-01, Z: -6.878623310418610e-05},
			Vel: r3.Vec{
				X: daysPerYear * 7.764641165912587e-03,
				Y: daysPerYear * -1.518027599665743e-02,
				Z: daysPerYear * -4.050720177569951e-05,
			},
		},
	}
}

// InnerSolarSystem is the Sun with Mercury through Mars, velocities in AU/year.
func InnerSolarSystem() []physics.Body {
	return []physics.Body{
		{
			Label: "Sun",
			Mass:  1,
			Pos:   r3.Vec{X: -1.50324727873647e-6, Y: -3.93762725944737e-6, Z: -4.86567877183925e-8},
			Vel:   r3.Vec{X: 3.1669325898331e-5, Y: -6.85489559263319e-6, Z: -7.90076642683254e-7},
		},
		{
			Label: "Mercury",
			Mass:  1.65956463e-7,
			Pos:   r3.Vec{X: -0.346390408691506, Y: -0.272465544507684, Z: 0.00951633403684172},
			Vel:   r3.Vec{X: 4.25144321778261, Y: -7.61778341043381, Z: -1.01249478093275},
		},
		{
			Label: "Venus",
			Mass:  2.44699613e-6,
			Pos:   r3.Vec{X: -0.168003526072526, Y: 0.698844725464528, Z: 0.0192761582256879},
			Vel:   r3.Vec{X: -7.2077847105093, Y: -1.76778886124455, Z: 0.391700036358566},
		},
		{
			Label: "Earth",
			Mass:  3.0024584e-6,
			Pos:   r3.Vec{X: 0.648778995445634, Y: 0.747796691108466, Z: -3.22953591923124e-5},
			Vel:   r3.Vec{X: -4.85085525059392, Y: 4.09601538682312, Z: -0.000258553333317722},
		},
		{
			Label: "Mars",
			Mass:  3.213e-7,
			Pos:   r3.Vec{X: -0.574871406752105, Y: -1.395455041953879, Z: -0.01515164037265145},
			Vel:   r3.Vec{X: 4.9225288800471425, Y: -1.5065904473191791, Z: -0.1524041758922603},
		},
	}
}
