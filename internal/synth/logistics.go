package synth

import (
	"fmt"
	"strings"

	"plansynth/internal/logging"
	"plansynth/internal/pddl"
	"plansynth/internal/types"
	"plansynth/internal/world"
)

// Logistics synthesizes transport plans one package at a time: truck to the
// origin airport, fly to the destination airport, truck to the goal. Legs
// that are not needed are skipped.
type Logistics struct{}

// Synthesize implements Synthesizer.
func (Logistics) Synthesize(p *pddl.Problem) (types.Plan, error) {
	l, err := world.BuildLogistics(p)
	if err != nil {
		return nil, err
	}
	return SynthesizeLogistics(l)
}

// Stage is where a package is on its way to its goal.
type Stage int

const (
	AtSource Stage = iota
	AtOriginAirport
	AtDestinationAirport
	AtGoal
)

func (s Stage) String() string {
	switch s {
	case AtSource:
		return "at-source"
	case AtOriginAirport:
		return "at-origin-airport"
	case AtDestinationAirport:
		return "at-destination-airport"
	case AtGoal:
		return "at-goal"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

type transport struct {
	model *world.Logistics
	state *world.LogisticsState
	rec   *recorder
}

// SynthesizeLogistics plans from an already built model.
func SynthesizeLogistics(l *world.Logistics) (types.Plan, error) {
	state := l.InitialState()
	t := &transport{model: l, state: state, rec: &recorder{apply: state.Apply}}

	for _, pkg := range l.PackageNames() {
		goal, ok := l.Goals[pkg]
		if !ok {
			logging.SynthDebug("package %s has no goal", pkg)
			continue
		}
		if err := t.deliver(pkg, goal); err != nil {
			return nil, err
		}
	}

	if missing := state.Unsatisfied(); len(missing) > 0 {
		return nil, fmt.Errorf("transport plan leaves goals unsatisfied: %s", strings.Join(missing, " "))
	}
	if t.rec.plan == nil {
		t.rec.plan = types.Plan{}
	}
	return t.rec.plan, nil
}

func (t *transport) deliver(pkg, goal string) error {
	goalCity, err := t.model.CityOf(goal)
	if err != nil {
		return err
	}

	if v := t.state.In(pkg); v != "" {
		if err := t.unloadInPlace(pkg, v); err != nil {
			return err
		}
	}

	from := t.state.At(pkg)
	if from == "" {
		return &types.MissingInitialStateError{Entity: "package " + pkg}
	}
	if from == goal {
		logging.SynthDebug("package %s: %s", pkg, AtGoal)
		return nil
	}
	fromCity, err := t.model.CityOf(from)
	if err != nil {
		return err
	}

	if fromCity == goalCity {
		if err := t.byTruck(pkg, from, goal, fromCity); err != nil {
			return err
		}
		t.stage(pkg, AtGoal)
		return nil
	}

	origin, err := t.airportFor(pkg, from, fromCity)
	if err != nil {
		return err
	}
	dest, err := t.airportFor(pkg, goal, goalCity)
	if err != nil {
		return err
	}

	t.stage(pkg, AtSource)
	if from != origin {
		if err := t.byTruck(pkg, from, origin, fromCity); err != nil {
			return err
		}
	}
	t.stage(pkg, AtOriginAirport)
	if err := t.byAirplane(pkg, origin, dest); err != nil {
		return err
	}
	t.stage(pkg, AtDestinationAirport)
	if dest != goal {
		if err := t.byTruck(pkg, dest, goal, goalCity); err != nil {
			return err
		}
	}
	t.stage(pkg, AtGoal)
	return nil
}

func (t *transport) stage(pkg string, s Stage) {
	logging.SynthDebug("package %s: %s at %s", pkg, s, t.state.At(pkg))
}

// unloadInPlace takes a package out of the vehicle it starts in, wherever
// that vehicle stands.
func (t *transport) unloadInPlace(pkg, vehicle string) error {
	loc := t.state.At(vehicle)
	if loc == "" {
		return &types.MissingInitialStateError{Entity: "vehicle " + vehicle}
	}
	action := "unload-truck"
	if _, ok := t.model.Airplanes[vehicle]; ok {
		action = "unload-airplane"
	}
	return t.rec.emit(action, pkg, vehicle, loc)
}

// airportFor returns loc itself when it is an airport, otherwise the
// smallest-named airport of city.
func (t *transport) airportFor(pkg, loc, city string) (string, error) {
	if t.model.IsAirport(loc) {
		return loc, nil
	}
	airports := t.model.Cities[city].Airports
	if len(airports) == 0 {
		return "", &types.UnreachableGoalError{Package: pkg, Reason: "city " + city + " has no airport"}
	}
	return airports[0], nil
}

func (t *transport) byTruck(pkg, from, to, city string) error {
	truck, err := t.pickTruck(pkg, from, city)
	if err != nil {
		return err
	}
	if at := t.state.At(truck); at != from {
		if err := t.rec.emit("drive-truck", truck, at, from, city); err != nil {
			return err
		}
	}
	if err := t.rec.emit("load-truck", pkg, truck, from); err != nil {
		return err
	}
	if err := t.rec.emit("drive-truck", truck, from, to, city); err != nil {
		return err
	}
	return t.rec.emit("unload-truck", pkg, truck, to)
}

// pickTruck prefers a truck already at loc, then any truck in city. Ties go
// to the smallest name.
func (t *transport) pickTruck(pkg, loc, city string) (string, error) {
	var inCity string
	for _, name := range t.model.TruckNames() {
		at := t.state.At(name)
		if at == "" {
			continue
		}
		if at == loc {
			return name, nil
		}
		if inCity == "" {
			if c, err := t.model.CityOf(at); err == nil && c == city {
				inCity = name
			}
		}
	}
	if inCity == "" {
		return "", &types.UnreachableGoalError{Package: pkg, Reason: "no truck in city " + city}
	}
	return inCity, nil
}

func (t *transport) byAirplane(pkg, from, to string) error {
	plane, err := t.pickAirplane(pkg, from)
	if err != nil {
		return err
	}
	if at := t.state.At(plane); at != from {
		if err := t.rec.emit("fly-airplane", plane, at, from); err != nil {
			return err
		}
	}
	if err := t.rec.emit("load-airplane", pkg, plane, from); err != nil {
		return err
	}
	if err := t.rec.emit("fly-airplane", plane, from, to); err != nil {
		return err
	}
	return t.rec.emit("unload-airplane", pkg, plane, to)
}

// pickAirplane prefers an airplane at airport, then the smallest-named
// airplane parked at any airport.
func (t *transport) pickAirplane(pkg, airport string) (string, error) {
	var fallback string
	for _, name := range t.model.AirplaneNames() {
		at := t.state.At(name)
		if at == airport {
			return name, nil
		}
		if fallback == "" && t.model.IsAirport(at) {
			fallback = name
		}
	}
	if fallback == "" {
		return "", &types.UnreachableGoalError{Package: pkg, Reason: "no airplane available"}
	}
	return fallback, nil
}
