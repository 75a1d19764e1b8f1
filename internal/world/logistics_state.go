package world

import (
	"fmt"

	"plansynth/internal/types"
)

// LogisticsState simulates the transport domain. Like BlocksState it checks
// preconditions, which lets synthesizers replay each action they emit.
type LogisticsState struct {
	model    *Logistics
	at       map[string]string // package or vehicle -> location
	in       map[string]string // package -> vehicle
	vehicles map[string]bool   // true for airplanes
}

// InitialState returns a fresh simulator positioned at the initial state.
func (l *Logistics) InitialState() *LogisticsState {
	s := &LogisticsState{
		model:    l,
		at:       make(map[string]string),
		in:       make(map[string]string),
		vehicles: make(map[string]bool),
	}
	for name, p := range l.Packages {
		if p.In != "" {
			s.in[name] = p.In
		} else if p.At != "" {
			s.at[name] = p.At
		}
	}
	for name, t := range l.Trucks {
		s.vehicles[name] = false
		if t.At != "" {
			s.at[name] = t.At
		}
	}
	for name, a := range l.Airplanes {
		s.vehicles[name] = true
		if a.At != "" {
			s.at[name] = a.At
		}
	}
	return s
}

// At returns the location of a package or vehicle, or "" when it is inside a
// vehicle or has no position.
func (s *LogisticsState) At(obj string) string { return s.at[obj] }

// Model returns the static model the state was built from.
func (s *LogisticsState) Model() *Logistics { return s.model }

// In returns the vehicle a package is in, or "".
func (s *LogisticsState) In(pkg string) string { return s.in[pkg] }

// Apply executes one action, failing without side effects when a
// precondition does not hold.
func (s *LogisticsState) Apply(a types.Action) error {
	switch a.Name {
	case "drive-truck":
		if len(a.Args) != 4 {
			return badArity(a, 4)
		}
		t, from, to, city := a.Args[0], a.Args[1], a.Args[2], a.Args[3]
		if err := s.checkVehicle(a, t, false, from); err != nil {
			return err
		}
		for _, loc := range []string{from, to} {
			if c, err := s.model.CityOf(loc); err != nil || c != city {
				return fmt.Errorf("%s: %s is not in %s", a, loc, city)
			}
		}
		s.at[t] = to
	case "fly-airplane":
		if len(a.Args) != 3 {
			return badArity(a, 3)
		}
		plane, from, to := a.Args[0], a.Args[1], a.Args[2]
		if err := s.checkVehicle(a, plane, true, from); err != nil {
			return err
		}
		if !s.model.IsAirport(from) || !s.model.IsAirport(to) {
			return fmt.Errorf("%s: airplanes fly between airports only", a)
		}
		s.at[plane] = to
	case "load-truck", "load-airplane":
		if len(a.Args) != 3 {
			return badArity(a, 3)
		}
		p, v, loc := a.Args[0], a.Args[1], a.Args[2]
		if err := s.checkVehicle(a, v, a.Name == "load-airplane", loc); err != nil {
			return err
		}
		if s.at[p] != loc {
			return fmt.Errorf("%s: %s is not at %s", a, p, loc)
		}
		delete(s.at, p)
		s.in[p] = v
	case "unload-truck", "unload-airplane":
		if len(a.Args) != 3 {
			return badArity(a, 3)
		}
		p, v, loc := a.Args[0], a.Args[1], a.Args[2]
		if err := s.checkVehicle(a, v, a.Name == "unload-airplane", loc); err != nil {
			return err
		}
		if s.in[p] != v {
			return fmt.Errorf("%s: %s is not in %s", a, p, v)
		}
		delete(s.in, p)
		s.at[p] = loc
	default:
		return fmt.Errorf("unknown transport action %s", a)
	}
	return nil
}

func (s *LogisticsState) checkVehicle(a types.Action, v string, airplane bool, loc string) error {
	isPlane, ok := s.vehicles[v]
	if !ok || isPlane != airplane {
		kind := "truck"
		if airplane {
			kind = "airplane"
		}
		return fmt.Errorf("%s: %s is not a %s", a, v, kind)
	}
	if s.at[v] != loc {
		return fmt.Errorf("%s: %s is not at %s", a, v, loc)
	}
	return nil
}

// Unsatisfied lists the package goals that do not hold, sorted by package.
func (s *LogisticsState) Unsatisfied() []string {
	var missing []string
	for _, p := range s.model.PackageNames() {
		goal, ok := s.model.Goals[p]
		if !ok {
			continue
		}
		if s.at[p] != goal {
			missing = append(missing, fmt.Sprintf("(at %s %s)", p, goal))
		}
	}
	return missing
}
