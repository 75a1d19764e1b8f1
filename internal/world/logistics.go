package world

import (
	"fmt"
	"sort"

	"plansynth/internal/kb"
	"plansynth/internal/logging"
	"plansynth/internal/pddl"
	"plansynth/internal/types"
)

// Location is a place a package or vehicle can be at.
type Location struct {
	Name    string
	City    string
	Airport bool
}

// City groups locations; Airports is the sorted subset flagged as airports.
type City struct {
	Name      string
	Locations []string
	Airports  []string
}

// Package is a transportable object. At is its location, or "" while it is
// inside the vehicle named by In.
type Package struct {
	Name string
	At   string
	In   string
}

// Vehicle is a truck or an airplane.
type Vehicle struct {
	Name string
	At   string
}

// Logistics is the transport-domain model.
type Logistics struct {
	Locations map[string]*Location
	Cities    map[string]*City
	Packages  map[string]*Package
	Trucks    map[string]*Vehicle
	Airplanes map[string]*Vehicle
	// Goals maps a package to its goal location.
	Goals map[string]string
}

type entityKind int

const (
	kindUnknown entityKind = iota
	kindPackage
	kindTruck
	kindAirplane
	kindLocation
	kindAirport
	kindCity
)

func kindOf(typ string) entityKind {
	switch typ {
	case "obj", "package":
		return kindPackage
	case "truck":
		return kindTruck
	case "airplane":
		return kindAirplane
	case "location":
		return kindLocation
	case "airport":
		return kindAirport
	case "city":
		return kindCity
	}
	return kindUnknown
}

// BuildLogistics builds the location graph and entity positions.
func BuildLogistics(p *pddl.Problem) (*Logistics, error) {
	l := &Logistics{
		Locations: make(map[string]*Location),
		Cities:    make(map[string]*City),
		Packages:  make(map[string]*Package),
		Trucks:    make(map[string]*Vehicle),
		Airplanes: make(map[string]*Vehicle),
		Goals:     make(map[string]string),
	}

	for _, name := range p.ObjectNames() {
		l.declare(name, kindOf(p.Objects[name]))
	}
	for _, f := range p.Init {
		if f.Arity() == 1 {
			if k := kindOf(f.Predicate); k != kindUnknown {
				l.declare(f.Args[0], k)
			}
		}
	}

	for _, f := range p.Init {
		switch f.Predicate {
		case "in-city":
			if f.Arity() != 2 {
				return nil, arityError(f, 2)
			}
			loc := l.location(f.Args[0])
			if loc.City != "" && loc.City != f.Args[1] {
				return nil, &types.InvalidStateError{Msg: fmt.Sprintf("location %s is in both %s and %s", loc.Name, loc.City, f.Args[1])}
			}
			loc.City = f.Args[1]
			c := l.city(f.Args[1])
			c.Locations = append(c.Locations, loc.Name)
		case "at":
			if f.Arity() != 2 {
				return nil, arityError(f, 2)
			}
			if err := l.place(f.Args[0], f.Args[1]); err != nil {
				return nil, err
			}
		case "in":
			if f.Arity() != 2 {
				return nil, arityError(f, 2)
			}
			pkg, ok := l.Packages[f.Args[0]]
			if !ok {
				pkg = &Package{Name: f.Args[0]}
				l.Packages[pkg.Name] = pkg
			}
			if _, truck := l.Trucks[f.Args[1]]; !truck {
				if _, plane := l.Airplanes[f.Args[1]]; !plane {
					return nil, &types.InvalidStateError{Msg: fmt.Sprintf("package %s is in %s, which is not a vehicle", pkg.Name, f.Args[1])}
				}
			}
			pkg.In = f.Args[1]
		}
	}

	if err := l.deriveAirports(p.Init); err != nil {
		return nil, err
	}

	for _, f := range p.Goal {
		if f.Predicate != "at" {
			logging.WorldDebug("ignoring goal fact %s", f)
			continue
		}
		if f.Arity() != 2 {
			return nil, arityError(f, 2)
		}
		obj := f.Args[0]
		if _, ok := l.Trucks[obj]; ok {
			return nil, &types.InvalidStateError{Msg: fmt.Sprintf("goal positions truck %s; only package goals are supported", obj)}
		}
		if _, ok := l.Airplanes[obj]; ok {
			return nil, &types.InvalidStateError{Msg: fmt.Sprintf("goal positions airplane %s; only package goals are supported", obj)}
		}
		if _, ok := l.Packages[obj]; !ok {
			l.Packages[obj] = &Package{Name: obj}
		}
		l.Goals[obj] = f.Args[1]
	}

	for _, c := range l.Cities {
		sort.Strings(c.Locations)
	}
	logging.WorldDebug("logistics model: %d cities, %d locations, %d packages, %d trucks, %d airplanes",
		len(l.Cities), len(l.Locations), len(l.Packages), len(l.Trucks), len(l.Airplanes))
	return l, nil
}

func (l *Logistics) declare(name string, k entityKind) {
	switch k {
	case kindPackage:
		if _, ok := l.Packages[name]; !ok {
			l.Packages[name] = &Package{Name: name}
		}
	case kindTruck:
		if _, ok := l.Trucks[name]; !ok {
			l.Trucks[name] = &Vehicle{Name: name}
		}
	case kindAirplane:
		if _, ok := l.Airplanes[name]; !ok {
			l.Airplanes[name] = &Vehicle{Name: name}
		}
	case kindLocation:
		l.location(name)
	case kindAirport:
		l.location(name).Airport = true
	case kindCity:
		l.city(name)
	}
}

func (l *Logistics) location(name string) *Location {
	loc, ok := l.Locations[name]
	if !ok {
		loc = &Location{Name: name}
		l.Locations[name] = loc
	}
	return loc
}

func (l *Logistics) city(name string) *City {
	c, ok := l.Cities[name]
	if !ok {
		c = &City{Name: name}
		l.Cities[name] = c
	}
	return c
}

func (l *Logistics) place(obj, loc string) error {
	if p, ok := l.Packages[obj]; ok {
		p.At = loc
		return nil
	}
	if t, ok := l.Trucks[obj]; ok {
		t.At = loc
		return nil
	}
	if a, ok := l.Airplanes[obj]; ok {
		a.At = loc
		return nil
	}
	// Untyped objects that are placed somewhere are packages.
	l.Packages[obj] = &Package{Name: obj, At: loc}
	return nil
}

// deriveAirports fills City.Airports from the fact base and checks that
// every positioned truck belongs to a city.
func (l *Logistics) deriveAirports(init []types.Fact) error {
	engine, err := kb.New(kb.LogisticsProgram)
	if err != nil {
		return err
	}
	if _, err := engine.AddFacts("lg_", init); err != nil {
		return err
	}
	for _, name := range sortedKeys(l.Locations) {
		if l.Locations[name].Airport {
			if err := engine.Add("lg_airport", name); err != nil {
				return err
			}
		}
	}
	for _, name := range sortedKeys(l.Trucks) {
		if err := engine.Add("lg_truck", name); err != nil {
			return err
		}
	}

	rows, err := engine.Query("lg_airport_of")
	if err != nil {
		return err
	}
	for _, r := range rows {
		c := l.city(r[0])
		c.Airports = append(c.Airports, r[1])
	}

	placed, err := engine.Query("lg_truck_city")
	if err != nil {
		return err
	}
	inCity := make(map[string]bool, len(placed))
	for _, r := range placed {
		inCity[r[0]] = true
	}
	for _, name := range sortedKeys(l.Trucks) {
		t := l.Trucks[name]
		if t.At != "" && !inCity[name] {
			return &types.UnknownLocationError{Location: t.At, Reason: "truck " + name + " is at a location without a city"}
		}
	}
	return nil
}

// CityOf returns the city of a declared location.
func (l *Logistics) CityOf(loc string) (string, error) {
	l0, ok := l.Locations[loc]
	if !ok {
		return "", &types.UnknownLocationError{Location: loc, Reason: "not declared"}
	}
	if l0.City == "" {
		return "", &types.UnknownLocationError{Location: loc, Reason: "belongs to no city"}
	}
	return l0.City, nil
}

// IsAirport reports whether loc is a declared airport.
func (l *Logistics) IsAirport(loc string) bool {
	l0, ok := l.Locations[loc]
	return ok && l0.Airport
}

// PackageNames returns package names, sorted.
func (l *Logistics) PackageNames() []string { return sortedKeys(l.Packages) }

// TruckNames returns truck names, sorted.
func (l *Logistics) TruckNames() []string { return sortedKeys(l.Trucks) }

// AirplaneNames returns airplane names, sorted.
func (l *Logistics) AirplaneNames() []string { return sortedKeys(l.Airplanes) }

// CityNames returns city names, sorted.
func (l *Logistics) CityNames() []string { return sortedKeys(l.Cities) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
