package geo

import (
	"embed"
	"fmt"
	"slices"

	"github.com/polca/premise-sub000/internal/must"
	"github.com/polca/premise-sub000/internal/tables"
)

const (
	Global      = "GLO"
	RestOfWorld = "RoW"
)

//go:embed data/*.yaml
var dataFS embed.FS

type aggregateDefinition struct {
	Members []string `mapstructure:"members"`
	Base    string   `mapstructure:"base"`
	Minus   []string `mapstructure:"minus"`
}

type topologyDefinition struct {
	Version    string                         `mapstructure:"version"`
	Countries  []string                       `mapstructure:"countries"`
	Aggregates map[string]aggregateDefinition `mapstructure:"aggregates"`
}

// Topology holds the face sets of every fine-grained inventory location.
type Topology struct {
	Version   string
	locations map[string]faces
	all       faces
}

var defaultTopology *Topology

func init() {
	var err error
	defaultTopology, err = parseTopology(mustRead("data/topology.yaml"))
	must.NoError(err)
}

func DefaultTopology() *Topology {
	return defaultTopology
}

func parseTopology(raw []byte) (*Topology, error) {
	var def topologyDefinition
	if err := tables.Decode(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to decode topology: %w", err)
	}

	topology := &Topology{
		Version:   def.Version,
		locations: make(map[string]faces, len(def.Countries)+len(def.Aggregates)+1),
	}

	ids := make([]int, 0, len(def.Countries))
	for i, country := range def.Countries {
		if _, found := topology.locations[country]; found {
			return nil, fmt.Errorf("country %q defined twice", country)
		}
		topology.locations[country] = faces{i}
		ids = append(ids, i)
	}
	topology.all = newFaces(ids...)
	topology.locations[Global] = topology.all

	resolving := make(map[string]bool)
	var resolve func(name string) (faces, error)
	resolve = func(name string) (faces, error) {
		if f, found := topology.locations[name]; found {
			return f, nil
		}
		agg, found := def.Aggregates[name]
		if !found {
			return nil, fmt.Errorf("unknown location %q", name)
		}
		if resolving[name] {
			return nil, fmt.Errorf("aggregate %q is defined in terms of itself", name)
		}
		resolving[name] = true

		var f faces
		if agg.Base != "" {
			base, err := resolve(agg.Base)
			if err != nil {
				return nil, fmt.Errorf("aggregate %q: %w", name, err)
			}
			f = base
		}
		for _, member := range agg.Members {
			mf, err := resolve(member)
			if err != nil {
				return nil, fmt.Errorf("aggregate %q: %w", name, err)
			}
			f = union(f, mf)
		}
		for _, excluded := range agg.Minus {
			ef, err := resolve(excluded)
			if err != nil {
				return nil, fmt.Errorf("aggregate %q: %w", name, err)
			}
			f = f.minus(ef)
		}

		topology.locations[name] = f
		return f, nil
	}

	for name := range def.Aggregates {
		if _, err := resolve(name); err != nil {
			return nil, err
		}
	}

	return topology, nil
}

// Faces returns the face set of a fine-grained location.
func (t *Topology) faces(location string) (faces, bool) {
	f, found := t.locations[location]
	return f, found
}

// union of the faces of the given members. Every member must be known.
func (t *Topology) union(members []string) (faces, error) {
	var f faces
	for _, member := range members {
		mf, found := t.faces(member)
		if !found {
			return nil, fmt.Errorf("unknown location %q", member)
		}
		f = union(f, mf)
	}
	return f, nil
}

// Locations returns every fine-grained location, sorted.
func (t *Topology) Locations() []string {
	locations := make([]string, 0, len(t.locations))
	for l := range t.locations {
		locations = append(locations, l)
	}
	slices.Sort(locations)
	return locations
}

func (t *Topology) Has(location string) bool {
	_, found := t.locations[location]
	return found
}

func mustRead(name string) []byte {
	raw, err := dataFS.ReadFile(name)
	must.NoError(err)
	return raw
}
