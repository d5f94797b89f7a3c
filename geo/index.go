package geo

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/polca/premise-sub000/internal/must"
	"github.com/polca/premise-sub000/internal/tables"
)

var (
	ErrUnknownModel  = errors.New("unknown iam model")
	ErrUnknownRegion = errors.New("unknown region")
)

type modelDefinition struct {
	Global  string              `mapstructure:"global"`
	Regions map[string][]string `mapstructure:"regions"`
}

var modelDefinitions map[string]modelDefinition

func init() {
	modelDefinitions = make(map[string]modelDefinition)
	must.NoError(tables.Decode(mustRead("data/iam_regions.yaml"), &modelDefinitions))
}

// Models returns the IAM models with known region definitions.
func Models() []string {
	return slices.Sorted(maps.Keys(modelDefinitions))
}

// DefaultRegions returns the regions an IAM model defines, sorted.
func DefaultRegions(model string) ([]string, error) {
	def, found := modelDefinitions[strings.ToUpper(model)]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return slices.Sorted(maps.Keys(def.Regions)), nil
}

// Region is an IAM region code qualified by its model. Bare region codes
// may name inventory locations too: IMAGE's ME is the Middle East while the
// inventory's ME is Montenegro.
type Region struct {
	Model string
	Code  string
}

const regionSeparator = "|"

// String returns the qualified code, e.g. "IMAGE|ME".
func (r Region) String() string { return r.Model + regionSeparator + r.Code }

// ParseRegion splits a qualified region code. Bare codes are not regions.
func ParseRegion(s string) (Region, bool) {
	model, code, found := strings.Cut(s, regionSeparator)
	if !found || model == "" || code == "" {
		return Region{}, false
	}
	return Region{Model: strings.ToUpper(model), Code: code}, true
}

// Unqualify returns the bare code of a qualified region, other locations
// unchanged.
func Unqualify(location string) string {
	if r, qualified := ParseRegion(location); qualified {
		return r.Code
	}
	return location
}

// Index is the geomatching relation between inventory locations and the
// regions of one IAM model. It is an explicit value: every scenario builds
// its own and nothing is shared between models. An Index is not safe for
// concurrent mutation.
type Index struct {
	topology *Topology
	model    string
	global   string
	// definitions known for this model, active or not
	definitions map[string][]string
	// active regions, resolved to faces
	regions map[Region]faces
}

type IndexOption func(*Index)

// WithDefinitions adds auxiliary region definitions (region -> inventory
// locations). They are only activated when requested.
func WithDefinitions(definitions map[string][]string) IndexOption {
	return func(index *Index) {
		for region, members := range definitions {
			index.definitions[region] = slices.Clone(members)
		}
	}
}

func WithTopology(topology *Topology) IndexOption {
	return func(index *Index) {
		index.topology = topology
	}
}

// NewIndex builds the relation for model with the given active regions. An
// empty region list activates every region the model defines.
func NewIndex(model string, regions []string, opts ...IndexOption) (*Index, error) {
	def, found := modelDefinitions[strings.ToUpper(model)]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	index := &Index{
		topology:    DefaultTopology(),
		model:       strings.ToUpper(model),
		global:      def.Global,
		definitions: make(map[string][]string, len(def.Regions)),
		regions:     make(map[Region]faces),
	}
	for region, members := range def.Regions {
		index.definitions[region] = members
	}

	for _, opt := range opts {
		if opt != nil {
			opt(index)
		}
	}

	if len(regions) == 0 {
		regions = slices.Sorted(maps.Keys(def.Regions))
	}

	if err := index.AddOrRemoveRegions(regions); err != nil {
		return nil, err
	}

	return index, nil
}

// AddOrRemoveRegions makes the active region set exactly regions: missing
// regions are inserted from the definitions table, regions not requested
// are removed so that they can no longer match containment queries. The
// global region is always implicitly known and never part of the set.
// Regions are given by bare or qualified code.
func (index *Index) AddOrRemoveRegions(regions []string) error {
	requested := make(map[Region]faces, len(regions))
	for _, code := range regions {
		region := Region{Model: index.model, Code: code}
		if r, qualified := ParseRegion(code); qualified {
			if r.Model != index.model {
				return fmt.Errorf("%w: %s is not a region of model %s", ErrUnknownRegion, code, index.model)
			}
			region = r
		}
		if region.Code == index.global {
			continue
		}
		if f, active := index.regions[region]; active {
			requested[region] = f
			continue
		}
		members, found := index.definitions[region.Code]
		if !found {
			return fmt.Errorf("%w: %s has no definition for model %s", ErrUnknownRegion, region.Code, index.model)
		}
		f, err := index.topology.union(members)
		if err != nil {
			return fmt.Errorf("region %s: %w", region.Code, err)
		}
		requested[region] = f
		slog.Debug("region added to geomatching index", "model", index.model, "region", region.Code)
	}

	for region := range index.regions {
		if _, keep := requested[region]; !keep {
			slog.Debug("region removed from geomatching index", "model", index.model, "region", region.Code)
		}
	}

	index.regions = requested
	return nil
}

func (index *Index) Model() string { return index.model }

// GlobalRegion returns the region code covering the whole world.
func (index *Index) GlobalRegion() string { return index.global }

// Regions returns the bare codes of the active regions, sorted.
func (index *Index) Regions() []string {
	codes := make([]string, 0, len(index.regions))
	for region := range index.regions {
		codes = append(codes, region.Code)
	}
	slices.Sort(codes)
	return codes
}

// QualifiedRegions returns the qualified codes of the active regions,
// sorted.
func (index *Index) QualifiedRegions() []string {
	codes := index.Regions()
	for i, code := range codes {
		codes[i] = Region{Model: index.model, Code: code}.String()
	}
	return codes
}

// region resolves a bare or qualified code to an active region or the
// global region of the index.
func (index *Index) region(code string) (Region, bool) {
	r, qualified := ParseRegion(code)
	if !qualified {
		r = Region{Model: index.model, Code: code}
	}
	if r.Model != index.model {
		return Region{}, false
	}
	if r.Code == index.global {
		return r, true
	}
	_, active := index.regions[r]
	return r, active
}

// HasRegion reports whether code, bare or qualified, names an active region
// or the global region. Use it where code is known to be a region.
func (index *Index) HasRegion(code string) bool {
	_, found := index.region(code)
	return found
}

// IsRegion reports whether location resolves to a region: a qualified
// active region, or a bare region code the inventory topology does not
// know. A bare code naming both resolves to the inventory location.
func (index *Index) IsRegion(location string) bool {
	if _, qualified := ParseRegion(location); !qualified && index.topology.Has(location) {
		return false
	}
	return index.HasRegion(location)
}

// Qualify returns the qualified code of a region given by bare or qualified
// code. Anything else is returned unchanged.
func (index *Index) Qualify(code string) string {
	if r, found := index.region(code); found {
		return r.String()
	}
	return code
}

func (index *Index) Topology() *Topology { return index.topology }

// faces resolves a location. Qualified codes are regions; a bare code is
// an inventory location when the topology knows it, a region otherwise.
func (index *Index) faces(location string) (faces, bool) {
	if _, qualified := ParseRegion(location); !qualified {
		if f, found := index.topology.faces(location); found {
			return f, true
		}
	}
	r, found := index.region(location)
	if !found {
		return nil, false
	}
	if r.Code == index.global {
		return index.topology.all, true
	}
	return index.regions[r], true
}

// Contains reports whether a fully covers b.
func (index *Index) Contains(a, b string) bool {
	fa, okA := index.faces(a)
	fb, okB := index.faces(b)
	return okA && okB && fa.contains(fb)
}

func (index *Index) Intersects(a, b string) bool {
	fa, okA := index.faces(a)
	fb, okB := index.faces(b)
	return okA && okB && fa.intersects(fb)
}

// Size returns the number of faces of a location, 0 if unknown.
func (index *Index) Size(location string) int {
	f, _ := index.faces(location)
	return len(f)
}

// Covers reports whether the union of parts covers the whole of location.
// RoW among parts is resolved relative to the other parts.
func (index *Index) Covers(location string, parts []string) bool {
	target, found := index.faces(location)
	if !found {
		return false
	}
	resolved := index.resolve(parts)
	covered := make([]faces, 0, len(resolved))
	for _, f := range resolved {
		covered = append(covered, f)
	}
	return len(target.minus(union(covered...))) == 0
}

type QueryOptions struct {
	// Exclusive drops results overlapping a result already retained
	Exclusive bool
	// BiggestFirst orders results by decreasing size, default is smallest
	// first so that fine-grained locations win exclusive queries
	BiggestFirst bool
}

// Contained returns the locations among only that are covered by key, key
// itself included. A nil only means every known inventory location.
func (index *Index) Contained(key string, only []string, opts QueryOptions) []string {
	return index.query(key, only, opts, func(k, candidate faces) bool {
		return k.contains(candidate)
	})
}

// Intersecting returns the locations among only that share at least one
// face with key.
func (index *Index) Intersecting(key string, only []string, opts QueryOptions) []string {
	return index.query(key, only, opts, func(k, candidate faces) bool {
		return k.intersects(candidate)
	})
}

// Within returns the locations among only that fully cover key.
func (index *Index) Within(key string, only []string, opts QueryOptions) []string {
	return index.query(key, only, opts, func(k, candidate faces) bool {
		return candidate.contains(k)
	})
}

func (index *Index) query(key string, only []string, opts QueryOptions, match func(k, candidate faces) bool) []string {
	k, found := index.faces(key)
	if !found {
		slog.Debug("location unknown to geomatching index", "model", index.model, "location", key)
		return nil
	}

	if only == nil {
		only = index.topology.Locations()
	}

	resolved := index.resolve(only)
	matches := make([]string, 0)
	for location, f := range resolved {
		if match(k, f) {
			matches = append(matches, location)
		}
	}

	slices.SortFunc(matches, func(a, b string) int {
		sa, sb := len(resolved[a]), len(resolved[b])
		if sa != sb {
			if opts.BiggestFirst {
				return sb - sa
			}
			return sa - sb
		}
		return strings.Compare(a, b)
	})

	if !opts.Exclusive {
		return matches
	}

	exclusive := make([]string, 0, len(matches))
	var taken faces
	for _, location := range matches {
		if resolved[location].intersects(taken) {
			continue
		}
		exclusive = append(exclusive, location)
		taken = union(taken, resolved[location])
	}
	return exclusive
}

// resolve maps locations to faces. RoW is the part of the world not covered
// by any other location of the same list. Unknown locations are skipped.
func (index *Index) resolve(locations []string) map[string]faces {
	resolved := make(map[string]faces, len(locations))
	hasRoW := false
	for _, location := range locations {
		if location == RestOfWorld {
			hasRoW = true
			continue
		}
		f, found := index.faces(location)
		if !found {
			slog.Debug("skipping location unknown to geomatching index", "model", index.model, "location", location)
			continue
		}
		resolved[location] = f
	}

	if hasRoW {
		row := index.restOfWorld(slices.Collect(maps.Keys(resolved)))
		if len(row) > 0 {
			resolved[RestOfWorld] = row
		}
	}

	return resolved
}

// restOfWorld returns the faces not covered by any of the siblings.
func (index *Index) restOfWorld(siblings []string) faces {
	covered := make([]faces, 0, len(siblings))
	for _, sibling := range siblings {
		if sibling == RestOfWorld {
			continue
		}
		if f, found := index.faces(sibling); found {
			covered = append(covered, f)
		}
	}
	return index.topology.all.minus(union(covered...))
}
