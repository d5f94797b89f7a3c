package geo

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/polca/premise-sub000/internal/must"
	"github.com/polca/premise-sub000/internal/tables"
)

// DefaultSourceVersion is the inventory release whose location taxonomy
// the alias table follows when none is given.
const DefaultSourceVersion = "3.9"

type aliasDefinitions struct {
	Aliases   map[string]map[string]map[string]string `mapstructure:"aliases"`
	TieBreaks map[string][][]string                   `mapstructure:"tie_breaks"`
}

var (
	aliasTables aliasDefinitions
	// source model -> target model -> region
	remappingTables map[string]map[string]map[string]string
)

func init() {
	must.NoError(tables.Decode(mustRead("data/aliases.yaml"), &aliasTables))
	for model, tieBreaks := range aliasTables.TieBreaks {
		for _, tieBreak := range tieBreaks {
			must.Assert(len(tieBreak) == 3, fmt.Sprintf("tie break for %s must be [region, region, winner]", model))
		}
	}

	remappingTables = make(map[string]map[string]map[string]string)
	must.NoError(tables.Decode(mustRead("data/remapping.yaml"), &remappingTables))
}

// SourceVersions returns the inventory releases with an alias table.
func SourceVersions() []string {
	return slices.Sorted(maps.Keys(aliasTables.Aliases))
}

type regionPair struct{ a, b string }

func newRegionPair(a, b string) regionPair {
	if b < a {
		a, b = b, a
	}
	return regionPair{a, b}
}

// Geomap maps between inventory locations and the regions of one IAM
// model. Resolution failures never return errors: they degrade to RoW or
// to the global region and are logged.
type Geomap struct {
	index     *Index
	version   string
	aliases   map[string]string
	tieBreaks map[regionPair]string
}

type GeomapOption func(*geomapConfig)

type geomapConfig struct {
	version      string
	indexOptions []IndexOption
}

// WithSourceVersion selects the alias table of an inventory release.
func WithSourceVersion(version string) GeomapOption {
	return func(c *geomapConfig) {
		c.version = version
	}
}

func WithIndexOptions(opts ...IndexOption) GeomapOption {
	return func(c *geomapConfig) {
		c.indexOptions = append(c.indexOptions, opts...)
	}
}

func NewGeomap(model string, regions []string, opts ...GeomapOption) (*Geomap, error) {
	cfg := &geomapConfig{version: DefaultSourceVersion}
	for _, opt := range opts {
		opt(cfg)
	}

	versionAliases, found := aliasTables.Aliases[cfg.version]
	if !found {
		return nil, fmt.Errorf("no location aliases for inventory version %q (known: %s)", cfg.version, strings.Join(SourceVersions(), ", "))
	}

	index, err := NewIndex(model, regions, cfg.indexOptions...)
	if err != nil {
		return nil, err
	}

	geomap := &Geomap{
		index:     index,
		version:   cfg.version,
		aliases:   versionAliases[index.Model()],
		tieBreaks: make(map[regionPair]string),
	}

	for _, tieBreak := range aliasTables.TieBreaks[index.Model()] {
		geomap.tieBreaks[newRegionPair(tieBreak[0], tieBreak[1])] = tieBreak[2]
	}

	return geomap, nil
}

func (geomap *Geomap) Index() *Index { return geomap.index }

func (geomap *Geomap) Model() string { return geomap.index.Model() }

func (geomap *Geomap) GlobalRegion() string { return geomap.index.GlobalRegion() }

func (geomap *Geomap) Regions() []string { return geomap.index.Regions() }

func (geomap *Geomap) SourceVersion() string { return geomap.version }

// IAMToInventoryLocations returns the inventory locations contained in
// region (or intersecting it when contained is false). region is a bare or
// qualified region code, never read as an inventory location. GLO is only
// returned for the global region itself. Unresolvable regions yield RoW.
func (geomap *Geomap) IAMToInventoryLocations(region string, contained bool) []string {
	if !geomap.index.HasRegion(region) {
		slog.Warn("cannot resolve iam region to inventory locations, defaulting to RoW", "model", geomap.Model(), "region", region)
		return []string{RestOfWorld}
	}

	if Unqualify(region) == geomap.index.GlobalRegion() {
		return []string{Global}
	}

	qualified := geomap.index.Qualify(region)
	var locations []string
	if contained {
		locations = geomap.index.Contained(qualified, nil, QueryOptions{})
	} else {
		locations = geomap.index.Intersecting(qualified, nil, QueryOptions{})
	}

	locations = slices.DeleteFunc(locations, func(location string) bool {
		return location == Global || location == RestOfWorld
	})

	if len(locations) == 0 {
		slog.Warn("no inventory location matches iam region, defaulting to RoW", "model", geomap.Model(), "region", region, "contained", contained)
		return []string{RestOfWorld}
	}

	slices.Sort(locations)
	return locations
}

// InventoryToIAMLocation returns the IAM region best representing an
// inventory location: the location itself if it is a region, then the
// alias table, then containment, intersection and reverse containment.
// Ambiguities are settled by the tie-break table, unmatched locations map
// to the global region. A bare code naming both an inventory location and
// a region is read as the inventory location.
func (geomap *Geomap) InventoryToIAMLocation(location string) string {
	if geomap.index.IsRegion(location) {
		return Unqualify(location)
	}

	if location == Global || location == RestOfWorld {
		return geomap.GlobalRegion()
	}

	if region, found := geomap.aliases[location]; found && geomap.index.HasRegion(region) {
		return region
	}

	regions := geomap.index.QualifiedRegions()

	if within := geomap.index.Within(location, regions, QueryOptions{}); len(within) > 0 {
		return geomap.tieBreak(location, unqualify(within), false)
	}

	if intersecting := geomap.index.Intersecting(location, regions, QueryOptions{}); len(intersecting) > 0 {
		return geomap.tieBreak(location, unqualify(intersecting), true)
	}

	if contained := geomap.index.Contained(location, regions, QueryOptions{}); len(contained) > 0 {
		return geomap.tieBreak(location, unqualify(contained), false)
	}

	slog.Warn("cannot map inventory location to an iam region, defaulting to global region", "model", geomap.Model(), "location", location, "region", geomap.GlobalRegion())
	return geomap.GlobalRegion()
}

func unqualify(regions []string) []string {
	codes := make([]string, len(regions))
	for i, region := range regions {
		codes[i] = Unqualify(region)
	}
	return codes
}

// tieBreak picks one region among candidates, given by bare code. A candidate winning every
// documented pair it appears in is preferred; otherwise, for intersection
// matches the largest overlap wins, then the smallest (most specific)
// region, then alphabetical order.
func (geomap *Geomap) tieBreak(location string, candidates []string, byOverlap bool) string {
	if len(candidates) == 1 {
		return candidates[0]
	}

	winners := make([]string, 0)
	for _, candidate := range candidates {
		wins, loses := 0, 0
		for _, other := range candidates {
			if other == candidate {
				continue
			}
			winner, found := geomap.tieBreaks[newRegionPair(candidate, other)]
			if !found {
				continue
			}
			if winner == candidate {
				wins++
			} else {
				loses++
			}
		}
		if wins > 0 && loses == 0 {
			winners = append(winners, candidate)
		}
	}
	if len(winners) == 1 {
		return winners[0]
	}

	ranked := slices.Clone(candidates)
	lf, _ := geomap.index.faces(location)
	slices.SortFunc(ranked, func(a, b string) int {
		fa, _ := geomap.index.faces(geomap.index.Qualify(a))
		fb, _ := geomap.index.faces(geomap.index.Qualify(b))
		if byOverlap {
			if oa, ob := len(lf.intersection(fa)), len(lf.intersection(fb)); oa != ob {
				return ob - oa
			}
		}
		if len(fa) != len(fb) {
			return len(fa) - len(fb)
		}
		return strings.Compare(a, b)
	})

	slog.Debug("several iam regions match inventory location", "model", geomap.Model(), "location", location, "candidates", candidates, "chosen", ranked[0])
	return ranked[0]
}

// IAMToIAMRegion maps a region of another model onto a region of this
// Geomap's model. The mapping is static and total over the regions defined
// for the source model; anything else is an error.
func (geomap *Geomap) IAMToIAMRegion(location, fromModel string) (string, error) {
	if strings.EqualFold(fromModel, geomap.Model()) {
		if geomap.index.HasRegion(location) {
			return Unqualify(location), nil
		}
		return "", fmt.Errorf("%w: %s is not a %s region", ErrUnknownRegion, location, geomap.Model())
	}
	return remap(location, fromModel, geomap.Model())
}

// IAMToOtherModelRegion maps one of this Geomap's regions onto a region of
// toModel.
func (geomap *Geomap) IAMToOtherModelRegion(region, toModel string) (string, error) {
	return remap(region, geomap.Model(), toModel)
}

func remap(region, fromModel, toModel string) (string, error) {
	region = Unqualify(region)
	targets, found := remappingTables[strings.ToUpper(fromModel)]
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, fromModel)
	}
	table, found := targets[strings.ToUpper(toModel)]
	if !found {
		return "", fmt.Errorf("%w: no remapping from %s to %s", ErrUnknownModel, fromModel, toModel)
	}
	mapped, found := table[region]
	if !found {
		return "", fmt.Errorf("%w: %s is not a %s region", ErrUnknownRegion, region, strings.ToUpper(fromModel))
	}
	return mapped, nil
}
