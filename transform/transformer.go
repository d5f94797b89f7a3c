// Package transform regionalizes datasets and rewires their technosphere
// inputs to suppliers matching their new location.
package transform

import (
	"errors"
	"slices"

	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
	"github.com/polca/premise-sub000/internal/audit"
	"github.com/polca/premise-sub000/internal/cache"
	"github.com/polca/premise-sub000/internal/metrics"
)

var ErrNoSource = errors.New("no source dataset")

// DefaultFallbackLocations are the regional aggregates tried, in order, once
// RoW and GLO suppliers are exhausted. They are inventory release specific.
var DefaultFallbackLocations = []string{
	"RER",
	"Europe without Switzerland",
	"RER w/o CH+DE",
	"RER w/o RU",
	"RER w/o DE+NL+RU",
	"Europe without Austria",
	"Europe without Switzerland and Austria",
}

// Transformer applies the proxy and relinking engines to the working
// database of one scenario. Its resolution cache is only valid for the
// Geomap it was built with: never share a Transformer across scenarios.
type Transformer struct {
	db     *premise.Database
	geomap *geo.Geomap
	sector string

	*state
}

// state is shared by the sector views of a Transformer.
type state struct {
	cache          *cache.Memory[relinkKey, resolution]
	audit          *audit.Log
	metrics        *metrics.Recorder
	dropUnresolved bool
	intersection   bool
	fallbacks      []string
	unresolved     int
	dropped        int
	missing        []MissingProxy
	// codes of the datasets created for an IAM region
	regional map[string]struct{}
}

// MissingProxy is a region FetchProxies found no source dataset for.
type MissingProxy struct {
	Name    string
	Product string
	Region  string
	Sector  string
}

type Option func(*Transformer)

// WithDropUnresolved removes exchanges that cannot be resolved instead of
// flagging them.
func WithDropUnresolved() Option {
	return func(t *Transformer) {
		t.dropUnresolved = true
	}
}

// WithIntersection resolves suppliers by intersection instead of
// containment.
func WithIntersection() Option {
	return func(t *Transformer) {
		t.intersection = true
	}
}

// WithFallbackLocations replaces DefaultFallbackLocations.
func WithFallbackLocations(locations ...string) Option {
	return func(t *Transformer) {
		t.fallbacks = slices.Clone(locations)
	}
}

// WithCache bounds the resolution cache to size entries. A size of zero or
// less keeps every resolution.
func WithCache(size int) Option {
	return func(t *Transformer) {
		t.cache = cache.NewMemory[relinkKey, resolution](size)
	}
}

func WithAudit(log *audit.Log) Option {
	return func(t *Transformer) {
		t.audit = log
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(t *Transformer) {
		t.metrics = recorder
	}
}

func New(db *premise.Database, geomap *geo.Geomap, opts ...Option) *Transformer {
	t := &Transformer{
		db:     db,
		geomap: geomap,
		sector: "default",
		state: &state{
			cache:     cache.NewMemory[relinkKey, resolution](0),
			fallbacks: slices.Clone(DefaultFallbackLocations),
			regional:  make(map[string]struct{}),
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ForSector returns a view of the transformer recording audit entries and
// metrics under sector. Views share the database, cache and counters.
func (t *Transformer) ForSector(sector string) *Transformer {
	view := *t
	view.sector = sector
	return &view
}

func (t *Transformer) Sector() string { return t.sector }

func (t *Transformer) Database() *premise.Database { return t.db }

func (t *Transformer) Geomap() *geo.Geomap { return t.geomap }

// Unresolved returns the number of exchanges left unresolved so far.
func (t *Transformer) Unresolved() int { return t.unresolved }

// Dropped returns the number of unresolved exchanges removed so far.
func (t *Transformer) Dropped() int { return t.dropped }

// Missing returns the regions left without a proxy so far.
func (t *Transformer) Missing() []MissingProxy { return slices.Clone(t.missing) }

// locationOf returns the location of a as the geomatching index reads it.
// Datasets created for a region carry the qualified region code, so that a
// proxy for IMAGE's ME (Middle East) is never read as Montenegro.
func (t *Transformer) locationOf(a *premise.Activity) string {
	index := t.geomap.Index()
	if _, regional := t.regional[a.Code]; regional {
		return index.Qualify(a.Location)
	}
	if index.IsRegion(a.Location) {
		return index.Qualify(a.Location)
	}
	return a.Location
}

// Region returns the IAM region an activity belongs to.
func (t *Transformer) Region(a *premise.Activity) string {
	return t.geomap.InventoryToIAMLocation(t.locationOf(a))
}
