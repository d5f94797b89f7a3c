package transform

import (
	"log/slog"
	"math"
	"slices"

	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
	"github.com/polca/premise-sub000/internal/metrics"
	"gonum.org/v1/gonum/floats"
)

// relinkKey identifies a resolution: the suppliers of (name, product, unit)
// best serving a consumer at location. Locations of regional datasets are
// qualified region codes, here and in supply.
type relinkKey struct {
	location string
	name     string
	product  string
	unit     string
}

type supply struct {
	location string
	share    float64
}

type resolution struct {
	outcome   string
	suppliers []supply
}

// Report counts the outcome of relinking technosphere exchanges.
type Report struct {
	// supplier at the consumer location
	Exact int
	// single supplier found through geomatching
	Geo int
	// exchanges split across several suppliers
	Split int
	// supplier taken from the fallback chain
	Fallback   int
	Unresolved int
	Dropped    int
	CacheHits  int
}

func (r *Report) add(o Report) {
	r.Exact += o.Exact
	r.Geo += o.Geo
	r.Split += o.Split
	r.Fallback += o.Fallback
	r.Unresolved += o.Unresolved
	r.Dropped += o.Dropped
	r.CacheHits += o.CacheHits
}

func (r *Report) count(outcome string) {
	switch outcome {
	case metrics.OutcomeExact:
		r.Exact++
	case metrics.OutcomeGeo:
		r.Geo++
	case metrics.OutcomeSplit:
		r.Split++
	case metrics.OutcomeFallback:
		r.Fallback++
	case metrics.OutcomeUnresolved:
		r.Unresolved++
	case metrics.OutcomeDropped:
		r.Dropped++
	}
}

// Relink points every technosphere exchange of activity at the suppliers
// best serving its location, splitting exchanges across several suppliers
// when no single one covers it. Amounts are conserved.
func (t *Transformer) Relink(activity *premise.Activity) Report {
	return t.relink(activity, func(*premise.Exchange) bool { return true })
}

// RelinkAll relinks every activity matching filters.
func (t *Transformer) RelinkAll(filters ...premise.Filter) Report {
	var report Report
	for _, a := range t.db.Select(filters...) {
		report.add(t.Relink(a))
	}
	return report
}

// RelinkDangling relinks the technosphere exchanges pointing at a supplier
// that no longer exists, typically after datasets were replaced by
// regional proxies.
func (t *Transformer) RelinkDangling() Report {
	keys := make(map[premise.Key]struct{}, t.db.Len())
	for _, a := range t.db.Activities() {
		keys[a.Key()] = struct{}{}
	}

	var report Report
	for _, a := range t.db.Activities() {
		report.add(t.relink(a, func(exc *premise.Exchange) bool {
			if exc.Unresolved {
				return false
			}
			_, found := keys[exc.SupplierKey()]
			return !found
		}))
	}
	return report
}

func (t *Transformer) relink(activity *premise.Activity, selected func(*premise.Exchange) bool) Report {
	var report Report
	exchanges := make([]premise.Exchange, 0, len(activity.Exchanges))

	for _, exc := range activity.Exchanges {
		if exc.Type != premise.Technosphere || !selected(&exc) {
			exchanges = append(exchanges, exc)
			continue
		}

		key := relinkKey{location: t.locationOf(activity), name: exc.Name, product: exc.Product, unit: exc.Unit}
		res, hit := t.lookup(key)
		if hit {
			report.CacheHits++
		}

		switch {
		case len(res.suppliers) == 0:
			slog.Warn("no supplier found for exchange", "activity", activity.Key().String(), "exchange", exc.SupplierKey().String(), "unit", exc.Unit, "sector", t.sector)
			t.unresolved++
			if t.dropUnresolved {
				t.dropped++
				report.count(metrics.OutcomeDropped)
				t.metrics.Relinked(metrics.OutcomeDropped)
				continue
			}
			exc.Unresolved = true
			exc.Input = ""
			exchanges = append(exchanges, exc)

		case len(res.suppliers) == 1:
			exc.Location = geo.Unqualify(res.suppliers[0].location)
			exc.Input = t.supplierCode(key, res.suppliers[0].location)
			exc.Unresolved = false
			exchanges = append(exchanges, exc)

		default:
			exchanges = append(exchanges, t.split(key, exc, res.suppliers)...)
		}

		report.count(res.outcome)
		t.metrics.Relinked(res.outcome)
	}

	activity.Exchanges = exchanges
	return report
}

// split divides exc across suppliers by share. The last part takes the
// remainder so the parts sum exactly to the original amount.
func (t *Transformer) split(key relinkKey, exc premise.Exchange, suppliers []supply) []premise.Exchange {
	parts := make([]premise.Exchange, 0, len(suppliers))
	allocated := 0.0
	for i, s := range suppliers {
		part := exc.Clone()
		part.Location = geo.Unqualify(s.location)
		part.Input = t.supplierCode(key, s.location)
		part.Unresolved = false
		part.Amount = exc.Amount * s.share
		if i == len(suppliers)-1 {
			part.Amount = exc.Amount - allocated
		}
		allocated += part.Amount
		part.Uncertainty.Multiply(s.share)
		parts = append(parts, part)
	}
	return parts
}

// lookup returns the resolution of key, from the cache when possible.
// Cached resolutions whose suppliers disappeared are recomputed.
func (t *Transformer) lookup(key relinkKey) (resolution, bool) {
	if res, err := t.cache.Get(key); err == nil && t.available(key, res) {
		t.metrics.CacheLookup(true)
		return res, true
	}
	t.metrics.CacheLookup(false)

	res := t.resolve(key)
	t.cache.Set(key, res)
	return res, false
}

func (t *Transformer) available(key relinkKey, res resolution) bool {
	for _, s := range res.suppliers {
		if t.supplier(key, s.location) == nil {
			slog.Debug("cached resolution is stale", "location", key.location, "name", key.name, "supplier", s.location)
			return false
		}
	}
	return true
}

func (t *Transformer) supplier(key relinkKey, location string) *premise.Activity {
	for _, a := range t.db.Suppliers(key.name, key.product, key.unit) {
		if t.locationOf(a) == location {
			return a
		}
	}
	return nil
}

func (t *Transformer) supplierCode(key relinkKey, location string) string {
	if a := t.supplier(key, location); a != nil {
		return a.Code
	}
	return ""
}

// resolve finds the suppliers of key: the one at the consumer location,
// else the candidates contained in (or intersecting) it completed by RoW
// when they leave gaps, else the first of RoW, GLO and the fallback
// locations available.
func (t *Transformer) resolve(key relinkKey) resolution {
	candidates := t.db.Suppliers(key.name, key.product, key.unit)
	if len(candidates) == 0 {
		return resolution{outcome: metrics.OutcomeUnresolved}
	}

	locations := make([]string, 0, len(candidates))
	volumes := make(map[string]float64, len(candidates))
	for _, a := range candidates {
		location := t.locationOf(a)
		if _, found := volumes[location]; found {
			continue
		}
		locations = append(locations, location)
		volumes[location] = a.ProductionVolume()
	}

	if slices.Contains(locations, key.location) {
		return resolution{outcome: metrics.OutcomeExact, suppliers: []supply{{location: key.location, share: 1}}}
	}

	// catch-all consumers are served by a catch-all supplier, else by a
	// split over the regions of the world
	index := t.geomap.Index()
	target := key.location
	if target == geo.RestOfWorld || target == geo.Global {
		target = index.Qualify(t.geomap.GlobalRegion())
		for _, location := range []string{target, geo.RestOfWorld, geo.Global} {
			if slices.Contains(locations, location) {
				return resolution{outcome: metrics.OutcomeGeo, suppliers: []supply{{location: location, share: 1}}}
			}
		}
	}

	named := slices.DeleteFunc(slices.Clone(locations), func(location string) bool {
		return location == geo.RestOfWorld || location == geo.Global
	})

	opts := geo.QueryOptions{Exclusive: true}
	var matches []string
	if len(named) > 0 && !t.intersection {
		matches = index.Contained(target, named, opts)
	}
	if len(named) > 0 && len(matches) == 0 {
		matches = index.Intersecting(target, named, opts)
	}

	if len(matches) > 0 {
		if slices.Contains(locations, geo.RestOfWorld) && !index.Covers(target, matches) {
			matches = append(matches, geo.RestOfWorld)
		}
		suppliers := weigh(matches, volumes)
		if len(suppliers) == 1 {
			return resolution{outcome: metrics.OutcomeGeo, suppliers: suppliers}
		}
		return resolution{outcome: metrics.OutcomeSplit, suppliers: suppliers}
	}

	chain := append([]string{geo.RestOfWorld, geo.Global}, t.fallbacks...)
	for _, location := range chain {
		if slices.Contains(locations, location) {
			slog.Debug("supplier taken from fallback location", "location", key.location, "name", key.name, "supplier", location)
			return resolution{outcome: metrics.OutcomeFallback, suppliers: []supply{{location: location, share: 1}}}
		}
	}

	return resolution{outcome: metrics.OutcomeUnresolved}
}

// weigh returns production volume weighted shares of locations. Shares are
// equal when a catch-all location is involved or no location has a
// volume; otherwise locations without a volume are left out.
func weigh(locations []string, volumes map[string]float64) []supply {
	weights := make([]float64, len(locations))
	catchAll := false
	for i, location := range locations {
		if v := volumes[location]; v > 0 && !math.IsInf(v, 0) {
			weights[i] = v
		}
		if location == geo.RestOfWorld || location == geo.Global {
			catchAll = true
		}
	}
	if catchAll || floats.Sum(weights) <= 0 {
		for i := range weights {
			weights[i] = 1
		}
	}

	total := floats.Sum(weights)
	suppliers := make([]supply, 0, len(locations))
	for i, location := range locations {
		if weights[i] > 0 {
			suppliers = append(suppliers, supply{location: location, share: weights[i] / total})
		}
	}
	return suppliers
}
