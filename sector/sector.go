// Package sector rewrites the datasets of one industrial sector after the
// technology mix, efficiencies and emissions of an IAM scenario. Every
// sector regionalizes template datasets per IAM region, relinks them, then
// adjusts their exchanges in place.
package sector

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/iam"
	"github.com/polca/premise-sub000/transform"
)

var ErrUnknownSector = errors.New("unknown sector")

// DefaultHorizon is the foresight, in years, of consequential markets.
const DefaultHorizon = 20

// Scenario is what a sector reads and mutates: the IAM projections of one
// (model, pathway, year) and the transformer owning its working database.
type Scenario struct {
	premise.Scenario

	Cube        *iam.Cube
	Transformer *transform.Transformer

	// Consequential markets are supplied by marginal suppliers only
	Consequential bool
	Horizon       int
	Lifetimes     FactorMap
}

// Dataset names the datasets a sector regionalizes or links to.
type Dataset struct {
	Name    string
	Product string
	Unit    string
}

// Func transforms one sector of a scenario.
type Func func(s *Scenario) error

var sectors = []struct {
	name  string
	apply Func
}{
	// electricity markets are consumed by every other sector
	{"electricity", Electricity},
	{"heat", Heat},
	{"cement", Cement},
	{"steel", Steel},
	{"metals", Metals},
	// the biogenic CO2 split applies to datasets created by other sectors
	{"fuels", Fuels},
}

// Names returns the sectors in the order they are applied.
func Names() []string {
	names := make([]string, 0, len(sectors))
	for _, s := range sectors {
		names = append(names, s.name)
	}
	return names
}

// Apply runs the named sectors in their application order, each recording
// its changes under its own name.
func Apply(s *Scenario, names ...string) error {
	for _, name := range names {
		if !slices.Contains(Names(), name) {
			return fmt.Errorf("%w: %s (available: %v)", ErrUnknownSector, name, Names())
		}
	}

	for _, sector := range sectors {
		if !slices.Contains(names, sector.name) {
			continue
		}
		view := *s
		view.Transformer = s.Transformer.ForSector(sector.name)
		if err := sector.apply(&view); err != nil {
			return fmt.Errorf("%s sector: %w", sector.name, err)
		}
		report := view.Transformer.RelinkDangling()
		slog.Info("sector transformed", "sector", sector.name, "scenario", s.Scenario.String(), "relinked", report.Exact+report.Geo+report.Split+report.Fallback, "unresolved", report.Unresolved)
	}
	return nil
}

// Regions returns the IAM regions of the scenario the cube has data for,
// the global region included.
func (s *Scenario) Regions() []string {
	geomap := s.Transformer.Geomap()
	regions := make([]string, 0)
	for _, region := range append(geomap.Regions(), geomap.GlobalRegion()) {
		if slices.Contains(s.Cube.Regions(), region) {
			regions = append(regions, region)
		}
	}
	return regions
}

// value returns variable for region at the scenario year, false when the
// cube does not provide it.
func (s *Scenario) value(region, variable string) (float64, bool) {
	if !s.Cube.Has(region, variable) {
		return 0, false
	}
	v, err := s.Cube.Value(region, variable, s.Year)
	if err != nil || !finite(v) {
		slog.Debug("iam value unavailable", "region", region, "variable", variable, "year", s.Year, "err", err)
		return 0, false
	}
	return v, true
}

// volumes returns the production of variable per region.
func (s *Scenario) volumes(variable string) map[string]float64 {
	volumes := make(map[string]float64)
	for _, region := range s.Regions() {
		if v, found := s.value(region, variable); found {
			volumes[region] = v
		}
	}
	return volumes
}

// correction returns the factor applied to the energy inputs of the
// technology described by an efficiency variable, 1 when the cube does not
// provide it.
func (s *Scenario) correction(region, variable string) (float64, bool) {
	if !s.Cube.Has(region, variable) {
		return 1, false
	}
	ratio, err := s.Cube.EfficiencyRatio(region, variable, s.Year)
	if err != nil {
		slog.Debug("efficiency ratio unavailable", "region", region, "variable", variable, "year", s.Year, "err", err)
		return 1, false
	}
	return Correction(ratio), true
}

// captureRate returns the share of gross emissions captured in region,
// clamped to [0, 1], 0 when the cube lacks either variable.
func (s *Scenario) captureRate(region, captured, gross string) float64 {
	c, okCaptured := s.value(region, captured)
	g, okGross := s.value(region, gross)
	if !okCaptured || !okGross || g <= 0 {
		return 0
	}
	return max(0, min(c/g, 1))
}

// shares returns the market shares of variables at the scenario year, or
// the marginal shares in consequential mode.
func (s *Scenario) shares(variables []string) (iam.Table, error) {
	if !s.Consequential {
		return s.Cube.MarketShares(variables, s.Year)
	}

	horizon := s.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	lifetimes := s.Lifetimes
	if lifetimes == nil {
		lifetimes = DefaultLifetimes
	}
	lives := make(map[string]float64, len(variables))
	for _, variable := range variables {
		lives[variable] = lifetimes.Get(variable)
	}
	volumes, err := s.Cube.MarginalShares(variables, lives, s.Year, horizon)
	if err != nil {
		return nil, err
	}

	// marginal volumes to shares of the market
	for _, values := range volumes {
		total := 0.0
		for _, v := range values {
			total += v
		}
		for variable, v := range values {
			if total > 0 {
				values[variable] = v / total
			}
		}
	}
	return volumes, nil
}

// sharesOrSkip is shares, with a nil table when the cube has none of the
// variables.
func (s *Scenario) sharesOrSkip(variables []string) (iam.Table, error) {
	shares, err := s.shares(variables)
	if errors.Is(err, iam.ErrUnknownVariable) {
		slog.Warn("iam variables missing, market left unchanged", "sector", s.Transformer.Sector(), "variables", variables)
		return nil, nil
	}
	return shares, err
}

// proxies regionalizes a dataset for every region of the scenario. A
// dataset missing from the database is logged and yields no proxy.
func (s *Scenario) proxies(dataset Dataset, opts ...transform.ProxyOption) (map[string]*premise.Activity, error) {
	proxies, err := s.Transformer.FetchProxies(dataset.Name, dataset.Product, s.Regions(), opts...)
	if errors.Is(err, transform.ErrNoSource) {
		slog.Warn("dataset not found, sector adjustment skipped", "sector", s.Transformer.Sector(), "name", dataset.Name, "product", dataset.Product, "err", err)
		return nil, nil
	}
	return proxies, err
}

// market builds the regional markets of a product from its suppliers, one
// per variable, and their shares. The template market is regionalized and
// its inputs from the suppliers replaced. The amount of a supplier input is
// its share times conversion, when set.
func (s *Scenario) market(market Dataset, suppliers map[string]Dataset, shares iam.Table, conversion func(supplier Dataset) float64) (map[string]*premise.Activity, error) {
	proxies, err := s.proxies(market, transform.WithoutRelink())
	if err != nil || proxies == nil {
		return nil, err
	}

	supplied := make([]string, 0, len(suppliers))
	for _, supplier := range suppliers {
		supplied = append(supplied, supplier.Name)
	}
	variables := slices.Sorted(maps.Keys(suppliers))

	for region, proxy := range proxies {
		inputs := make([]premise.Exchange, 0, len(variables))
		for _, variable := range variables {
			share := shares.Get(region, variable)
			if share <= 0 {
				continue
			}
			supplier := suppliers[variable]
			amount := share
			if conversion != nil {
				amount *= conversion(supplier)
			}
			inputs = append(inputs, premise.Exchange{
				Type:     premise.Technosphere,
				Name:     supplier.Name,
				Product:  supplier.Product,
				Unit:     supplier.Unit,
				Amount:   amount,
				Location: region,
			})
		}

		if len(inputs) == 0 {
			slog.Warn("no supplier share for region, keeping template market", "market", market.Name, "region", region)
		} else {
			proxy.RemoveExchanges(func(exc *premise.Exchange) bool {
				return exc.Type == premise.Technosphere && slices.Contains(supplied, exc.Name)
			})
			proxy.Exchanges = append(proxy.Exchanges, inputs...)
		}
		s.Transformer.Relink(proxy)
	}
	return proxies, nil
}
