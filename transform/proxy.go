package transform

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
	"github.com/polca/premise-sub000/internal/audit"
)

type proxyConfig struct {
	volumes         map[string]float64
	defaultLocation string
	relink          bool
}

type ProxyOption func(*proxyConfig)

// WithProductionVolumes sets the production volume of the proxy of each
// region listed in volumes.
func WithProductionVolumes(volumes map[string]float64) ProxyOption {
	return func(c *proxyConfig) {
		c.volumes = volumes
	}
}

// WithDefaultLocation sets the location used as a source when a region has
// neither a matching dataset nor a RoW one. Default is GLO.
func WithDefaultLocation(location string) ProxyOption {
	return func(c *proxyConfig) {
		c.defaultLocation = location
	}
}

// WithoutRelink leaves the technosphere exchanges of the proxies pointing at
// the suppliers of their source dataset.
func WithoutRelink() ProxyOption {
	return func(c *proxyConfig) {
		c.relink = false
	}
}

// FetchProxies replaces the datasets producing (name, product) by one proxy
// per region. Each proxy is a copy of the dataset best representing its
// region: one already at the region, one whose location maps to the region,
// RoW, then the default location. Regions without any source are skipped
// and reported by Missing. Originals are deleted from the database and proxies are
// relinked to suppliers of their region unless WithoutRelink is set.
func (t *Transformer) FetchProxies(name, product string, regions []string, opts ...ProxyOption) (map[string]*premise.Activity, error) {
	config := proxyConfig{
		defaultLocation: geo.Global,
		relink:          true,
	}
	for _, opt := range opts {
		opt(&config)
	}

	originals := t.db.Select(
		premise.Equals(premise.FieldName, name),
		premise.Equals(premise.FieldProduct, product),
	)
	if len(originals) == 0 {
		return nil, fmt.Errorf("%w for %q (%s)%s", ErrNoSource, name, product, t.suggest(name))
	}

	proxies := make(map[string]*premise.Activity, len(regions))
	missing := make([]string, 0)
	for _, region := range regions {
		if _, found := proxies[region]; found {
			continue
		}

		source := t.proxySource(originals, region, config.defaultLocation)
		if source == nil {
			missing = append(missing, region)
			continue
		}

		proxy := source.Clone()
		proxy.Code = uuid.NewString()
		t.regional[proxy.Code] = struct{}{}
		for i := range proxy.Exchanges {
			exc := &proxy.Exchanges[i]
			exc.Input = ""
			if exc.Type == premise.Technosphere && exc.Name == name && exc.Product == product {
				exc.Location = region
			}
		}
		proxy.SetLocation(region)
		if volume, found := config.volumes[region]; found {
			if prod := proxy.Production(); prod != nil {
				prod.ProductionVolume = volume
			}
		}
		proxy.Comment = fmt.Sprintf("Regional proxy for %s, copied from %s.", region, source.Location)

		proxies[region] = proxy
	}

	if len(missing) > 0 {
		slog.Warn("no source dataset for regions", "name", name, "product", product, "regions", missing, "sector", t.sector)
		for _, region := range missing {
			t.missing = append(t.missing, MissingProxy{Name: name, Product: product, Region: region, Sector: t.sector})
		}
		t.metrics.ProxiesMissing(t.sector, len(missing))
	}
	if len(proxies) == 0 {
		return nil, fmt.Errorf("%w for %q (%s) in any of %v", ErrNoSource, name, product, regions)
	}

	removed := t.db.Remove(func(a *premise.Activity) bool {
		return a.Name == name && a.ReferenceProduct == product
	})
	for _, a := range removed {
		t.audit.Record(t.sector, audit.Deleted, a.Key())
	}

	created := slices.Sorted(maps.Keys(proxies))
	for _, region := range created {
		t.db.Add(proxies[region])
		t.audit.Record(t.sector, audit.Created, proxies[region].Key())
	}

	// cached resolutions may point at deleted datasets
	t.cache.Purge()

	t.metrics.DatasetsDeleted(t.sector, len(removed))
	t.metrics.ProxiesCreated(t.sector, len(proxies))
	slog.Debug("regional proxies created", "name", name, "product", product, "created", len(proxies), "deleted", len(removed), "sector", t.sector)

	if config.relink {
		for _, region := range created {
			t.Relink(proxies[region])
		}
	}

	return proxies, nil
}

// proxySource picks the dataset a proxy for region is copied from.
func (t *Transformer) proxySource(candidates []*premise.Activity, region, defaultLocation string) *premise.Activity {
	target := t.geomap.Index().Qualify(region)
	if i := slices.IndexFunc(candidates, func(a *premise.Activity) bool { return t.locationOf(a) == target }); i >= 0 {
		return candidates[i]
	}

	mapped := make([]*premise.Activity, 0)
	for _, a := range candidates {
		if a.Location == geo.RestOfWorld || a.Location == geo.Global {
			continue
		}
		if t.Region(a) == region {
			mapped = append(mapped, a)
		}
	}
	if len(mapped) > 0 {
		// the largest producer is the most representative of the region
		slices.SortFunc(mapped, func(a, b *premise.Activity) int {
			if c := cmp.Compare(b.ProductionVolume(), a.ProductionVolume()); c != 0 {
				return c
			}
			return cmp.Compare(a.Location, b.Location)
		})
		return mapped[0]
	}

	for _, fallback := range []string{geo.RestOfWorld, defaultLocation} {
		if i := slices.IndexFunc(candidates, func(a *premise.Activity) bool { return a.Location == fallback }); i >= 0 {
			slog.Debug("proxy copied from fallback location", "name", candidates[i].Name, "region", region, "location", fallback)
			return candidates[i]
		}
	}
	return nil
}
