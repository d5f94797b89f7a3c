package sector

import (
	"strings"

	"github.com/polca/premise-sub000/internal/must"
)

// DefaultKey holds the value of keys no entry prefixes.
const DefaultKey = "default"

// FactorMap regroups factors by key: IAM variables, products or locations.
type FactorMap map[string]float64

func NewFactorMap(def float64, entries map[string]float64) FactorMap {
	m := FactorMap{DefaultKey: def}
	for k, v := range entries {
		m[k] = v
	}
	return m
}

// Get returns the factor of the longest key prefixing key, the default
// factor if none does.
func (m FactorMap) Get(key string) float64 {
	longest := 0
	factor, found := m[DefaultKey]
	must.Assert(found, "default factor not set")

	for k, v := range m {
		if k == DefaultKey {
			continue
		}
		if strings.HasPrefix(key, k) && len(k) > longest {
			longest = len(k)
			factor = v
		}
	}
	return factor
}

// Average returns the mean factor of the keys starting with one of
// prefixes, the default factor if no key does.
func (m FactorMap) Average(prefixes ...string) float64 {
	sum := 0.0
	n := 0.0
	for k, v := range m {
		if k == DefaultKey || !hasOnePrefix(k, prefixes...) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return m[DefaultKey]
	}
	return sum / n
}

func hasOnePrefix(s string, prefixes ...string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

var (
	// DefaultLifetimes of power plants and industrial installations, in
	// years, by premise variable.
	DefaultLifetimes = NewFactorMap(30, map[string]float64{
		"Electricity|Coal":    40,
		"Electricity|Gas":     30,
		"Electricity|Oil":     30,
		"Electricity|Nuclear": 60,
		"Electricity|Hydro":   80,
		"Electricity|Wind":    25,
		"Electricity|Solar":   25,
		"Electricity|Biomass": 25,
		"Steel|":              40,
	})

	// lowerHeatingValues in MJ per unit of product: kilogram for liquids,
	// cubic meter for gases.
	lowerHeatingValues = NewFactorMap(1, map[string]float64{
		"diesel":                     43,
		"vegetable oil methyl ester": 37,
		"petrol":                     42.6,
		"ethanol":                    26.5,
		"natural gas":                36,
		"biomethane":                 36,
	})

	// calcinationCO2 in kg of CO2 per kg of clinker, released regardless of
	// the fuel efficiency of the kiln.
	calcinationCO2 = NewFactorMap(0.525, nil)
)
