package sector

import (
	"maps"
	"slices"

	premise "github.com/polca/premise-sub000"
)

var smelters = map[string]Dataset{
	"Efficiency|Aluminium": {"aluminium production, primary, liquid, prebake", "aluminium, primary, liquid", kilogram},
	"Efficiency|Copper":    {"copper production, primary", "copper, anode", kilogram},
}

// Metals regionalizes primary smelters so they consume regional electricity
// and scales their electricity use after their efficiency.
func Metals(s *Scenario) error {
	electricity := premise.StartsWith(premise.FieldProduct, "electricity")

	for _, variable := range slices.Sorted(maps.Keys(smelters)) {
		proxies, err := s.proxies(smelters[variable])
		if err != nil {
			return err
		}
		for region, proxy := range proxies {
			if correction, ok := s.correction(region, variable); ok {
				RescaleFuelInputs(proxy, correction, electricity)
			}
		}
	}
	return nil
}
