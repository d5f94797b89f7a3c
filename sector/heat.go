package sector

import (
	"maps"
	"slices"
)

const megajoule = "megajoule"

var heatPlants = map[string]Dataset{
	"Efficiency|Heat|Gas":     {"heat production, natural gas, at industrial furnace >100kW", "heat, district or industrial, natural gas", megajoule},
	"Efficiency|Heat|Oil":     {"heat production, light fuel oil, at industrial furnace 1MW", "heat, district or industrial, other than natural gas", megajoule},
	"Efficiency|Heat|Biomass": {"heat production, softwood chips from forest, at furnace 1000kW", "heat, district or industrial, other than natural gas", megajoule},
}

// Heat regionalizes industrial heat production and rescales fuel inputs and
// fossil emissions after the efficiency of each furnace. A region without
// the efficiency of a furnace uses the average correction of its other
// furnaces.
func Heat(s *Scenario) error {
	variables := slices.Sorted(maps.Keys(heatPlants))

	corrections := make(map[string]FactorMap)
	for _, region := range s.Regions() {
		known := make(map[string]float64)
		for _, variable := range variables {
			if correction, ok := s.correction(region, variable); ok {
				known[variable] = correction
			}
		}
		corrections[region] = NewFactorMap(1, known)
	}

	for _, variable := range variables {
		proxies, err := s.proxies(heatPlants[variable])
		if err != nil {
			return err
		}
		for region, proxy := range proxies {
			regional := corrections[region]
			correction, found := regional[variable]
			if !found {
				correction = regional.Average("Efficiency|Heat|")
			}
			RescaleFuelInputs(proxy, correction, Fuels())
			RescaleFossilCO2(proxy, correction, 0)
		}
	}
	return nil
}
