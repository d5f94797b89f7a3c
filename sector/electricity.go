package sector

import (
	"maps"
	"slices"

	"github.com/polca/premise-sub000/transform"
)

const kilowattHour = "kilowatt hour"

var (
	powerPlants = map[string]Dataset{
		"Electricity|Coal":    {"electricity production, hard coal", "electricity, high voltage", kilowattHour},
		"Electricity|Gas":     {"electricity production, natural gas, combined cycle power plant", "electricity, high voltage", kilowattHour},
		"Electricity|Oil":     {"electricity production, oil", "electricity, high voltage", kilowattHour},
		"Electricity|Nuclear": {"electricity production, nuclear, pressure water reactor", "electricity, high voltage", kilowattHour},
		"Electricity|Hydro":   {"electricity production, hydro, run-of-river", "electricity, high voltage", kilowattHour},
		"Electricity|Wind":    {"electricity production, wind, 1-3MW turbine, onshore", "electricity, high voltage", kilowattHour},
		"Electricity|Solar":   {"electricity production, photovoltaic, 570kWp open ground installation, multi-Si", "electricity, high voltage", kilowattHour},
		"Electricity|Biomass": {"heat and power co-generation, wood chips, 6667 kW, state-of-the-art 2014", "electricity, high voltage", kilowattHour},
	}

	plantEfficiencies = map[string]string{
		"Electricity|Coal":    "Efficiency|Electricity|Coal",
		"Electricity|Gas":     "Efficiency|Electricity|Gas",
		"Electricity|Oil":     "Efficiency|Electricity|Oil",
		"Electricity|Biomass": "Efficiency|Electricity|Biomass",
	}

	HighVoltageMarket   = Dataset{"market for electricity, high voltage", "electricity, high voltage", kilowattHour}
	MediumVoltageMarket = Dataset{"market for electricity, medium voltage", "electricity, medium voltage", kilowattHour}
	LowVoltageMarket    = Dataset{"market for electricity, low voltage", "electricity, low voltage", kilowattHour}
)

// Electricity regionalizes power plants, rescales the fuel inputs of
// thermal plants after their efficiency and builds the regional high
// voltage markets from the IAM generation mix. Medium and low voltage
// markets are regionalized to consume them.
func Electricity(s *Scenario) error {
	technologies := slices.Sorted(maps.Keys(powerPlants))

	for _, technology := range technologies {
		proxies, err := s.proxies(powerPlants[technology], transform.WithProductionVolumes(s.volumes(technology)))
		if err != nil {
			return err
		}

		efficiency, found := plantEfficiencies[technology]
		if !found {
			continue
		}
		for region, proxy := range proxies {
			correction, ok := s.correction(region, efficiency)
			if !ok {
				continue
			}
			RescaleFuelInputs(proxy, correction, Fuels())
			RescaleFossilCO2(proxy, correction, 0)
		}
	}

	shares, err := s.sharesOrSkip(technologies)
	if err != nil {
		return err
	}
	if shares != nil {
		if _, err := s.market(HighVoltageMarket, powerPlants, shares, nil); err != nil {
			return err
		}
	}

	for _, market := range []Dataset{MediumVoltageMarket, LowVoltageMarket} {
		if _, err := s.proxies(market); err != nil {
			return err
		}
	}
	return nil
}
