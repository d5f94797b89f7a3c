package sector

import (
	"log/slog"

	"github.com/polca/premise-sub000/transform"
)

var (
	PigIron        = Dataset{"pig iron production", "pig iron", kilogram}
	PrimarySteel   = Dataset{"steel production, converter, low-alloyed", "steel, low-alloyed", kilogram}
	SecondarySteel = Dataset{"steel production, electric, low-alloyed", "steel, low-alloyed", kilogram}
	SteelMarket    = Dataset{"market for steel, low-alloyed", "steel, low-alloyed", kilogram}

	steelSuppliers = map[string]Dataset{"Steel|Primary": PrimarySteel, "Steel|Secondary": SecondarySteel}
	steelVariables = []string{"Steel|Primary", "Steel|Secondary"}
)

// Steel regionalizes pig iron, whose fuels follow the primary steel
// efficiency and whose emissions may be partly captured, then both steel
// routes and the steel market split between them after the IAM production
// shares.
func Steel(s *Scenario) error {
	pigIrons, err := s.proxies(PigIron, transform.WithoutRelink())
	if err != nil {
		return err
	}
	for region, proxy := range pigIrons {
		if correction, ok := s.correction(region, "Efficiency|Steel|Primary"); ok {
			RescaleFuelInputs(proxy, correction, Fuels())
			RescaleFossilCO2(proxy, correction, 0)
		}

		rate := s.captureRate(region, "Steel|Emissions|Captured", "Steel|Emissions|Gross")
		if capture := AddCarbonCapture(proxy, rate, 0); capture.Captured > 0 {
			slog.Debug("carbon capture added", "sector", "steel", "region", region, "rate", rate, "captured_t", capture.Captured.Tonnes())
		}
		s.Transformer.Relink(proxy)
	}

	for _, variable := range steelVariables {
		if _, err := s.proxies(steelSuppliers[variable], transform.WithProductionVolumes(s.volumes(variable))); err != nil {
			return err
		}
	}

	shares, err := s.sharesOrSkip(steelVariables)
	if err != nil || shares == nil {
		return err
	}
	_, err = s.market(SteelMarket, steelSuppliers, shares, nil)
	return err
}
