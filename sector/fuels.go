package sector

import (
	"log/slog"

	premise "github.com/polca/premise-sub000"
)

const cubicMeter = "cubic meter"

// blend is a fuel market supplied by a fossil and a biomass based fuel.
type blend struct {
	market Dataset
	fossil string
	bio    string
	supply map[string]Dataset
}

var blends = []blend{
	{
		market: Dataset{"market for diesel, low-sulfur", "diesel, low-sulfur", kilogram},
		fossil: "Fuel|Diesel",
		bio:    "Fuel|Biodiesel",
		supply: map[string]Dataset{
			"Fuel|Diesel":    {"diesel production, low-sulfur, petroleum refinery operation", "diesel, low-sulfur", kilogram},
			"Fuel|Biodiesel": {"esterification of rape oil", "vegetable oil methyl ester", kilogram},
		},
	},
	{
		market: Dataset{"market for petrol, low-sulfur", "petrol, low-sulfur", kilogram},
		fossil: "Fuel|Petrol",
		bio:    "Fuel|Bioethanol",
		supply: map[string]Dataset{
			"Fuel|Petrol":     {"petrol production, low-sulfur", "petrol, low-sulfur", kilogram},
			"Fuel|Bioethanol": {"ethanol production from sugarcane", "ethanol, without water, in 99.7% solution state, from fermentation", kilogram},
		},
	},
	{
		market: Dataset{"market for natural gas, high pressure", "natural gas, high pressure", cubicMeter},
		fossil: "Fuel|Natural gas",
		bio:    "Fuel|Biomethane",
		supply: map[string]Dataset{
			"Fuel|Natural gas": {"natural gas production", "natural gas, high pressure", cubicMeter},
			"Fuel|Biomethane":  {"biomethane production, high pressure from synthetic gas, wood, fluidised technology", "biomethane, high pressure", cubicMeter},
		},
	},
}

// Fuels builds regional fuel markets blending fossil and biomass based
// supply after their energy shares, then moves the biomass share of the
// CO2 emitted by datasets burning a single blended fuel to non-fossil CO2.
func Fuels(s *Scenario) error {
	for _, b := range blends {
		shares, err := s.sharesOrSkip([]string{b.fossil, b.bio})
		if err != nil {
			return err
		}
		if shares == nil {
			continue
		}

		// energy shares to mass or volume of each supplier per unit of market
		lhv := lowerHeatingValues.Get(b.market.Product)
		conversion := func(supplier Dataset) float64 {
			return lhv / lowerHeatingValues.Get(supplier.Product)
		}
		if _, err := s.market(b.market, b.supply, shares, conversion); err != nil {
			return err
		}

		split := 0
		for _, a := range s.Transformer.Database().Activities() {
			if !burnsOnly(a, b.market.Name) {
				continue
			}
			region := s.Transformer.Region(a)
			SplitBiogenicCO2(a, shares.Get(region, b.bio))
			split++
		}
		slog.Debug("biogenic CO2 split", "market", b.market.Name, "datasets", split)
	}
	return nil
}

// burnsOnly reports whether the only fuel a consumes comes from market.
func burnsOnly(a *premise.Activity, market string) bool {
	fuels := a.Select(Fuels())
	consumed := 0
	for _, exc := range fuels {
		if exc.Type != premise.Technosphere {
			continue
		}
		if exc.Name != market {
			return false
		}
		consumed++
	}
	return consumed > 0
}
