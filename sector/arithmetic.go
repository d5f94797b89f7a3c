package sector

import (
	"math"

	premise "github.com/polca/premise-sub000"
)

const (
	FossilCO2    = "Carbon dioxide, fossil"
	NonFossilCO2 = "Carbon dioxide, non-fossil"

	// kWh per kg of CO2 captured: capture plus compression
	captureElectricity = 0.146 + 0.024
	// MJ of heat per kg of CO2 captured, for solvent regeneration
	captureHeat = 3.48
)

// Suppliers of the energy consumed by carbon capture.
var (
	CaptureElectricity = premise.Key{Name: "market for electricity, medium voltage", Product: "electricity, medium voltage"}
	CaptureHeat        = premise.Key{Name: "market for heat, from steam, in chemical industry", Product: "heat, from steam, in chemical industry"}
)

// fuelProducts prefixes the products burned for energy.
var fuelProducts = []string{
	"hard coal",
	"lignite",
	"coke",
	"heavy fuel oil",
	"light fuel oil",
	"diesel",
	"petrol",
	"natural gas",
	"petroleum coke",
	"wood chips",
	"biomethane",
}

// Fuels matches the exchanges of fuels burned for energy.
func Fuels() premise.Filter {
	filters := make([]premise.Filter, 0, len(fuelProducts))
	for _, product := range fuelProducts {
		filters = append(filters, premise.StartsWith(premise.FieldProduct, product))
	}
	return premise.Or(filters...)
}

// Correction turns an efficiency ratio into the factor applied to energy
// inputs. Inputs never grow and degenerate ratios leave them unchanged.
func Correction(efficiencyRatio float64) float64 {
	correction := 1 / efficiencyRatio
	if math.IsNaN(correction) || math.IsInf(correction, 0) || correction <= 0 {
		return 1
	}
	return min(correction, 1)
}

// RescaleFuelInputs multiplies the technosphere exchanges of activity a that
// match fuels by factor and returns how many were changed. Non finite
// factors are ignored.
func RescaleFuelInputs(a *premise.Activity, factor float64, fuels premise.Filter) int {
	if !finite(factor) || factor == 1 {
		return 0
	}
	n := 0
	for _, exc := range a.Technosphere() {
		if !fuels.MatchExchange(exc) {
			continue
		}
		exc.Amount *= factor
		exc.Uncertainty.Multiply(factor)
		n++
	}
	return n
}

// RescaleFossilCO2 applies factor to the fuel related part of the fossil CO2
// emissions of a: the first floor kg are process emissions and stay. The
// new total is (total-floor)*factor + floor.
func RescaleFossilCO2(a *premise.Activity, factor, floor float64) {
	if !finite(factor) || factor == 1 {
		return
	}
	emissions := fossilCO2(a)
	total := sum(emissions)
	if total <= 0 {
		return
	}
	floor = math.Max(0, math.Min(floor, total))
	scale := ((total-floor)*factor + floor) / total
	for _, exc := range emissions {
		exc.Amount *= scale
		exc.Uncertainty.Multiply(scale)
	}
}

// SplitBiogenicCO2 moves share of the fossil CO2 of a to non-fossil CO2,
// for fuels blended with biomass based ones.
func SplitBiogenicCO2(a *premise.Activity, share float64) {
	if !finite(share) || share <= 0 {
		return
	}
	share = math.Min(share, 1)

	moved := make([]premise.Exchange, 0)
	for _, exc := range fossilCO2(a) {
		biogenic := exc.Clone()
		biogenic.Name = NonFossilCO2
		biogenic.Amount = exc.Amount * share
		biogenic.Uncertainty.Multiply(share)
		exc.Amount *= 1 - share
		exc.Uncertainty.Multiply(1 - share)
		moved = append(moved, biogenic)
	}

	for _, biogenic := range moved {
		existing := a.Select(
			premise.Equals(premise.FieldName, NonFossilCO2),
			premise.Either(premise.FieldCategories, biogenic.Categories...),
		)
		if len(existing) > 0 && existing[0].Type == premise.Biosphere {
			existing[0].Amount += biogenic.Amount
			continue
		}
		a.Exchanges = append(a.Exchanges, biogenic)
	}
}

// Capture is the energy penalty of capturing CO2 at an activity.
type Capture struct {
	Captured    premise.Emissions
	Electricity premise.Energy
	Heat        premise.Energy
}

// AddCarbonCapture captures rate of the fossil CO2 emitted by a: fossil
// emissions are reduced by the captured quantity and the electricity and
// heat the capture consumes are added as inputs, located with a. Heat
// recovered on site, in MJ, is deducted from the heat input.
func AddCarbonCapture(a *premise.Activity, rate float64, recoveredHeat float64) Capture {
	if !finite(rate) || rate <= 0 {
		return Capture{}
	}
	rate = math.Min(rate, 1)

	emissions := fossilCO2(a)
	total := sum(emissions)
	if total <= 0 {
		return Capture{}
	}

	captured := total * rate
	for _, exc := range emissions {
		exc.Amount *= 1 - rate
		exc.Uncertainty.Multiply(1 - rate)
	}

	capture := Capture{
		Captured:    premise.Emissions(captured),
		Electricity: premise.KWh(captured * captureElectricity),
		Heat:        premise.MJ(math.Max(0, captured*captureHeat-recoveredHeat)),
	}

	a.Exchanges = append(a.Exchanges, premise.Exchange{
		Type:     premise.Technosphere,
		Name:     CaptureElectricity.Name,
		Product:  CaptureElectricity.Product,
		Unit:     "kilowatt hour",
		Amount:   capture.Electricity.KWh(),
		Location: a.Location,
		Comment:  "carbon capture",
	})
	if capture.Heat > 0 {
		a.Exchanges = append(a.Exchanges, premise.Exchange{
			Type:     premise.Technosphere,
			Name:     CaptureHeat.Name,
			Product:  CaptureHeat.Product,
			Unit:     "megajoule",
			Amount:   capture.Heat.MJ(),
			Location: a.Location,
			Comment:  "carbon capture",
		})
	}
	return capture
}

func fossilCO2(a *premise.Activity) []*premise.Exchange {
	emissions := make([]*premise.Exchange, 0)
	for _, exc := range a.Biosphere() {
		if exc.Name == FossilCO2 {
			emissions = append(emissions, exc)
		}
	}
	return emissions
}

func sum(exchanges []*premise.Exchange) float64 {
	total := 0.0
	for _, exc := range exchanges {
		total += exc.Amount
	}
	return total
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
