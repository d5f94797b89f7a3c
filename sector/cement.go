package sector

import (
	"log/slog"

	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/transform"
)

const kilogram = "kilogram"

var (
	Clinker        = Dataset{"clinker production", "clinker", kilogram}
	PortlandCement = Dataset{"cement production, Portland", "cement, Portland", kilogram}
)

// Cement regionalizes clinker production: kiln fuels follow the cement
// efficiency of the region, calcination emissions stay, and the captured
// share of emissions carries its energy penalty. Cement production is then
// regionalized with the clinker to cement ratio of the region.
func Cement(s *Scenario) error {
	clinkers, err := s.proxies(Clinker,
		transform.WithProductionVolumes(s.volumes("Cement|Production")),
		transform.WithoutRelink(),
	)
	if err != nil {
		return err
	}

	for region, proxy := range clinkers {
		if correction, ok := s.correction(region, "Efficiency|Cement"); ok {
			RescaleFuelInputs(proxy, correction, Fuels())
			floor := calcinationCO2.Get(region) * proxy.Production().Amount
			RescaleFossilCO2(proxy, correction, floor)
		}

		rate := s.captureRate(region, "Cement|Emissions|Captured", "Cement|Emissions|Gross")
		if capture := AddCarbonCapture(proxy, rate, 0); capture.Captured > 0 {
			slog.Debug("carbon capture added", "sector", "cement", "region", region, "rate", rate, "captured_t", capture.Captured.Tonnes())
		}
		s.Transformer.Relink(proxy)
	}

	cements, err := s.proxies(PortlandCement, transform.WithProductionVolumes(s.volumes("Cement|Production")))
	if err != nil {
		return err
	}
	for region, proxy := range cements {
		ratio, ok := s.value(region, "Cement|Clinker ratio")
		if !ok || ratio <= 0 || ratio > 1 {
			continue
		}
		SetClinkerRatio(proxy, ratio)
	}
	return nil
}

// SetClinkerRatio scales the clinker inputs of a cement dataset so that
// they amount to ratio kg per kg of cement produced.
func SetClinkerRatio(a *premise.Activity, ratio float64) {
	prod := a.Production()
	if prod == nil {
		return
	}
	clinkers := a.Select(
		premise.Equals(premise.FieldProduct, Clinker.Product),
		premise.Equals(premise.FieldUnit, Clinker.Unit),
	)
	total := 0.0
	for _, exc := range clinkers {
		if exc.Type == premise.Technosphere {
			total += exc.Amount
		}
	}
	if total <= 0 {
		return
	}
	factor := ratio * prod.Amount / total
	for _, exc := range clinkers {
		if exc.Type == premise.Technosphere {
			exc.Amount *= factor
			exc.Uncertainty.Multiply(factor)
		}
	}
}
