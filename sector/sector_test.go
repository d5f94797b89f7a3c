package sector

import (
	"testing"

	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
	"github.com/polca/premise-sub000/iam"
	"github.com/polca/premise-sub000/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(region, variable string, values map[int]float64) iam.Row {
	return iam.Row{Region: region, Variable: variable, Unit: "-", Values: values}
}

func newScenario(t *testing.T, rows []iam.Row, activities ...*premise.Activity) *Scenario {
	t.Helper()
	cube, err := iam.NewCube("REMIND", "SSP2-Base", rows)
	require.NoError(t, err)
	regions, err := geo.DefaultRegions("REMIND")
	require.NoError(t, err)
	geomap, err := geo.NewGeomap("REMIND", regions)
	require.NoError(t, err)

	return &Scenario{
		Scenario:    premise.Scenario{Model: "REMIND", Pathway: "SSP2-Base", Year: 2030},
		Cube:        cube,
		Transformer: transform.New(premise.NewDatabase("ecoinvent", activities), geomap),
	}
}

func find(t *testing.T, s *Scenario, d Dataset, location string) *premise.Activity {
	t.Helper()
	found := s.Transformer.Database().Select(
		premise.Equals(premise.FieldName, d.Name),
		premise.Equals(premise.FieldProduct, d.Product),
		premise.Equals(premise.FieldLocation, location),
	)
	require.Len(t, found, 1, "%s at %s", d.Name, location)
	return found[0]
}

func locations(s *Scenario, d Dataset) []string {
	result := make([]string, 0)
	for _, a := range s.Transformer.Database().Select(premise.Equals(premise.FieldName, d.Name)) {
		result = append(result, a.Location)
	}
	return result
}

var (
	hardCoal     = Dataset{"market for hard coal", "hard coal", kilogram}
	naturalGas   = Dataset{"market for natural gas, high pressure", "natural gas, high pressure", cubicMeter}
	captureMV    = Dataset{CaptureElectricity.Name, CaptureElectricity.Product, kilowattHour}
	captureSteam = Dataset{CaptureHeat.Name, CaptureHeat.Product, megajoule}
)

func supplies(d Dataset, location string, amount float64) premise.Exchange {
	exc := technosphere(d.Name, d.Product, d.Unit, amount)
	exc.Location = location
	return exc
}

func TestApplyUnknownSector(t *testing.T) {
	s := newScenario(t, []iam.Row{row("EUR", "Cement|Production", map[int]float64{2020: 1, 2030: 1})})
	err := Apply(s, "cement", "transport")
	assert.ErrorIs(t, err, ErrUnknownSector)
}

func TestApplyMissingData(t *testing.T) {
	s := newScenario(t, []iam.Row{row("EUR", "Population", map[int]float64{2020: 1, 2030: 1})},
		dataset(hardCoal, "GLO"),
	)
	require.NoError(t, Apply(s, Names()...))
	assert.Equal(t, 1, s.Transformer.Database().Len())
}

func TestCement(t *testing.T) {
	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Cement|Production", map[int]float64{2020: 3, 2030: 3}),
			row("USA", "Cement|Production", map[int]float64{2020: 1, 2030: 1}),
			row("EUR", "Efficiency|Cement", map[int]float64{2020: 1, 2030: 1.25}),
			row("USA", "Efficiency|Cement", map[int]float64{2020: 1, 2030: 1}),
			row("EUR", "Cement|Emissions|Captured", map[int]float64{2020: 0, 2030: 20}),
			row("EUR", "Cement|Emissions|Gross", map[int]float64{2020: 100, 2030: 100}),
			row("EUR", "Cement|Clinker ratio", map[int]float64{2020: 0.75, 2030: 0.7}),
		},
		dataset(Clinker, "RoW", supplies(hardCoal, "GLO", 0.1), emission(FossilCO2, 0.9)),
		dataset(PortlandCement, "RoW", supplies(Clinker, "RoW", 0.9)),
		dataset(hardCoal, "GLO"),
		dataset(captureMV, "GLO"),
		dataset(captureSteam, "GLO"),
	)

	require.NoError(t, Apply(s, "cement"))
	assert.ElementsMatch(t, []string{"EUR", "USA"}, locations(s, Clinker))
	assert.ElementsMatch(t, []string{"EUR", "USA"}, locations(s, PortlandCement))

	eur := find(t, s, Clinker, "EUR")
	assert.Equal(t, 3.0, eur.ProductionVolume())
	assert.InDelta(t, 0.08, amountOf(eur, hardCoal.Name), 1e-12)
	// (0.9-0.525)*0.8 + 0.525, then 20% captured
	assert.InDelta(t, 0.66, amountOf(eur, FossilCO2), 1e-12)
	assert.InDelta(t, 0.165*captureElectricity, amountOf(eur, captureMV.Name), 1e-12)
	assert.InDelta(t, 0.165*captureHeat, amountOf(eur, captureSteam.Name), 1e-12)

	usa := find(t, s, Clinker, "USA")
	assert.Equal(t, 1.0, usa.ProductionVolume())
	assert.InDelta(t, 0.1, amountOf(usa, hardCoal.Name), 1e-12)
	assert.InDelta(t, 0.9, amountOf(usa, FossilCO2), 1e-12)
	assert.Len(t, usa.Technosphere(), 1)

	cement := find(t, s, PortlandCement, "EUR")
	require.Len(t, cement.Technosphere(), 1)
	assert.Equal(t, "EUR", cement.Technosphere()[0].Location)
	assert.Equal(t, eur.Code, cement.Technosphere()[0].Input)
	assert.InDelta(t, 0.7, cement.Technosphere()[0].Amount, 1e-12)
	assert.InDelta(t, 0.9, amountOf(find(t, s, PortlandCement, "USA"), Clinker.Name), 1e-12)

	assert.Empty(t, s.Transformer.Database().Validate())
	assert.Zero(t, s.Transformer.Unresolved())
}

func TestSteel(t *testing.T) {
	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Steel|Primary", map[int]float64{2020: 6, 2030: 6}),
			row("EUR", "Steel|Secondary", map[int]float64{2020: 2, 2030: 4}),
			row("USA", "Steel|Primary", map[int]float64{2020: 9, 2030: 10}),
			row("USA", "Steel|Secondary", map[int]float64{2020: 0, 2030: 0}),
			row("EUR", "Efficiency|Steel|Primary", map[int]float64{2020: 1, 2030: 1.25}),
			row("EUR", "Steel|Emissions|Captured", map[int]float64{2020: 0, 2030: 10}),
			row("EUR", "Steel|Emissions|Gross", map[int]float64{2020: 100, 2030: 100}),
		},
		dataset(PigIron, "RoW", supplies(hardCoal, "GLO", 0.5), emission(FossilCO2, 1.5)),
		dataset(PrimarySteel, "RoW", supplies(PigIron, "RoW", 0.9)),
		dataset(SecondarySteel, "RoW"),
		dataset(SteelMarket, "GLO", supplies(PrimarySteel, "RoW", 0.7), supplies(SecondarySteel, "RoW", 0.3)),
		dataset(hardCoal, "GLO"),
		dataset(captureMV, "GLO"),
		dataset(captureSteam, "GLO"),
	)

	require.NoError(t, Apply(s, "steel"))
	assert.ElementsMatch(t, []string{"EUR", "USA"}, locations(s, PigIron))
	assert.ElementsMatch(t, []string{"EUR", "USA"}, locations(s, SteelMarket))

	eur := find(t, s, PigIron, "EUR")
	assert.InDelta(t, 0.4, amountOf(eur, hardCoal.Name), 1e-12)
	// 1.5*0.8, then 10% captured
	assert.InDelta(t, 1.08, amountOf(eur, FossilCO2), 1e-12)
	assert.InDelta(t, 0.12*captureElectricity, amountOf(eur, captureMV.Name), 1e-12)
	assert.InDelta(t, 0.12*captureHeat, amountOf(eur, captureSteam.Name), 1e-12)

	usa := find(t, s, PigIron, "USA")
	assert.InDelta(t, 0.5, amountOf(usa, hardCoal.Name), 1e-12)
	assert.InDelta(t, 1.5, amountOf(usa, FossilCO2), 1e-12)
	assert.Len(t, usa.Technosphere(), 1)

	primary := find(t, s, PrimarySteel, "EUR")
	assert.Equal(t, 6.0, primary.ProductionVolume())
	require.Len(t, primary.Technosphere(), 1)
	assert.Equal(t, eur.Code, primary.Technosphere()[0].Input)
	assert.Equal(t, "EUR", primary.Technosphere()[0].Location)
	assert.Equal(t, 4.0, find(t, s, SecondarySteel, "EUR").ProductionVolume())

	market := find(t, s, SteelMarket, "EUR")
	assert.ElementsMatch(t, []input{
		{PrimarySteel.Name, "EUR", 0.6},
		{SecondarySteel.Name, "EUR", 0.4},
	}, inputs(market))
	for _, exc := range market.Technosphere() {
		if exc.Name == PrimarySteel.Name {
			assert.Equal(t, primary.Code, exc.Input)
		}
	}

	// no secondary production: the market is supplied by converters only
	assert.Equal(t, []input{{PrimarySteel.Name, "USA", 1}}, inputs(find(t, s, SteelMarket, "USA")))

	assert.Empty(t, s.Transformer.Database().Validate())
	assert.Zero(t, s.Transformer.Unresolved())
}

func TestSteelWithoutShares(t *testing.T) {
	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Efficiency|Steel|Primary", map[int]float64{2020: 1, 2030: 1.25}),
		},
		dataset(PigIron, "RoW", supplies(hardCoal, "GLO", 0.5)),
		dataset(SteelMarket, "GLO", supplies(PrimarySteel, "RoW", 0.7), supplies(SecondarySteel, "RoW", 0.3)),
		dataset(hardCoal, "GLO"),
	)

	require.NoError(t, Apply(s, "steel"))
	assert.InDelta(t, 0.4, amountOf(find(t, s, PigIron, "EUR"), hardCoal.Name), 1e-12)
	assert.Equal(t, []string{"GLO"}, locations(s, SteelMarket))
}

func TestMetals(t *testing.T) {
	aluminium := smelters["Efficiency|Aluminium"]
	copper := smelters["Efficiency|Copper"]
	alumina := Dataset{"market for aluminium oxide", "aluminium oxide", kilogram}

	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Efficiency|Aluminium", map[int]float64{2020: 1, 2030: 1.25}),
			// efficiency losses leave the smelter unchanged
			row("EUR", "Efficiency|Copper", map[int]float64{2020: 1, 2030: 0.5}),
		},
		dataset(aluminium, "RoW", supplies(MediumVoltageMarket, "GLO", 15), supplies(alumina, "GLO", 1.9)),
		dataset(copper, "RoW", supplies(MediumVoltageMarket, "GLO", 2)),
		dataset(MediumVoltageMarket, "GLO"),
		dataset(MediumVoltageMarket, "EUR"),
		dataset(alumina, "GLO"),
	)

	require.NoError(t, Apply(s, "metals"))
	assert.Equal(t, []string{"EUR"}, locations(s, aluminium))
	assert.Equal(t, []string{"EUR"}, locations(s, copper))

	smelter := find(t, s, aluminium, "EUR")
	assert.ElementsMatch(t, []input{
		{MediumVoltageMarket.Name, "EUR", 12},
		{alumina.Name, "GLO", 1.9},
	}, inputs(smelter))
	assert.Equal(t, MediumVoltageMarket.Name+"@EUR", smelter.Technosphere()[0].Input)

	assert.Equal(t, []input{{MediumVoltageMarket.Name, "EUR", 2}}, inputs(find(t, s, copper, "EUR")))
	assert.Empty(t, s.Transformer.Database().Validate())
}

func electricityDatabase() []*premise.Activity {
	coal := powerPlants["Electricity|Coal"]
	wind := powerPlants["Electricity|Wind"]
	return []*premise.Activity{
		dataset(coal, "RoW", supplies(hardCoal, "GLO", 0.4), emission(FossilCO2, 1)),
		dataset(wind, "RoW"),
		dataset(HighVoltageMarket, "GLO", supplies(coal, "RoW", 0.7), supplies(wind, "RoW", 0.3)),
		dataset(MediumVoltageMarket, "GLO", supplies(HighVoltageMarket, "GLO", 1.02)),
		dataset(LowVoltageMarket, "GLO", supplies(MediumVoltageMarket, "GLO", 1.05)),
		dataset(hardCoal, "GLO"),
	}
}

type input struct {
	name     string
	location string
	amount   float64
}

func inputs(a *premise.Activity) []input {
	result := make([]input, 0)
	for _, exc := range a.Technosphere() {
		result = append(result, input{exc.Name, exc.Location, exc.Amount})
	}
	return result
}

func TestElectricity(t *testing.T) {
	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Electricity|Coal", map[int]float64{2020: 8, 2030: 6}),
			row("EUR", "Electricity|Wind", map[int]float64{2020: 2, 2030: 4}),
			row("EUR", "Efficiency|Electricity|Coal", map[int]float64{2020: 0.4, 2030: 0.5}),
		},
		electricityDatabase()...,
	)

	require.NoError(t, Apply(s, "electricity"))

	coal := find(t, s, powerPlants["Electricity|Coal"], "EUR")
	assert.InDelta(t, 0.32, amountOf(coal, hardCoal.Name), 1e-12)
	assert.InDelta(t, 0.8, amountOf(coal, FossilCO2), 1e-12)
	assert.Equal(t, 6.0, coal.ProductionVolume())

	hv := find(t, s, HighVoltageMarket, "EUR")
	assert.ElementsMatch(t, []input{
		{powerPlants["Electricity|Coal"].Name, "EUR", 0.6},
		{powerPlants["Electricity|Wind"].Name, "EUR", 0.4},
	}, inputs(hv))

	mv := find(t, s, MediumVoltageMarket, "EUR")
	assert.Equal(t, []input{{HighVoltageMarket.Name, "EUR", 1.02}}, inputs(mv))
	assert.Equal(t, hv.Code, mv.Technosphere()[0].Input)

	lv := find(t, s, LowVoltageMarket, "EUR")
	assert.Equal(t, []input{{MediumVoltageMarket.Name, "EUR", 1.05}}, inputs(lv))

	assert.Empty(t, locations(s, Dataset{Name: "electricity production, nuclear, pressure water reactor"}))
	assert.Empty(t, s.Transformer.Database().Validate())
}

func TestElectricityConsequential(t *testing.T) {
	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Electricity|Coal", map[int]float64{2020: 8, 2030: 6, 2050: 3}),
			row("EUR", "Electricity|Wind", map[int]float64{2020: 2, 2030: 4, 2050: 12}),
		},
		electricityDatabase()...,
	)
	s.Consequential = true

	require.NoError(t, Apply(s, "electricity"))

	hv := find(t, s, HighVoltageMarket, "EUR")
	assert.Equal(t, []input{{powerPlants["Electricity|Wind"].Name, "EUR", 1}}, inputs(hv))
}

func TestHeat(t *testing.T) {
	gasFurnace := heatPlants["Efficiency|Heat|Gas"]
	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Efficiency|Heat|Oil", map[int]float64{2020: 0.8, 2030: 1}),
		},
		dataset(gasFurnace, "RoW", supplies(naturalGas, "GLO", 0.03), emission(FossilCO2, 0.06)),
		dataset(naturalGas, "GLO"),
	)

	require.NoError(t, Apply(s, "heat"))

	// no gas furnace efficiency: the oil furnace correction is used
	furnace := find(t, s, gasFurnace, "EUR")
	assert.InDelta(t, 0.024, amountOf(furnace, naturalGas.Name), 1e-12)
	assert.InDelta(t, 0.048, amountOf(furnace, FossilCO2), 1e-12)
}

func TestFuels(t *testing.T) {
	diesel := blends[0]
	fossil := diesel.supply["Fuel|Diesel"]
	bio := diesel.supply["Fuel|Biodiesel"]
	lorry := Dataset{"transport, freight, lorry 16-32 metric ton", "transport, freight, lorry 16-32 metric ton", "ton kilometer"}

	s := newScenario(t,
		[]iam.Row{
			row("EUR", "Fuel|Diesel", map[int]float64{2020: 10, 2030: 9}),
			row("EUR", "Fuel|Biodiesel", map[int]float64{2020: 0, 2030: 1}),
		},
		dataset(diesel.market, "GLO", supplies(fossil, "GLO", 0.95), supplies(bio, "GLO", 0.05)),
		dataset(fossil, "GLO"),
		dataset(bio, "GLO"),
		dataset(lorry, "EUR", supplies(diesel.market, "GLO", 0.02), emission(FossilCO2, 1)),
	)

	require.NoError(t, Apply(s, "fuels"))

	// energy shares converted to kg of each fuel
	market := find(t, s, diesel.market, "EUR")
	require.Len(t, market.Technosphere(), 2)
	assert.InDelta(t, 0.9, amountOf(market, fossil.Name), 1e-12)
	assert.InDelta(t, 0.1*43/37, amountOf(market, bio.Name), 1e-12)
	for _, exc := range market.Technosphere() {
		assert.Equal(t, "GLO", exc.Location)
	}

	transport := find(t, s, lorry, "EUR")
	assert.Equal(t, []input{{diesel.market.Name, "EUR", 0.02}}, inputs(transport))
	assert.InDelta(t, 0.9, amountOf(transport, FossilCO2), 1e-12)
	assert.InDelta(t, 0.1, amountOf(transport, NonFossilCO2), 1e-12)
	assert.Empty(t, s.Transformer.Database().Validate())
}
