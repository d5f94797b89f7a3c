package premise

// Energy in megajoule
type Energy float64

const mjPerKWh = 3.6

func KWh(kwh float64) Energy { return Energy(kwh * mjPerKWh) }

func MJ(mj float64) Energy { return Energy(mj) }

func (e Energy) MJ() float64 { return float64(e) }

func (e Energy) KWh() float64 { return float64(e) / mjPerKWh }

// Emissions in kg CO2
type Emissions float64

func (e Emissions) Tonnes() float64 { return float64(e) / 1000 }
