package premise

import (
	"slices"
)

type ExchangeType string

const (
	Production   ExchangeType = "production"
	Technosphere ExchangeType = "technosphere"
	Biosphere    ExchangeType = "biosphere"
)

// Uncertainty carries the parametric distribution of an exchange amount.
type Uncertainty struct {
	Type    int     `json:"type"`
	Loc     float64 `json:"loc"`
	Scale   float64 `json:"scale,omitempty"`
	Minimum float64 `json:"minimum,omitempty"`
	Maximum float64 `json:"maximum,omitempty"`
}

// Multiply scales the location and bounds of the distribution. Scale (the
// spread) is left untouched as it is expressed in log space for lognormals.
func (u *Uncertainty) Multiply(factor float64) {
	if u == nil {
		return
	}
	u.Loc *= factor
	u.Minimum *= factor
	u.Maximum *= factor
}

// Exchange is one input or output flow of an activity.
type Exchange struct {
	Type       ExchangeType `json:"type"`
	Name       string       `json:"name"`
	Product    string       `json:"product,omitempty"`
	Categories []string     `json:"categories,omitempty"`
	Unit       string       `json:"unit"`
	Amount     float64      `json:"amount"`
	// Location of the supplying activity (technosphere and production only)
	Location string `json:"location,omitempty"`
	// ProductionVolume is only meaningful on production exchanges
	ProductionVolume float64 `json:"production volume,omitempty"`
	// Input is the code of the resolved supplier. It refers to a given
	// activity identity and is cleared whenever that identity changes.
	Input       string       `json:"input,omitempty"`
	Uncertainty *Uncertainty `json:"uncertainty,omitempty"`
	Unresolved  bool         `json:"unresolved,omitempty"`
	Comment     string       `json:"comment,omitempty"`
}

// Clone return a deep copy of an exchange.
func (e Exchange) Clone() Exchange {
	c := e
	if e.Categories != nil {
		c.Categories = slices.Clone(e.Categories)
	}
	if e.Uncertainty != nil {
		u := *e.Uncertainty
		c.Uncertainty = &u
	}
	return c
}

// SupplierKey is the triple a technosphere exchange must resolve to.
func (e Exchange) SupplierKey() Key {
	return Key{Name: e.Name, Product: e.Product, Location: e.Location}
}

// Key identifies an activity inside a working database.
type Key struct {
	Name     string
	Product  string
	Location string
}

func (k Key) String() string {
	return k.Name + " | " + k.Product + " | " + k.Location
}

// Activity is one industrial process record.
type Activity struct {
	Name             string     `json:"name"`
	ReferenceProduct string     `json:"reference product"`
	Unit             string     `json:"unit"`
	Location         string     `json:"location"`
	Code             string     `json:"code"`
	Database         string     `json:"database,omitempty"`
	Comment          string     `json:"comment,omitempty"`
	Exchanges        []Exchange `json:"exchanges"`
}

func (a *Activity) Key() Key {
	return Key{Name: a.Name, Product: a.ReferenceProduct, Location: a.Location}
}

// Clone returns a deep copy of the activity. The copy shares nothing with
// the original.
func (a *Activity) Clone() *Activity {
	c := *a
	c.Exchanges = make([]Exchange, len(a.Exchanges))
	for i, exc := range a.Exchanges {
		c.Exchanges[i] = exc.Clone()
	}
	return &c
}

// Production returns the production exchange whose product is the
// reference product, or nil if the activity is malformed.
func (a *Activity) Production() *Exchange {
	for i := range a.Exchanges {
		exc := &a.Exchanges[i]
		if exc.Type == Production && exc.Product == a.ReferenceProduct {
			return exc
		}
	}
	return nil
}

func (a *Activity) ProductionVolume() float64 {
	if prod := a.Production(); prod != nil {
		return prod.ProductionVolume
	}
	return 0
}

// SetLocation moves the activity and its production exchange together.
func (a *Activity) SetLocation(location string) {
	a.Location = location
	for i := range a.Exchanges {
		if a.Exchanges[i].Type == Production {
			a.Exchanges[i].Location = location
		}
	}
}

// Technosphere returns pointers to the technosphere exchanges, in order.
func (a *Activity) Technosphere() []*Exchange {
	return a.exchangesOfType(Technosphere)
}

// Biosphere returns pointers to the biosphere exchanges, in order.
func (a *Activity) Biosphere() []*Exchange {
	return a.exchangesOfType(Biosphere)
}

// Select returns the exchanges matching every filter.
func (a *Activity) Select(filters ...Filter) []*Exchange {
	selected := make([]*Exchange, 0)
	for i := range a.Exchanges {
		if And(filters...).MatchExchange(&a.Exchanges[i]) {
			selected = append(selected, &a.Exchanges[i])
		}
	}
	return selected
}

func (a *Activity) exchangesOfType(t ExchangeType) []*Exchange {
	exchanges := make([]*Exchange, 0)
	for i := range a.Exchanges {
		if a.Exchanges[i].Type == t {
			exchanges = append(exchanges, &a.Exchanges[i])
		}
	}
	return exchanges
}

// RemoveExchanges drops every exchange for which drop returns true and
// returns how many were removed.
func (a *Activity) RemoveExchanges(drop func(e *Exchange) bool) int {
	before := len(a.Exchanges)
	a.Exchanges = slices.DeleteFunc(a.Exchanges, func(e Exchange) bool {
		return drop(&e)
	})
	return before - len(a.Exchanges)
}
