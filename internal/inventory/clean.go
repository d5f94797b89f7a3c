package inventory

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
)

// Clean normalizes a baseline database before it is transformed: names and
// locations are trimmed, production exchanges carry the identity of their
// activity, technosphere exchanges without location are global and missing
// codes are generated. It returns how many activities were changed.
func Clean(db *premise.Database) int {
	changed := 0
	for _, a := range db.Activities() {
		if cleanActivity(a) {
			changed++
		}
	}
	db.Invalidate()

	if changed > 0 {
		slog.Info("baseline database cleaned", "database", db.Name, "activities", changed)
	}
	return changed
}

func cleanActivity(a *premise.Activity) bool {
	changed := false
	set := func(field *string, value string) {
		if *field != value {
			*field = value
			changed = true
		}
	}

	set(&a.Name, strings.TrimSpace(a.Name))
	set(&a.ReferenceProduct, strings.TrimSpace(a.ReferenceProduct))
	set(&a.Location, strings.TrimSpace(a.Location))
	if a.Code == "" {
		set(&a.Code, uuid.NewString())
	}

	for i := range a.Exchanges {
		exc := &a.Exchanges[i]
		set(&exc.Name, strings.TrimSpace(exc.Name))
		set(&exc.Product, strings.TrimSpace(exc.Product))
		set(&exc.Location, strings.TrimSpace(exc.Location))

		switch exc.Type {
		case premise.Technosphere:
			if exc.Location == "" {
				set(&exc.Location, geo.Global)
			}
		case premise.Production:
			if exc.Product != a.ReferenceProduct {
				continue
			}
			set(&exc.Name, a.Name)
			set(&exc.Location, a.Location)
			set(&exc.Unit, a.Unit)
		}
	}

	if a.Production() == nil {
		slog.Warn("activity without reference production exchange, adding one", "activity", a.Key().String())
		a.Exchanges = append(a.Exchanges, premise.Exchange{
			Type:     premise.Production,
			Name:     a.Name,
			Product:  a.ReferenceProduct,
			Unit:     a.Unit,
			Amount:   1,
			Location: a.Location,
		})
		changed = true
	}
	return changed
}
