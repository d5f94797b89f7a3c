package premise

import (
	"log/slog"
	"slices"
)

type LookupStatus int

const (
	NotFound LookupStatus = iota
	Found
	Ambiguous
)

func (s LookupStatus) String() string {
	switch s {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	}
	return "not found"
}

// Lookup is the outcome of a query expected to return a single activity.
type Lookup struct {
	Status     LookupStatus
	Activities []*Activity
}

// Activity returns the first matched activity, nil when nothing matched.
func (l Lookup) Activity() *Activity {
	if len(l.Activities) == 0 {
		return nil
	}
	return l.Activities[0]
}

type supplierKey struct {
	name    string
	product string
	unit    string
}

// Database is a working database snapshot: an unordered collection of
// activities mutated in place by transformation steps. A Database is not
// safe for concurrent use; each scenario owns its own clone.
type Database struct {
	Name       string
	activities []*Activity
	suppliers  map[supplierKey][]*Activity
}

func NewDatabase(name string, activities []*Activity) *Database {
	return &Database{
		Name:       name,
		activities: activities,
	}
}

func (db *Database) Activities() []*Activity { return db.activities }

func (db *Database) Len() int { return len(db.activities) }

func (db *Database) Add(activities ...*Activity) {
	db.activities = append(db.activities, activities...)
	db.suppliers = nil
}

// Remove deletes every activity for which drop returns true and returns
// the removed activities.
func (db *Database) Remove(drop func(a *Activity) bool) []*Activity {
	removed := make([]*Activity, 0)
	kept := db.activities[:0]
	for _, a := range db.activities {
		if drop(a) {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	clear(db.activities[len(kept):])
	db.activities = kept
	if len(removed) > 0 {
		db.suppliers = nil
	}
	return removed
}

// Select returns all activities matching every filter.
func (db *Database) Select(filters ...Filter) []*Activity {
	f := And(filters...)
	selected := make([]*Activity, 0)
	for _, a := range db.activities {
		if f.Match(a) {
			selected = append(selected, a)
		}
	}
	return selected
}

// Get runs a query expected to match a single activity.
func (db *Database) Get(filters ...Filter) Lookup {
	selected := db.Select(filters...)
	switch len(selected) {
	case 0:
		return Lookup{Status: NotFound}
	case 1:
		return Lookup{Status: Found, Activities: selected}
	}
	return Lookup{Status: Ambiguous, Activities: selected}
}

// Suppliers returns the activities producing the exact (name, product,
// unit) triple, in database order.
func (db *Database) Suppliers(name, product, unit string) []*Activity {
	if db.suppliers == nil {
		db.suppliers = make(map[supplierKey][]*Activity, len(db.activities))
		for _, a := range db.activities {
			k := supplierKey{name: a.Name, product: a.ReferenceProduct, unit: a.Unit}
			db.suppliers[k] = append(db.suppliers[k], a)
		}
	}
	return db.suppliers[supplierKey{name: name, product: product, unit: unit}]
}

// Invalidate drops the supplier index. Callers that rename or relocate
// activities in place must call it.
func (db *Database) Invalidate() { db.suppliers = nil }

// Clone returns a deep copy. The returned database has exactly one owner:
// the scenario it was cloned for. Mutations of either copy are never
// visible from the other.
func (db *Database) Clone() *Database {
	activities := make([]*Activity, len(db.activities))
	for i, a := range db.activities {
		activities[i] = a.Clone()
	}
	return NewDatabase(db.Name, activities)
}

// Deduplicate removes activities sharing a (name, reference product,
// location) triple with an earlier activity. The first occurrence wins.
func (db *Database) Deduplicate() []Key {
	seen := make(map[Key]struct{}, len(db.activities))
	duplicates := make([]Key, 0)
	db.Remove(func(a *Activity) bool {
		k := a.Key()
		if _, found := seen[k]; found {
			duplicates = append(duplicates, k)
			return true
		}
		seen[k] = struct{}{}
		return false
	})

	if len(duplicates) > 0 {
		slog.Warn("removed duplicate datasets", "database", db.Name, "count", len(duplicates))
		for _, k := range duplicates {
			slog.Debug("duplicate dataset removed", "name", k.Name, "product", k.Product, "location", k.Location)
		}
	}

	return duplicates
}

// Violation describes an activity breaking a database invariant.
type Violation struct {
	Activity Key
	Reason   string
}

// Validate checks the production exchange invariant and that every
// technosphere exchange resolves to an existing activity or is flagged as
// unresolved.
func (db *Database) Validate() []Violation {
	keys := make(map[Key]struct{}, len(db.activities))
	for _, a := range db.activities {
		keys[a.Key()] = struct{}{}
	}

	violations := make([]Violation, 0)
	for _, a := range db.activities {
		productions := 0
		for _, exc := range a.Exchanges {
			if exc.Type == Production && exc.Product == a.ReferenceProduct {
				productions++
			}
		}
		if productions != 1 {
			violations = append(violations, Violation{Activity: a.Key(), Reason: "activity must have exactly one reference production exchange"})
		}

		for _, exc := range a.Technosphere() {
			if exc.Unresolved {
				continue
			}
			if _, found := keys[exc.SupplierKey()]; !found {
				violations = append(violations, Violation{Activity: a.Key(), Reason: "unresolved technosphere exchange: " + exc.SupplierKey().String()})
			}
		}
	}

	slices.SortFunc(violations, func(a, b Violation) int {
		if c := compareKeys(a.Activity, b.Activity); c != 0 {
			return c
		}
		if a.Reason < b.Reason {
			return -1
		}
		if a.Reason > b.Reason {
			return 1
		}
		return 0
	})

	return violations
}

func compareKeys(a, b Key) int {
	for _, pair := range [][2]string{{a.Name, b.Name}, {a.Product, b.Product}, {a.Location, b.Location}} {
		if pair[0] < pair[1] {
			return -1
		}
		if pair[0] > pair[1] {
			return 1
		}
	}
	return 0
}
