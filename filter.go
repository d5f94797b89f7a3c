package premise

import (
	"slices"
	"strings"
)

// Field names an attribute that filters can be evaluated against. The same
// field set applies to activities and exchanges; for activities Product is
// the reference product.
type Field int

const (
	FieldName Field = iota
	FieldProduct
	FieldLocation
	FieldUnit
	FieldCategories
)

type filterOp int

const (
	opEquals filterOp = iota
	opContains
	opStartsWith
	opNot
	opAnd
	opOr
)

// Filter is a small predicate tree. Leaves compare one field against a
// value; Not, And and Or combine other filters. A single interpreter
// evaluates the tree against activities or exchanges.
type Filter struct {
	op       filterOp
	field    Field
	value    string
	children []Filter
}

func Equals(field Field, value string) Filter {
	return Filter{op: opEquals, field: field, value: value}
}

func Contains(field Field, value string) Filter {
	return Filter{op: opContains, field: field, value: value}
}

func StartsWith(field Field, value string) Filter {
	return Filter{op: opStartsWith, field: field, value: value}
}

func Not(f Filter) Filter {
	return Filter{op: opNot, children: []Filter{f}}
}

// And matches when every child matches. An empty And matches everything.
func And(filters ...Filter) Filter {
	return Filter{op: opAnd, children: filters}
}

// Or matches when at least one child matches. An empty Or matches nothing.
func Or(filters ...Filter) Filter {
	return Filter{op: opOr, children: filters}
}

// Either is a shorthand for Or over Equals leaves of the same field.
func Either(field Field, values ...string) Filter {
	filters := make([]Filter, 0, len(values))
	for _, v := range values {
		filters = append(filters, Equals(field, v))
	}
	return Or(filters...)
}

func (f Filter) Match(a *Activity) bool {
	return f.eval(func(field Field) []string {
		switch field {
		case FieldName:
			return []string{a.Name}
		case FieldProduct:
			return []string{a.ReferenceProduct}
		case FieldLocation:
			return []string{a.Location}
		case FieldUnit:
			return []string{a.Unit}
		}
		return nil
	})
}

func (f Filter) MatchExchange(e *Exchange) bool {
	return f.eval(func(field Field) []string {
		switch field {
		case FieldName:
			return []string{e.Name}
		case FieldProduct:
			return []string{e.Product}
		case FieldLocation:
			return []string{e.Location}
		case FieldUnit:
			return []string{e.Unit}
		case FieldCategories:
			return e.Categories
		}
		return nil
	})
}

func (f Filter) eval(values func(Field) []string) bool {
	switch f.op {
	case opNot:
		return !f.children[0].eval(values)
	case opAnd:
		for _, child := range f.children {
			if !child.eval(values) {
				return false
			}
		}
		return true
	case opOr:
		for _, child := range f.children {
			if child.eval(values) {
				return true
			}
		}
		return false
	}

	return slices.ContainsFunc(values(f.field), func(v string) bool {
		switch f.op {
		case opEquals:
			return v == f.value
		case opContains:
			return strings.Contains(v, f.value)
		case opStartsWith:
			return strings.HasPrefix(v, f.value)
		}
		return false
	})
}
