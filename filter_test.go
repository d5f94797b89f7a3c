package premise_test

import (
	"testing"

	premise "github.com/polca/premise-sub000"
	"github.com/stretchr/testify/assert"
)

func TestFilterInterpreter(t *testing.T) {
	a := &premise.Activity{Name: "electricity production, hard coal", ReferenceProduct: "electricity, high voltage", Location: "DE", Unit: "kilowatt hour"}

	tests := []struct {
		name   string
		filter premise.Filter
		match  bool
	}{
		{"equals", premise.Equals(premise.FieldLocation, "DE"), true},
		{"contains", premise.Contains(premise.FieldName, "hard coal"), true},
		{"starts with", premise.StartsWith(premise.FieldProduct, "electricity"), true},
		{"not", premise.Not(premise.Equals(premise.FieldLocation, "DE")), false},
		{"and", premise.And(premise.Contains(premise.FieldName, "coal"), premise.Equals(premise.FieldUnit, "kilowatt hour")), true},
		{"and short circuits", premise.And(premise.Contains(premise.FieldName, "coal"), premise.Equals(premise.FieldUnit, "kilogram")), false},
		{"or", premise.Or(premise.Equals(premise.FieldLocation, "FR"), premise.Equals(premise.FieldLocation, "DE")), true},
		{"either", premise.Either(premise.FieldLocation, "FR", "CH"), false},
		{"empty and", premise.And(), true},
		{"empty or", premise.Or(), false},
		{"nested", premise.And(premise.Not(premise.Or(premise.Contains(premise.FieldName, "lignite"))), premise.Contains(premise.FieldName, "electricity")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.filter.Match(a))
		})
	}
}

func TestFilterExchangeCategories(t *testing.T) {
	exc := &premise.Exchange{Type: premise.Biosphere, Name: "Carbon dioxide, fossil", Categories: []string{"air", "urban air close to ground"}}

	assert.True(t, premise.Equals(premise.FieldCategories, "air").MatchExchange(exc))
	assert.True(t, premise.StartsWith(premise.FieldCategories, "urban").MatchExchange(exc))
	assert.False(t, premise.Equals(premise.FieldCategories, "water").MatchExchange(exc))
	assert.False(t, premise.Equals(premise.FieldCategories, "air").Match(&premise.Activity{}))
}
