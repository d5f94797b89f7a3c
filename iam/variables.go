package iam

import (
	"embed"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/polca/premise-sub000/internal/must"
	"github.com/polca/premise-sub000/internal/tables"
)

//go:embed data/*.yaml
var dataFS embed.FS

// VariableMap lists, per sector, the premise variables and the name each
// model gives them in its output files.
type VariableMap map[string]map[string]map[string]string

var defaultVariables VariableMap

func init() {
	raw, err := dataFS.ReadFile("data/variables.yaml")
	must.NoError(err)
	must.NoError(tables.Decode(raw, &defaultVariables))

	for sector, variables := range defaultVariables {
		for variable, names := range variables {
			for _, model := range Models() {
				_, found := names[model]
				must.Assert(found, fmt.Sprintf("%s variable %s has no name for model %s", sector, variable, model))
			}
		}
	}
}

func DefaultVariables() VariableMap {
	return defaultVariables
}

// Sectors returns the sectors with at least one variable, sorted.
func (vm VariableMap) Sectors() []string {
	return slices.Sorted(maps.Keys(vm))
}

// Variables returns the premise variables of a sector, sorted.
func (vm VariableMap) Variables(sector string) []string {
	return slices.Sorted(maps.Keys(vm[sector]))
}

// Only returns the subset of the map covering the given sectors.
func (vm VariableMap) Only(sectors ...string) VariableMap {
	subset := make(VariableMap, len(sectors))
	for _, sector := range sectors {
		if variables, found := vm[sector]; found {
			subset[sector] = variables
		}
	}
	return subset
}

// reverse maps the names used by model to premise variables. Several
// premise variables may share the same model variable.
func (vm VariableMap) reverse(model string) map[string][]string {
	model = strings.ToUpper(model)
	names := make(map[string][]string)
	for _, variables := range vm {
		for variable, perModel := range variables {
			name, found := perModel[model]
			if !found {
				continue
			}
			if !slices.Contains(names[name], variable) {
				names[name] = append(names[name], variable)
			}
		}
	}
	return names
}
