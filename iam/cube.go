// Package iam loads Integrated Assessment Model scenario outputs into a
// region x variable x year cube and derives the quantities sector
// transformations read from it.
package iam

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/polca/premise-sub000/geo"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnsupportedModel = errors.New("unsupported iam model")
	ErrYearOutOfRange   = errors.New("year out of scenario range")
	ErrUnknownVariable  = errors.New("unknown iam variable")
)

var supportedModels = []string{"IMAGE", "REMIND"}

// Models returns the supported IAM models, upper case.
func Models() []string {
	return slices.Clone(supportedModels)
}

// NormalizeModel returns the canonical name of a supported model.
func NormalizeModel(model string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(model))
	if !slices.Contains(supportedModels, upper) {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedModel, model, strings.Join(supportedModels, ", "))
	}
	return upper, nil
}

// Cube is the region x variable x year projection of one (model, pathway).
// It is built once per scenario and read-only afterwards, so it can be
// shared by concurrent readers.
type Cube struct {
	Model   string
	Pathway string

	regions   []string
	variables []string
	years     []int
	units     map[string]string
	// region -> variables x years
	data map[string]*mat.Dense
	// region -> variable -> true when the source had a row
	present map[string]map[string]bool

	extrapolate bool
}

type CubeOption func(*Cube)

// WithExtrapolation makes years outside the cube range return the value of
// the nearest year instead of ErrYearOutOfRange.
func WithExtrapolation() CubeOption {
	return func(c *Cube) {
		c.extrapolate = true
	}
}

// Row is one (region, variable) time series of a cube.
type Row struct {
	Region   string
	Variable string
	Unit     string
	Values   map[int]float64
}

// NewCube builds a cube from rows. Missing years of a row are set to zero.
func NewCube(model, pathway string, rows []Row, opts ...CubeOption) (*Cube, error) {
	model, err := NormalizeModel(model)
	if err != nil {
		return nil, err
	}

	cube := &Cube{
		Model:   model,
		Pathway: pathway,
		units:   make(map[string]string),
		data:    make(map[string]*mat.Dense),
		present: make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(cube)
	}

	regions := make(map[string]struct{})
	variables := make(map[string]struct{})
	years := make(map[int]struct{})
	for _, row := range rows {
		regions[row.Region] = struct{}{}
		variables[row.Variable] = struct{}{}
		for year := range row.Values {
			years[year] = struct{}{}
		}
		if unit, found := cube.units[row.Variable]; found && unit != row.Unit {
			return nil, fmt.Errorf("variable %s has conflicting units %q and %q", row.Variable, unit, row.Unit)
		}
		cube.units[row.Variable] = row.Unit
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("scenario %s/%s has no data", model, pathway)
	}

	cube.regions = slices.Sorted(maps.Keys(regions))
	cube.variables = slices.Sorted(maps.Keys(variables))
	cube.years = slices.Sorted(maps.Keys(years))

	for _, region := range cube.regions {
		cube.data[region] = mat.NewDense(len(cube.variables), len(cube.years), nil)
		cube.present[region] = make(map[string]bool)
	}

	for _, row := range rows {
		i, _ := slices.BinarySearch(cube.variables, row.Variable)
		for year, value := range row.Values {
			j, _ := slices.BinarySearch(cube.years, year)
			cube.data[row.Region].Set(i, j, value)
		}
		cube.present[row.Region][row.Variable] = true
	}

	return cube, nil
}

func (cube *Cube) Regions() []string { return slices.Clone(cube.regions) }

func (cube *Cube) Variables() []string { return slices.Clone(cube.variables) }

func (cube *Cube) Years() []int { return slices.Clone(cube.years) }

func (cube *Cube) Unit(variable string) string { return cube.units[variable] }

// Has reports whether the source provided variable for region.
func (cube *Cube) Has(region, variable string) bool {
	return cube.present[region][variable]
}

// HasAll reports whether every variable is provided for region.
func (cube *Cube) HasAll(region string, variables ...string) bool {
	for _, variable := range variables {
		if !cube.Has(region, variable) {
			return false
		}
	}
	return true
}

// Series returns the values of variable for region, one per Years entry.
func (cube *Cube) Series(region, variable string) ([]float64, error) {
	dense, found := cube.data[region]
	if !found {
		return nil, fmt.Errorf("%w: %s not in %s/%s", geo.ErrUnknownRegion, region, cube.Model, cube.Pathway)
	}
	if !cube.Has(region, variable) {
		return nil, fmt.Errorf("%w: %s for region %s", ErrUnknownVariable, variable, region)
	}
	i, _ := slices.BinarySearch(cube.variables, variable)
	return mat.Row(nil, i, dense), nil
}

// Value returns variable for region at year. Years between two data points
// are linearly interpolated. Years outside the range are an error unless
// the cube extrapolates.
func (cube *Cube) Value(region, variable string, year int) (float64, error) {
	series, err := cube.Series(region, variable)
	if err != nil {
		return 0, err
	}

	if err := cube.checkYear(year); err != nil {
		return 0, err
	}

	if j, found := slices.BinarySearch(cube.years, year); found {
		return series[j], nil
	}

	if len(cube.years) == 1 {
		return series[0], nil
	}

	xs := make([]float64, len(cube.years))
	for j, y := range cube.years {
		xs[j] = float64(y)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, series); err != nil {
		return 0, fmt.Errorf("failed to interpolate %s for %s: %w", variable, region, err)
	}

	return pl.Predict(float64(year)), nil
}

func (cube *Cube) checkYear(year int) error {
	first, last := cube.years[0], cube.years[len(cube.years)-1]
	if !cube.extrapolate && (year < first || year > last) {
		return fmt.Errorf("%w: %d not in [%d, %d] for %s/%s", ErrYearOutOfRange, year, first, last, cube.Model, cube.Pathway)
	}
	return nil
}

// Span returns the first and last year of the cube.
func (cube *Cube) Span() (first, last int) {
	return cube.years[0], cube.years[len(cube.years)-1]
}
