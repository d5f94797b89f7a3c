package iam

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// BaselineYear is the reference year of efficiency ratios.
	BaselineYear = 2020
	// DefaultLifetime is used for technologies without a known lifetime
	// when computing the capital replacement rate of a market.
	DefaultLifetime = 30.0
)

// Table holds a value per region and variable.
type Table map[string]map[string]float64

// Get returns the value of variable in region, 0 when absent.
func (t Table) Get(region, variable string) float64 {
	return t[region][variable]
}

// MarketShares divides every variable by the sum of the group per region at
// year. Variables missing for a region count as zero; a zero sum yields
// zero shares.
func (cube *Cube) MarketShares(variables []string, year int) (Table, error) {
	if err := cube.checkYear(year); err != nil {
		return nil, err
	}
	if !cube.knowsAny(variables) {
		return nil, fmt.Errorf("%w: none of %v in %s/%s", ErrUnknownVariable, variables, cube.Model, cube.Pathway)
	}

	shares := make(Table, len(cube.regions))
	for _, region := range cube.regions {
		values, err := cube.values(region, variables, year)
		if err != nil {
			return nil, err
		}
		shares[region] = normalize(variables, values, 1)
	}
	return shares, nil
}

// values returns the group at year, absent members as zero.
func (cube *Cube) values(region string, variables []string, year int) ([]float64, error) {
	values := make([]float64, len(variables))
	for i, variable := range variables {
		v, err := cube.Value(region, variable, year)
		if errors.Is(err, ErrUnknownVariable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			slog.Debug("ignoring non finite iam value", "region", region, "variable", variable, "year", year)
			continue
		}
		values[i] = v
	}
	return values, nil
}

// normalize scales values so that they sum to total, all zero if they sum
// to zero.
func normalize(variables []string, values []float64, total float64) map[string]float64 {
	result := make(map[string]float64, len(variables))
	sum := floats.Sum(values)
	for i, variable := range variables {
		if sum == 0 {
			result[variable] = 0
			continue
		}
		result[variable] = values[i] / sum * total
	}
	return result
}

func (cube *Cube) knowsAny(variables []string) bool {
	for _, region := range cube.regions {
		for _, variable := range variables {
			if cube.Has(region, variable) {
				return true
			}
		}
	}
	return false
}

// EfficiencyRatio returns the efficiency of variable at year relative to
// BaselineYear. Efficiency never degrades moving forward nor improves moving
// backward in time: such ratios are clamped to 1. Degenerate ratios (zero
// baseline, non finite values) are 1.
func (cube *Cube) EfficiencyRatio(region, variable string, year int) (float64, error) {
	current, err := cube.Value(region, variable, year)
	if err != nil {
		return 0, err
	}
	baseline, err := cube.Value(region, variable, BaselineYear)
	if err != nil {
		return 0, err
	}

	ratio := current / baseline
	if baseline == 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		slog.Debug("degenerate efficiency ratio, assuming no change", "region", region, "variable", variable, "year", year)
		return 1, nil
	}

	switch {
	case year > BaselineYear && ratio < 1:
		return 1, nil
	case year < BaselineYear && ratio > 1:
		return 1, nil
	}
	return ratio, nil
}

// EfficiencyRatios returns EfficiencyRatio for every region and variable
// the cube provides. Variables absent for a region are left out.
func (cube *Cube) EfficiencyRatios(variables []string, year int) (Table, error) {
	if err := cube.checkYear(year); err != nil {
		return nil, err
	}
	if err := cube.checkYear(BaselineYear); err != nil {
		return nil, err
	}

	ratios := make(Table, len(cube.regions))
	for _, region := range cube.regions {
		ratios[region] = make(map[string]float64, len(variables))
		for _, variable := range variables {
			if !cube.Has(region, variable) {
				continue
			}
			ratio, err := cube.EfficiencyRatio(region, variable, year)
			if err != nil {
				return nil, err
			}
			ratios[region][variable] = ratio
		}
	}
	return ratios, nil
}

// MarginalShares converts absolute production trajectories into the supply
// shift of a consequential market. For each region, the market change over
// [year, year+horizon] is compared with the production weighted capital
// replacement rate (-1/lifetime): a market shrinking faster than capital is
// replaced keeps only its declining suppliers, any other market keeps only
// its growing ones. Retained changes are renormalized and scaled by the
// market volume at year. The horizon is cut at the last year of the cube.
func (cube *Cube) MarginalShares(variables []string, lifetimes map[string]float64, year, horizon int) (Table, error) {
	if err := cube.checkYear(year); err != nil {
		return nil, err
	}
	if !cube.knowsAny(variables) {
		return nil, fmt.Errorf("%w: none of %v in %s/%s", ErrUnknownVariable, variables, cube.Model, cube.Pathway)
	}

	end := year + horizon
	if _, last := cube.Span(); end > last && !cube.extrapolate {
		slog.Debug("marginal market horizon cut at last scenario year", "year", year, "horizon", horizon, "last", last)
		end = last
	}

	lives := make([]float64, len(variables))
	for i, variable := range variables {
		lives[i] = DefaultLifetime
		if lifetime, found := lifetimes[variable]; found && lifetime > 0 {
			lives[i] = lifetime
		}
	}

	shares := make(Table, len(cube.regions))
	for _, region := range cube.regions {
		start, err := cube.values(region, variables, year)
		if err != nil {
			return nil, err
		}
		total := floats.Sum(start)
		if total == 0 || end <= year {
			shares[region] = normalize(variables, start, total)
			continue
		}

		finish, err := cube.values(region, variables, end)
		if err != nil {
			return nil, err
		}

		replacementRate := -1 / stat.Mean(lives, start)
		volumeChange := (floats.Sum(finish) - total) / total / float64(end-year)
		shrinking := volumeChange < replacementRate

		changes := make([]float64, len(variables))
		floats.SubTo(changes, finish, start)

		retained := make([]float64, len(variables))
		for i, change := range changes {
			switch {
			case shrinking && change < 0:
				retained[i] = -change
			case !shrinking && change > 0:
				retained[i] = change
			}
		}

		if floats.Sum(retained) == 0 {
			slog.Debug("no marginal supplier, keeping current market", "region", region, "year", year, "variables", variables)
			shares[region] = normalize(variables, start, total)
			continue
		}

		shares[region] = normalize(variables, retained, total)
	}

	return shares, nil
}
