package sector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactorMap(t *testing.T) {
	testMap := NewFactorMap(2, map[string]float64{
		"Electricity|Coal":   40,
		"Electricity|Coal|w": 35,
		"Electricity|Wind":   25,
		"Steel|":             20,
	})

	assert.Equal(t, 40.0, testMap.Get("Electricity|Coal"))
	assert.Equal(t, 35.0, testMap.Get("Electricity|Coal|w/o CC"))
	assert.Equal(t, 20.0, testMap.Get("Steel|Primary"))
	assert.Equal(t, 2.0, testMap.Get("Cement|Production"))

	assert.Equal(t, 25.0, testMap.Average("Electricity|Wind"))
	assert.Equal(t, 37.5, testMap.Average("Electricity|Coal"))
	assert.Equal(t, 30.0, testMap.Average())
	assert.Equal(t, 2.0, testMap.Average("Heat|"))
}

func TestDefaultFactors(t *testing.T) {
	assert.Equal(t, 60.0, DefaultLifetimes.Get("Electricity|Nuclear"))
	assert.Equal(t, 40.0, DefaultLifetimes.Get("Steel|Secondary"))
	assert.Equal(t, 30.0, DefaultLifetimes.Get("Cement|Production"))

	assert.Equal(t, 43.0, lowerHeatingValues.Get("diesel, low-sulfur"))
	assert.Equal(t, 26.5, lowerHeatingValues.Get("ethanol, without water, in 99.7% solution state, from fermentation"))
	assert.Equal(t, 0.525, calcinationCO2.Get("EUR"))
}
