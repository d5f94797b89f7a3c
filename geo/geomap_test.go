package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIAMToInventoryLocations(t *testing.T) {
	remind, err := NewGeomap("REMIND", nil)
	require.NoError(t, err)
	image, err := NewGeomap("IMAGE", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{Global}, remind.IAMToInventoryLocations("World", true))
	assert.Equal(t, []string{RestOfWorld}, remind.IAMToInventoryLocations("XYZ", true))
	assert.Equal(t, []string{"AU", "CA", "NZ", "OCE"}, remind.IAMToInventoryLocations("CAZ", true))
	assert.Equal(t, []string{"CN", "CN-ALL", "HK", "TW"}, remind.IAMToInventoryLocations("CHA", true))

	intersecting := remind.IAMToInventoryLocations("CAZ", false)
	assert.Contains(t, intersecting, "RNA")
	assert.NotContains(t, intersecting, Global)

	// the argument is always a region, the results always inventory locations
	assert.Equal(t, []string{"AU", "NZ", "OCE"}, image.IAMToInventoryLocations("OCE", true))
	middleEast := image.IAMToInventoryLocations("ME", true)
	assert.Contains(t, middleEast, "RME")
	assert.Contains(t, middleEast, "SA")
	assert.NotContains(t, middleEast, "ME")
	assert.Equal(t, middleEast, image.IAMToInventoryLocations("IMAGE|ME", true))
	assert.Contains(t, image.IAMToInventoryLocations("CEU", true), "ME")
	assert.Equal(t, []string{RestOfWorld}, image.IAMToInventoryLocations("REMIND|EUR", true))
}

func TestInventoryToIAMLocation(t *testing.T) {
	remind, err := NewGeomap("REMIND", nil)
	require.NoError(t, err)
	image, err := NewGeomap("IMAGE", nil)
	require.NoError(t, err)

	tests := []struct {
		geomap   *Geomap
		location string
		want     string
	}{
		{remind, "EUR", "EUR"},
		{remind, "DE", "EUR"},
		{remind, "CH", "NEU"},
		{remind, "CN-ALL", "CHA"},
		{remind, Global, "World"},
		{remind, RestOfWorld, "World"},
		{remind, "Europe without Switzerland", "EUR"},
		{remind, "IAI Area, EU27 & EFTA", "EUR"},
		{remind, "RER w/o RU", "EUR"},
		{remind, "somewhere", "World"},
		{image, "ME", "CEU"},
		{image, "IMAGE|ME", "ME"},
		{image, "OCE", "OCE"},
		{image, "SA", "ME"},
		{image, "RME", "ME"},
		{image, "RER", "WEU"},
		{image, "RAF", "SAF"},
		{image, "CN-ALL", "CHN"},
	}

	for _, tt := range tests {
		t.Run(tt.geomap.Model()+"/"+tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.geomap.InventoryToIAMLocation(tt.location))
		})
	}
}

func TestRegionCodeCollisions(t *testing.T) {
	image, err := NewGeomap("IMAGE", nil)
	require.NoError(t, err)
	index := image.Index()

	// ME is Montenegro as a location and the Middle East as an IMAGE region
	assert.False(t, index.IsRegion("ME"))
	assert.True(t, index.IsRegion("IMAGE|ME"))
	assert.True(t, index.HasRegion("ME"))
	assert.Equal(t, "IMAGE|ME", index.Qualify("ME"))
	assert.Equal(t, "FR", index.Qualify("FR"))

	assert.True(t, index.Contains("CEU", "ME"))
	assert.False(t, index.Contains("ME", "SA"))
	assert.True(t, index.Contains("IMAGE|ME", "SA"))
	assert.False(t, index.Contains("IMAGE|ME", "ME"))
	assert.Equal(t, "CEU", image.InventoryToIAMLocation("ME"))
	assert.Contains(t, image.IAMToInventoryLocations("CEU", true), "ME")

	region, err := image.IAMToOtherModelRegion("IMAGE|ME", "REMIND")
	require.NoError(t, err)
	assert.Equal(t, "MEA", region)
}

func TestParseRegion(t *testing.T) {
	r, ok := ParseRegion("image|ME")
	require.True(t, ok)
	assert.Equal(t, Region{Model: "IMAGE", Code: "ME"}, r)
	assert.Equal(t, "IMAGE|ME", r.String())

	for _, s := range []string{"ME", "|ME", "IMAGE|", "RER w/o RU"} {
		_, ok := ParseRegion(s)
		assert.False(t, ok, s)
	}
	assert.Equal(t, "ME", Unqualify("IMAGE|ME"))
	assert.Equal(t, "RER", Unqualify("RER"))
}

func TestTieBreak(t *testing.T) {
	remind, err := NewGeomap("REMIND", nil)
	require.NoError(t, err)

	assert.Equal(t, "EUR", remind.tieBreak("RER", []string{"NEU", "REF", "EUR"}, true))
	assert.Equal(t, "NEU", remind.tieBreak("RER", []string{"NEU", "REF"}, true))
	// no documented pair: smallest region wins
	assert.Equal(t, "JPN", remind.tieBreak("RAS", []string{"OAS", "JPN"}, false))
}

func TestRegionMappingRoundTrip(t *testing.T) {
	for _, model := range Models() {
		geomap, err := NewGeomap(model, nil)
		require.NoError(t, err)

		for _, region := range geomap.Regions() {
			locations := geomap.IAMToInventoryLocations(region, true)
			mapped := make([]string, 0, len(locations))
			for _, location := range locations {
				mapped = append(mapped, geomap.InventoryToIAMLocation(location))
			}
			assert.Contains(t, mapped, region, "%s/%s: no inventory location maps back", model, region)
		}
	}
}

func TestGeomapSourceVersion(t *testing.T) {
	assert.Equal(t, []string{"3.10", "3.8", "3.9"}, SourceVersions())

	geomap, err := NewGeomap("remind", nil, WithSourceVersion("3.10"))
	require.NoError(t, err)
	assert.Equal(t, "3.10", geomap.SourceVersion())
	assert.Equal(t, "EUR", geomap.InventoryToIAMLocation("Europe without Austria"))

	_, err = NewGeomap("remind", nil, WithSourceVersion("2.2"))
	assert.ErrorContains(t, err, "no location aliases")
}

func TestIAMToIAMRegion(t *testing.T) {
	image, err := NewGeomap("IMAGE", nil)
	require.NoError(t, err)

	region, err := image.IAMToIAMRegion("EUR", "remind")
	require.NoError(t, err)
	assert.Equal(t, "WEU", region)

	region, err = image.IAMToIAMRegion("WEU", "IMAGE")
	require.NoError(t, err)
	assert.Equal(t, "WEU", region)

	region, err = image.IAMToOtherModelRegion("World", "REMIND")
	require.NoError(t, err)
	assert.Equal(t, "World", region)

	_, err = image.IAMToOtherModelRegion("EUR", "REMIND")
	assert.ErrorIs(t, err, ErrUnknownRegion)

	_, err = image.IAMToOtherModelRegion("WEU", "MESSAGE")
	assert.ErrorIs(t, err, ErrUnknownModel)

	// every defined region has a counterpart
	for _, from := range Models() {
		geomap, err := NewGeomap(from, nil)
		require.NoError(t, err)
		for _, to := range Models() {
			if to == from {
				continue
			}
			for _, region := range append(geomap.Regions(), geomap.GlobalRegion()) {
				_, err := geomap.IAMToOtherModelRegion(region, to)
				assert.NoError(t, err, "%s -> %s: %s", from, to, region)
			}
		}
	}
}
