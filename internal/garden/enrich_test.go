package garden

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenlab/sprout/internal/api"
)

func floatPtr(f float64) *float64 { return &f }

func TestEnrich_JoinsBySpeciesName(t *testing.T) {
	profile := &api.Profile{
		UserPlants: []api.UserPlant{
			{ID: "p1", SpeciesName: "Monstera deliciosa", CustomName: "Fred", AirHumidity: "40,60"},
		},
		MasterPlants: []api.MasterPlant{
			{
				SpeciesName:    "Monstera deliciosa",
				Toxicity:       "Toxic to pets",
				Uses:           []string{"decorative"},
				MinTemp:        floatPtr(10),
				MaxTemp:        floatPtr(30),
				SoilHumidity:   "30,50",
				WaterInterval:  9,
				Light:          "indirect",
				CareDifficulty: "easy",
			},
		},
	}

	plants := Enrich(profile)
	require.Len(t, plants, 1)

	p := plants[0]
	assert.Equal(t, "Fred", p.CustomName)
	assert.Equal(t, "Toxic to pets", p.Toxicity)
	assert.Equal(t, []string{"decorative"}, p.Uses)
	assert.Equal(t, 9, p.WaterInterval)
	assert.Equal(t, "indirect", p.Light)
	assert.Equal(t, "easy", p.CareDifficulty)

	require.NotNil(t, p.MinAirHumidity)
	assert.InDelta(t, 40, *p.MinAirHumidity, 0.001)
	require.NotNil(t, p.MaxAirHumidity)
	assert.InDelta(t, 60, *p.MaxAirHumidity, 0.001)

	require.NotNil(t, p.MinSoilHumidity)
	assert.InDelta(t, 30, *p.MinSoilHumidity, 0.001)
	require.NotNil(t, p.MaxSoilHumidity)
	assert.InDelta(t, 50, *p.MaxSoilHumidity, 0.001)
}

func TestEnrich_MissingCatalogRecordGetsDefaults(t *testing.T) {
	profile := &api.Profile{
		UserPlants: []api.UserPlant{
			{ID: "p1", SpeciesName: "Mystery fern"},
		},
	}

	plants := Enrich(profile)
	require.Len(t, plants, 1)

	p := plants[0]
	assert.Equal(t, "Unknown", p.Light)
	assert.Equal(t, "Unknown", p.CareDifficulty)
	assert.Equal(t, 7, p.WaterInterval)
	assert.Equal(t, "Mystery fern", p.CustomName, "display name falls back to species")
	assert.Equal(t, "Healthy", p.HealthStatus)
}

func TestEnrich_UnicodeNormalizedJoin(t *testing.T) {
	// Same name, NFD in one dataset, NFC in the other.
	profile := &api.Profile{
		UserPlants: []api.UserPlant{
			{ID: "p1", SpeciesName: "Le\u0301a's fern"}, // decomposed e + combining acute
		},
		MasterPlants: []api.MasterPlant{
			{SpeciesName: "L\u00e9a's fern", Light: "shade"}, // precomposed é
		},
	}

	plants := Enrich(profile)
	require.Len(t, plants, 1)
	assert.Equal(t, "shade", plants[0].Light, "normalization differences must not break the join")
}

func TestEnrich_DuplicateSpeciesShareOneRecord(t *testing.T) {
	profile := &api.Profile{
		UserPlants: []api.UserPlant{
			{ID: "p1", SpeciesName: "Aloe vera"},
			{ID: "p2", SpeciesName: "Aloe vera", CustomName: "Spike"},
		},
		MasterPlants: []api.MasterPlant{
			{SpeciesName: "Aloe vera", CareDifficulty: "easy"},
		},
	}

	plants := Enrich(profile)
	require.Len(t, plants, 2)
	assert.Equal(t, "easy", plants[0].CareDifficulty)
	assert.Equal(t, "easy", plants[1].CareDifficulty)
}

func TestEnrich_EmptyProfile(t *testing.T) {
	assert.Empty(t, Enrich(&api.Profile{}))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantMin float64
		wantMax float64
		wantNil bool
	}{
		{name: "plain", in: "40,60", wantMin: 40, wantMax: 60},
		{name: "spaces", in: " 39.5 , 60.5 ", wantMin: 39.5, wantMax: 60.5},
		{name: "empty", in: "", wantNil: true},
		{name: "single value", in: "40", wantNil: true},
		{name: "too many parts", in: "40,50,60", wantNil: true},
		{name: "non-numeric", in: "low,high", wantNil: true},
		{name: "half numeric", in: "40,high", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := parseRange(tt.in)

			if tt.wantNil {
				assert.Nil(t, lo)
				assert.Nil(t, hi)
				return
			}

			require.NotNil(t, lo)
			require.NotNil(t, hi)
			assert.InDelta(t, tt.wantMin, *lo, 0.001)
			assert.InDelta(t, tt.wantMax, *hi, 0.001)
		})
	}
}
