package garden

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gardenlab/sprout/internal/api"
	"github.com/gardenlab/sprout/internal/cache"
)

// Defaults for instances whose species has no catalog record. The garden
// must render every owned plant, catalog gap or not.
const (
	defaultLight          = "Unknown"
	defaultCareDifficulty = "Unknown"
	defaultWaterInterval  = 7
	defaultHealthStatus   = "Healthy"
)

// speciesKey builds the join key for a species name. The name is a weak
// string reference, so Unicode normalization differences between the two
// datasets must not break the join.
func speciesKey(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Enrich joins every owned plant with its species catalog record and returns
// the denormalized cache rows. Instances without a catalog match get explicit
// defaults rather than being dropped.
func Enrich(profile *api.Profile) []cache.Plant {
	catalog := make(map[string]*api.MasterPlant, len(profile.MasterPlants))
	for i := range profile.MasterPlants {
		catalog[speciesKey(profile.MasterPlants[i].SpeciesName)] = &profile.MasterPlants[i]
	}

	plants := make([]cache.Plant, 0, len(profile.UserPlants))
	for i := range profile.UserPlants {
		up := &profile.UserPlants[i]
		plants = append(plants, enrichOne(up, catalog[speciesKey(up.SpeciesName)]))
	}

	return plants
}

// enrichOne builds one denormalized row from an instance and its (possibly
// absent) catalog record.
func enrichOne(up *api.UserPlant, mp *api.MasterPlant) cache.Plant {
	p := cache.Plant{
		ID:                   up.ID,
		SpeciesName:          up.SpeciesName,
		CustomName:           up.CustomName,
		ImageURL:             up.ImageURL,
		LastWatered:          up.LastWatered,
		LastSensorSeen:       up.LastSensorSeen,
		SoilMoisture:         up.SoilMoisture,
		Temperature:          up.Temperature,
		CurrentAirHumidity:   up.CurrentAirHumidity,
		ConnectedSensorID:    up.ConnectedSensorID,
		NotificationsEnabled: up.NotificationsEnabled,
		HealthStatus:         up.HealthStatus,
	}

	if p.CustomName == "" {
		p.CustomName = up.SpeciesName
	}

	if p.HealthStatus == "" {
		p.HealthStatus = defaultHealthStatus
	}

	p.MinAirHumidity, p.MaxAirHumidity = parseRange(up.AirHumidity)

	if mp == nil {
		p.Light = defaultLight
		p.CareDifficulty = defaultCareDifficulty
		p.WaterInterval = defaultWaterInterval

		return p
	}

	p.Fact = mp.Fact
	p.Toxicity = mp.Toxicity
	p.GrowthHabit = mp.GrowthHabit
	p.SoilType = mp.SoilType
	p.BotanicalType = mp.BotanicalType
	p.Lifecycle = mp.Lifecycle
	p.FruitInfo = mp.FruitInfo
	p.Uses = mp.Uses
	p.MaxHeight = mp.MaxHeight
	p.MinTemp = mp.MinTemp
	p.MaxTemp = mp.MaxTemp
	p.MinSoilHumidity, p.MaxSoilHumidity = parseRange(mp.SoilHumidity)
	p.WaterInterval = mp.WaterInterval
	p.Light = mp.Light
	p.CareDifficulty = mp.CareDifficulty

	if p.Light == "" {
		p.Light = defaultLight
	}

	if p.CareDifficulty == "" {
		p.CareDifficulty = defaultCareDifficulty
	}

	if p.WaterInterval <= 0 {
		p.WaterInterval = defaultWaterInterval
	}

	return p
}

// parseRange decodes a "min,max" range string. Anything malformed yields
// (nil, nil): range strings come from free-form catalog data, and a bad one
// must never fail a sync.
func parseRange(s string) (min, max *float64) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, nil
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, nil
	}

	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, nil
	}

	return &lo, &hi
}
