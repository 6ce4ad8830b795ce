package cache

// Plant is one fully enriched garden row: the owned instance joined with its
// species catalog record. The cache stores only this denormalized form, so
// readers never join at query time.
type Plant struct {
	ID                   string
	SpeciesName          string
	CustomName           string
	ImageURL             string
	LastWatered          int64
	LastSensorSeen       int64
	SoilMoisture         *float64
	Temperature          *float64
	CurrentAirHumidity   *float64
	MinAirHumidity       *float64
	MaxAirHumidity       *float64
	ConnectedSensorID    string
	NotificationsEnabled bool
	HealthStatus         string

	// Species catalog fields, denormalized onto the instance.
	Fact            string
	Toxicity        string
	GrowthHabit     string
	SoilType        string
	BotanicalType   string
	Lifecycle       string
	FruitInfo       string
	Uses            []string
	MaxHeight       string
	MinTemp         *float64
	MaxTemp         *float64
	MinSoilHumidity *float64
	MaxSoilHumidity *float64
	WaterInterval   int
	Light           string
	CareDifficulty  string
}

// Patch is a partial in-place update to a cached plant. Nil fields are left
// untouched. ClearSensor distinguishes "disconnect the sensor" from "don't
// touch the sensor", which a nil pointer alone cannot express.
type Patch struct {
	CustomName           *string
	LastWatered          *int64
	NotificationsEnabled *bool
	SensorID             *string
	ClearSensor          bool
}

// IsZero reports whether the patch would change nothing.
func (p Patch) IsZero() bool {
	return p.CustomName == nil &&
		p.LastWatered == nil &&
		p.NotificationsEnabled == nil &&
		p.SensorID == nil &&
		!p.ClearSensor
}
