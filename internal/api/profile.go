package api

import (
	"context"
	"net/http"
)

// UserPlant is one owned plant instance as the service reports it.
// The species name is a weak string reference into the master catalog, not
// a foreign key; joins happen client-side by exact name.
type UserPlant struct {
	ID                   string   `json:"id"`
	SpeciesName          string   `json:"speciesName"`
	CustomName           string   `json:"customName,omitempty"`
	ImageURL             string   `json:"imageUrl,omitempty"`
	LastWatered          int64    `json:"lastWatered,omitempty"`
	LastSensorSeen       int64    `json:"lastSensorSeen,omitempty"`
	SoilMoisture         *float64 `json:"soilMoisture,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
	CurrentAirHumidity   *float64 `json:"currentAirHumidity,omitempty"`
	AirHumidity          string   `json:"airH,omitempty"` // "min,max" range string
	ConnectedSensorID    string   `json:"connectedSensorId,omitempty"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
	HealthStatus         string   `json:"healthStatus,omitempty"`
}

// MasterPlant is one species record from the shared botanical catalog.
// Immutable per sync.
type MasterPlant struct {
	SpeciesName    string   `json:"speciesName"`
	Fact           string   `json:"fact,omitempty"`
	Toxicity       string   `json:"tox,omitempty"`
	GrowthHabit    string   `json:"growth,omitempty"`
	SoilType       string   `json:"soil,omitempty"`
	BotanicalType  string   `json:"type,omitempty"`
	Lifecycle      string   `json:"life,omitempty"`
	FruitInfo      string   `json:"fruit,omitempty"`
	Uses           []string `json:"uses,omitempty"`
	MaxHeight      string   `json:"maxHeight,omitempty"`
	MinTemp        *float64 `json:"minT,omitempty"`
	MaxTemp        *float64 `json:"maxT,omitempty"`
	SoilHumidity   string   `json:"soilH,omitempty"` // "min,max" range string
	WaterInterval  int      `json:"waterInterval,omitempty"`
	Light          string   `json:"light,omitempty"`
	CareDifficulty string   `json:"careDifficulty,omitempty"`
}

// Profile is the single-round-trip payload carrying both the caller's
// plants and the full species catalog. One response instead of two parallel
// calls, so instances can never reference species that were not fetched.
type Profile struct {
	UserPlants   []UserPlant   `json:"userPlants"`
	MasterPlants []MasterPlant `json:"masterPlants"`
}

// FetchProfile retrieves the caller's garden profile.
func (c *Client) FetchProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.doJSON(ctx, http.MethodGet, "/plants/profile", nil, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}
