package api

import (
	"context"
	"net/http"
	"net/url"
)

// Rename changes the display name of a plant.
func (c *Client) Rename(ctx context.Context, plantID, newName string) error {
	path := "/plants/" + url.PathEscape(plantID) + "/rename?newName=" + url.QueryEscape(newName)
	return c.doJSON(ctx, http.MethodPatch, path, nil, nil)
}

// ConnectSensor pairs a soil sensor with a plant. Sensor-driven readings
// are computed server-side, so callers follow up with a full sync.
func (c *Client) ConnectSensor(ctx context.Context, plantID, sensorID string) error {
	q := url.Values{}
	q.Set("plantId", plantID)
	q.Set("sensorId", sensorID)

	return c.doJSON(ctx, http.MethodPost, "/plants/connect-sensor?"+q.Encode(), nil, nil)
}

// DisconnectSensor unpairs the plant's sensor.
func (c *Client) DisconnectSensor(ctx context.Context, plantID string) error {
	return c.doJSON(ctx, http.MethodPost, "/plants/"+url.PathEscape(plantID)+"/disconnect-sensor", nil, nil)
}

// Delete removes a plant from the caller's garden.
func (c *Client) Delete(ctx context.Context, plantID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/plants/"+url.PathEscape(plantID), nil, nil)
}

// Water records a watering for the plant.
func (c *Client) Water(ctx context.Context, plantID string) error {
	return c.doJSON(ctx, http.MethodPost, "/plants/"+url.PathEscape(plantID)+"/water", nil, nil)
}

// ToggleNotifications enables or disables care reminders for the plant.
func (c *Client) ToggleNotifications(ctx context.Context, plantID string, enabled bool) error {
	q := url.Values{}
	if enabled {
		q.Set("enabled", "true")
	} else {
		q.Set("enabled", "false")
	}

	path := "/plants/" + url.PathEscape(plantID) + "/notifications?" + q.Encode()

	return c.doJSON(ctx, http.MethodPatch, path, nil, nil)
}
