package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// SensorEvent is one message from the server's live sensor feed.
type SensorEvent struct {
	Type     string `json:"type"`
	PlantID  string `json:"plantId"`
	SensorID string `json:"sensorId,omitempty"`
}

// Reconnect backoff for the sensor feed.
const (
	listenInitialBackoff = 5 * time.Second
	listenMaxBackoff     = 60 * time.Second
	listenBackoffFactor  = 2
)

// Listen subscribes to the server's sensor event feed over a websocket and
// invokes onEvent for every decoded message. Undecodable messages are
// logged and skipped. Connection failures reconnect with capped exponential
// backoff; Listen returns only when ctx is canceled.
func (c *Client) Listen(ctx context.Context, wsURL string, onEvent func(SensorEvent)) error {
	backoff := listenInitialBackoff

	for {
		err := c.listenOnce(ctx, wsURL, onEvent)
		if ctx.Err() != nil {
			return fmt.Errorf("api: sensor feed canceled: %w", ctx.Err())
		}

		c.logger.Warn("sensor feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("api: sensor feed canceled: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= listenBackoffFactor
		if backoff > listenMaxBackoff {
			backoff = listenMaxBackoff
		}
	}
}

// listenOnce dials the feed and pumps events until the connection drops.
func (c *Client) listenOnce(ctx context.Context, wsURL string, onEvent func(SensorEvent)) error {
	header := http.Header{}

	cred, err := c.creds.Load()
	if err == nil && cred != nil {
		header.Set("Authorization", "Bearer "+cred.AccessToken)

		if id := sanitizeHeaderValue(cred.OwnerID); id != "" {
			header.Set("X-User-Id", id)
		}
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("api: dialing sensor feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	c.logger.Info("sensor feed connected", slog.String("url", wsURL))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("api: reading sensor feed: %w", err)
		}

		var event SensorEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Warn("skipping undecodable sensor event",
				slog.String("error", err.Error()),
			)

			continue
		}

		c.logger.Debug("sensor event",
			slog.String("type", event.Type),
			slog.String("plant_id", event.PlantID),
		)

		onEvent(event)
	}
}
