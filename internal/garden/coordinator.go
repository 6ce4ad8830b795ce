package garden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gardenlab/sprout/internal/api"
	"github.com/gardenlab/sprout/internal/cache"
)

// ErrThrottled is returned when the same action on the same plant repeats
// within the cooldown window. The remote call is never dispatched.
var ErrThrottled = errors.New("garden: action throttled, try again shortly")

// Gateway is the coordinator's view of the remote service.
type Gateway interface {
	ProfileFetcher
	Rename(ctx context.Context, plantID, newName string) error
	Water(ctx context.Context, plantID string) error
	ConnectSensor(ctx context.Context, plantID, sensorID string) error
	DisconnectSensor(ctx context.Context, plantID string) error
	Delete(ctx context.Context, plantID string) error
	ToggleNotifications(ctx context.Context, plantID string, enabled bool) error
	Identify(ctx context.Context, image []byte) (*api.Identification, error)
}

// ImageSaver persists identify photos locally; imagestore.Store is the real
// implementation.
type ImageSaver interface {
	Save(image []byte) (string, error)
}

// Coordinator executes garden mutations remote-first: debounce check, then
// the authenticated remote call, and only on success the local cache update.
// A failed remote call never touches the cache.
type Coordinator struct {
	engine  *Engine
	remote  Gateway
	store   Store
	images  ImageSaver
	limiter *ActionLimiter
	logger  *slog.Logger

	nowFunc func() time.Time // injectable for tests
}

// NewCoordinator wires a mutation coordinator over the sync engine.
func NewCoordinator(engine *Engine, remote Gateway, store Store, images ImageSaver, limiter *ActionLimiter, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		engine:  engine,
		remote:  remote,
		store:   store,
		images:  images,
		limiter: limiter,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// allow applies the debounce gate for one action on one plant.
func (c *Coordinator) allow(action, plantID string) error {
	if c.limiter == nil {
		return nil
	}

	if !c.limiter.Allow(action + ":" + plantID) {
		c.logger.Debug("action throttled",
			slog.String("action", action),
			slog.String("plant_id", plantID),
		)

		return fmt.Errorf("%w: %s %s", ErrThrottled, action, plantID)
	}

	return nil
}

// Rename changes a plant's display name remotely, then patches the cache.
func (c *Coordinator) Rename(ctx context.Context, plantID, newName string) error {
	if err := c.allow("rename", plantID); err != nil {
		return err
	}

	if err := c.remote.Rename(ctx, plantID, newName); err != nil {
		return err
	}

	return c.store.ApplyPatch(ctx, plantID, cache.Patch{CustomName: &newName})
}

// Water records a watering remotely, then stamps the cached row with now.
func (c *Coordinator) Water(ctx context.Context, plantID string) error {
	if err := c.allow("water", plantID); err != nil {
		return err
	}

	if err := c.remote.Water(ctx, plantID); err != nil {
		return err
	}

	now := c.nowFunc().Unix()

	return c.store.ApplyPatch(ctx, plantID, cache.Patch{LastWatered: &now})
}

// ConnectSensor pairs a sensor remotely, then re-syncs: the readings that
// follow from pairing are computed server-side, so a local patch cannot
// reproduce them.
func (c *Coordinator) ConnectSensor(ctx context.Context, plantID, sensorID string) error {
	if err := c.allow("connect-sensor", plantID); err != nil {
		return err
	}

	if err := c.remote.ConnectSensor(ctx, plantID, sensorID); err != nil {
		return err
	}

	if _, err := c.engine.SyncFromRemote(ctx); err != nil {
		return err
	}

	return nil
}

// DisconnectSensor unpairs remotely, then clears the sensor and its live
// readings from the cached row.
func (c *Coordinator) DisconnectSensor(ctx context.Context, plantID string) error {
	if err := c.allow("disconnect-sensor", plantID); err != nil {
		return err
	}

	if err := c.remote.DisconnectSensor(ctx, plantID); err != nil {
		return err
	}

	return c.store.ApplyPatch(ctx, plantID, cache.Patch{ClearSensor: true})
}

// ToggleNotifications flips care reminders remotely, then patches the cache.
func (c *Coordinator) ToggleNotifications(ctx context.Context, plantID string, enabled bool) error {
	if err := c.allow("notify", plantID); err != nil {
		return err
	}

	if err := c.remote.ToggleNotifications(ctx, plantID, enabled); err != nil {
		return err
	}

	return c.store.ApplyPatch(ctx, plantID, cache.Patch{NotificationsEnabled: &enabled})
}

// Delete removes the plant remotely, then drops the cached row.
func (c *Coordinator) Delete(ctx context.Context, plantID string) error {
	if err := c.allow("delete", plantID); err != nil {
		return err
	}

	if err := c.remote.Delete(ctx, plantID); err != nil {
		return err
	}

	return c.store.Delete(ctx, plantID)
}

// Identify persists the photo locally first (the image survives regardless
// of network outcome), uploads it for species identification, and inserts
// the enriched result into the cache. Returns the new plant and the local
// image path.
func (c *Coordinator) Identify(ctx context.Context, image []byte) (*cache.Plant, string, error) {
	path, err := c.images.Save(image)
	if err != nil {
		return nil, "", err
	}

	c.logger.Debug("identify photo saved", slog.String("path", path))

	ident, err := c.remote.Identify(ctx, image)
	if err != nil {
		return nil, path, err
	}

	plant := enrichOne(&ident.UserPlant, &ident.MasterPlant)

	if err := c.store.Insert(ctx, &plant); err != nil {
		return nil, path, err
	}

	c.logger.Info("plant identified",
		slog.String("plant_id", plant.ID),
		slog.String("species", plant.SpeciesName),
	)

	return &plant, path, nil
}
