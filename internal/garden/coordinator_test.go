package garden

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenlab/sprout/internal/api"
	"github.com/gardenlab/sprout/internal/cache"
)

type fakeImages struct {
	saved   [][]byte
	saveErr error
}

func (f *fakeImages) Save(image []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}

	f.saved = append(f.saved, image)

	return "/tmp/images/photo.jpg", nil
}

type coordFixture struct {
	coord  *Coordinator
	gw     *fakeGateway
	store  *cache.SQLiteStore
	images *fakeImages
}

func newCoordFixture(t *testing.T, cooldown time.Duration) *coordFixture {
	t.Helper()

	store := newTestCache(t)
	gw := &fakeGateway{profile: twoPlantProfile()}
	engine := NewEngine(gw, store, slog.Default())
	images := &fakeImages{}

	var limiter *ActionLimiter
	if cooldown > 0 {
		limiter = NewActionLimiter(cooldown)
	}

	coord := NewCoordinator(engine, gw, store, images, limiter, slog.Default())

	// Seed the cache through a normal sync.
	_, err := engine.SyncFromRemote(context.Background())
	require.NoError(t, err)

	return &coordFixture{coord: coord, gw: gw, store: store, images: images}
}

func TestRename_PatchesCacheOnSuccess(t *testing.T) {
	f := newCoordFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.coord.Rename(ctx, "p1", "Spikey"))

	got, err := f.store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Spikey", got.CustomName)
	assert.Equal(t, []string{"rename p1 Spikey"}, f.gw.calls)
}

func TestRename_RemoteFailureLeavesCacheUntouched(t *testing.T) {
	f := newCoordFixture(t, 0)
	ctx := context.Background()

	f.gw.mutationErr = errors.New("remote down")

	err := f.coord.Rename(ctx, "p1", "Spikey")
	require.Error(t, err)

	got, getErr := f.store.Get(ctx, "p1")
	require.NoError(t, getErr)
	assert.Equal(t, "Spike", got.CustomName)
}

func TestWater_StampsNow(t *testing.T) {
	f := newCoordFixture(t, 0)
	ctx := context.Background()

	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f.coord.nowFunc = func() time.Time { return fixed }

	require.NoError(t, f.coord.Water(ctx, "p1"))

	got, err := f.store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, fixed.Unix(), got.LastWatered)
}

func TestDisconnectSensor_ClearsReadings(t *testing.T) {
	store := newTestCache(t)
	gw := &fakeGateway{}
	engine := NewEngine(gw, store, slog.Default())
	coord := NewCoordinator(engine, gw, store, &fakeImages{}, nil, slog.Default())

	moisture := 42.0
	require.NoError(t, store.Insert(context.Background(), &cache.Plant{
		ID:                "p1",
		SpeciesName:       "Aloe vera",
		ConnectedSensorID: "sensor-7",
		SoilMoisture:      &moisture,
		LastSensorSeen:    1700000000,
	}))

	require.NoError(t, coord.DisconnectSensor(context.Background(), "p1"))

	got, err := store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, got.ConnectedSensorID)
	assert.Nil(t, got.SoilMoisture)
	assert.Zero(t, got.LastSensorSeen)
}

func TestConnectSensor_TriggersFullSync(t *testing.T) {
	f := newCoordFixture(t, 0)

	before := f.gw.fetchCalls

	require.NoError(t, f.coord.ConnectSensor(context.Background(), "p1", "sensor-9"))

	assert.Equal(t, before+1, f.gw.fetchCalls, "pairing re-syncs because readings are server-computed")
}

func TestToggleNotifications(t *testing.T) {
	f := newCoordFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.coord.ToggleNotifications(ctx, "p1", true))

	got, err := f.store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.NotificationsEnabled)
}

func TestDelete_RemovesCachedRow(t *testing.T) {
	f := newCoordFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.coord.Delete(ctx, "p1"))

	_, err := f.store.Get(ctx, "p1")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestThrottle_RepeatedActionRejected(t *testing.T) {
	f := newCoordFixture(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, f.coord.Water(ctx, "p1"))

	err := f.coord.Water(ctx, "p1")
	assert.ErrorIs(t, err, ErrThrottled)

	// Only the first attempt reached the remote.
	assert.Equal(t, []string{"water p1"}, f.gw.calls)
}

func TestThrottle_DifferentPlantsIndependent(t *testing.T) {
	f := newCoordFixture(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, f.coord.Water(ctx, "p1"))
	require.NoError(t, f.coord.Water(ctx, "p2"))
}

func TestThrottle_DifferentActionsIndependent(t *testing.T) {
	f := newCoordFixture(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, f.coord.Water(ctx, "p1"))
	require.NoError(t, f.coord.Rename(ctx, "p1", "Spikey"))
}

func TestIdentify_SavesImageThenInserts(t *testing.T) {
	f := newCoordFixture(t, 0)
	ctx := context.Background()

	f.gw.identifyResult = &api.Identification{
		UserPlant:   api.UserPlant{ID: "p9", SpeciesName: "Ficus lyrata"},
		MasterPlant: api.MasterPlant{SpeciesName: "Ficus lyrata", CareDifficulty: "hard"},
	}

	plant, path, err := f.coord.Identify(ctx, []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/images/photo.jpg", path)
	assert.Equal(t, "p9", plant.ID)
	assert.Equal(t, "hard", plant.CareDifficulty)

	got, err := f.store.Get(ctx, "p9")
	require.NoError(t, err)
	assert.Equal(t, "Ficus lyrata", got.SpeciesName)

	require.Len(t, f.images.saved, 1)
}

func TestIdentify_RemoteFailureKeepsLocalImage(t *testing.T) {
	f := newCoordFixture(t, 0)
	ctx := context.Background()

	f.gw.mutationErr = errors.New("identification service down")

	_, path, err := f.coord.Identify(ctx, []byte("jpeg-bytes"))
	require.Error(t, err)

	// The photo was persisted before the upload attempt.
	assert.Equal(t, "/tmp/images/photo.jpg", path)
	assert.Len(t, f.images.saved, 1)

	_, err = f.store.Get(ctx, "p9")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestIdentify_SaveFailureSkipsUpload(t *testing.T) {
	f := newCoordFixture(t, 0)

	f.images.saveErr = errors.New("disk full")

	_, _, err := f.coord.Identify(context.Background(), []byte("jpeg-bytes"))
	require.Error(t, err)

	assert.NotContains(t, f.gw.calls, "identify", "no upload without a durable local copy")
}
