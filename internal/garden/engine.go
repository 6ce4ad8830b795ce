package garden

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gardenlab/sprout/internal/api"
	"github.com/gardenlab/sprout/internal/cache"
)

// ProfileFetcher is the engine's view of the remote gateway.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context) (*api.Profile, error)
}

// Store is the garden's view of the local cache; cache.SQLiteStore is the
// real implementation.
type Store interface {
	All(ctx context.Context) ([]cache.Plant, error)
	ReplaceAll(ctx context.Context, plants []cache.Plant) error
	ApplyPatch(ctx context.Context, id string, patch cache.Patch) error
	Insert(ctx context.Context, p *cache.Plant) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Engine reconciles the local cache with the remote garden: one profile
// fetch, a species join, then an atomic full replace. Failures anywhere
// leave the cache exactly as it was.
type Engine struct {
	remote ProfileFetcher
	store  Store
	logger *slog.Logger

	// Serializes sync runs. Concurrent callers queue rather than interleave
	// fetches and replaces.
	mu sync.Mutex
}

// NewEngine creates a reconciliation engine.
func NewEngine(remote ProfileFetcher, store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{remote: remote, store: store, logger: logger}
}

// SyncFromRemote fetches the garden profile, enriches it, and atomically
// replaces the cache contents. Returns the number of plants cached.
func (e *Engine) SyncFromRemote(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.remote.FetchProfile(ctx)
	if err != nil {
		return 0, fmt.Errorf("garden: fetching profile: %w", err)
	}

	plants := Enrich(profile)

	// A canceled fetch already bailed above; this catches cancellation that
	// raced the fetch, before we commit anything locally.
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("garden: sync canceled: %w", err)
	}

	if err := e.store.ReplaceAll(ctx, plants); err != nil {
		return 0, fmt.Errorf("garden: replacing cache: %w", err)
	}

	e.logger.Info("garden synced",
		slog.Int("plants", len(plants)),
		slog.Int("species", len(profile.MasterPlants)),
	)

	return len(plants), nil
}
