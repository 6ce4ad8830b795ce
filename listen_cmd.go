package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gardenlab/sprout/internal/api"
)

// resyncDebounce coalesces bursts of sensor events into one sync.
const resyncDebounce = 2 * time.Second

func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Follow the live sensor feed and keep the cache in sync",
		Long: `Subscribe to the server's sensor event feed over a websocket. Each
event triggers a re-sync, so the local cache tracks sensor-driven changes
as they happen. Runs until interrupted.`,
		RunE: runListen,
	}
}

func runListen(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := shutdownContext(context.Background(), a.logger)

	// Start from a fresh cache so the first event applies to current state.
	if _, err := a.engine.SyncFromRemote(ctx); err != nil {
		return err
	}

	events := make(chan api.SensorEvent, 1)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.client.Listen(ctx, websocketURL(a), func(event api.SensorEvent) {
			select {
			case events <- event:
			default: // a sync is already pending
			}
		})
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event := <-events:
				// Let the burst settle before fetching.
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(resyncDebounce):
				}

				n, err := a.engine.SyncFromRemote(ctx)
				if err != nil {
					a.logger.Warn("re-sync after sensor event failed",
						"type", event.Type,
						"error", err.Error(),
					)

					continue
				}

				statusf("Sensor event (%s): synced %d plants.\n", event.Type, n)
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil // clean shutdown
	}

	return err
}

// websocketURL returns the configured feed URL, or one derived from the
// server base URL.
func websocketURL(a *app) string {
	if a.cfg.Server.WebsocketURL != "" {
		return a.cfg.Server.WebsocketURL
	}

	url := a.cfg.Server.BaseURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)

	return strings.TrimRight(url, "/") + "/ws/sensors"
}
