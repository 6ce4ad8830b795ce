package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local garden with the server",
		Long: `Fetch the garden profile from the server, join each plant with its
species catalog record, and atomically replace the local cache.`,
		RunE: runSync,
	}
}

func runSync(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := shutdownContext(context.Background(), a.logger)

	n, err := a.engine.SyncFromRemote(ctx)
	if err != nil {
		return err
	}

	statusf("Synced %d plants.\n", n)

	return nil
}
