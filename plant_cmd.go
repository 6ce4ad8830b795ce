package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <plant-id> <new-name>",
		Short: "Rename a plant",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCoordinator(func(ctx context.Context, a *app) error {
				if err := a.coord.Rename(ctx, args[0], args[1]); err != nil {
					return err
				}

				statusf("Renamed %s to %q.\n", args[0], args[1])

				return nil
			})
		},
	}
}

func newWaterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "water <plant-id>",
		Short: "Record a watering",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCoordinator(func(ctx context.Context, a *app) error {
				if err := a.coord.Water(ctx, args[0]); err != nil {
					return err
				}

				statusf("Watered %s.\n", args[0])

				return nil
			})
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <plant-id>",
		Short: "Remove a plant from the garden",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCoordinator(func(ctx context.Context, a *app) error {
				if err := a.coord.Delete(ctx, args[0]); err != nil {
					return err
				}

				statusf("Removed %s.\n", args[0])

				return nil
			})
		},
	}
}

func newSensorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensor",
		Short: "Manage soil sensor pairing",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "connect <plant-id> <sensor-id>",
		Short: "Pair a soil sensor with a plant",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCoordinator(func(ctx context.Context, a *app) error {
				if err := a.coord.ConnectSensor(ctx, args[0], args[1]); err != nil {
					return err
				}

				statusf("Connected sensor %s to %s.\n", args[1], args[0])

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disconnect <plant-id>",
		Short: "Unpair the plant's soil sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCoordinator(func(ctx context.Context, a *app) error {
				if err := a.coord.DisconnectSensor(ctx, args[0]); err != nil {
					return err
				}

				statusf("Disconnected sensor from %s.\n", args[0])

				return nil
			})
		},
	})

	return cmd
}

func newNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <plant-id> on|off",
		Short: "Toggle care reminders for a plant",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			var enabled bool

			switch args[1] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[1])
			}

			return withCoordinator(func(ctx context.Context, a *app) error {
				if err := a.coord.ToggleNotifications(ctx, args[0], enabled); err != nil {
					return err
				}

				statusf("Notifications for %s: %s.\n", args[0], args[1])

				return nil
			})
		},
	}
}

// withCoordinator wires the full app, runs fn under the shutdown context,
// and tears down. Shared by every mutation command.
func withCoordinator(fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(shutdownContext(context.Background(), a.logger), a)
}
