package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gardenlab/sprout/internal/cache"
)

func newGardenCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "garden",
		Short: "List the cached garden",
		Long: `List every plant in the local cache. With --watch, keep the listing
up to date as syncs and mutations land.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runGarden(watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-print the garden after every cache change")

	return cmd
}

func runGarden(watch bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := shutdownContext(context.Background(), a.logger)

	if err := printGarden(ctx, a.store); err != nil {
		return err
	}

	if !watch {
		return nil
	}

	changes, cancel := a.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}

			if err := printGarden(ctx, a.store); err != nil {
				return err
			}
		}
	}
}

// gardenRow is the JSON schema for `garden --json`.
type gardenRow struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Species      string   `json:"species"`
	LastWatered  int64    `json:"last_watered,omitempty"`
	SoilMoisture *float64 `json:"soil_moisture,omitempty"`
	Sensor       string   `json:"sensor,omitempty"`
	Health       string   `json:"health,omitempty"`
}

func printGarden(ctx context.Context, store *cache.SQLiteStore) error {
	plants, err := store.All(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		rows := make([]gardenRow, 0, len(plants))
		for _, p := range plants {
			rows = append(rows, gardenRow{
				ID:           p.ID,
				Name:         p.CustomName,
				Species:      p.SpeciesName,
				LastWatered:  p.LastWatered,
				SoilMoisture: p.SoilMoisture,
				Sensor:       p.ConnectedSensorID,
				Health:       p.HealthStatus,
			})
		}

		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	if len(plants) == 0 {
		statusf("No plants cached. Run `sprout sync` first.\n")
		return nil
	}

	if !stdoutIsTerminal() {
		for _, p := range plants {
			fmt.Printf("%s\t%s\t%s\n", p.ID, p.CustomName, p.SpeciesName)
		}

		return nil
	}

	headers := []string{"ID", "NAME", "SPECIES", "WATERED", "MOISTURE", "SENSOR", "HEALTH"}
	rows := make([][]string, 0, len(plants))

	for _, p := range plants {
		sensor := p.ConnectedSensorID
		if sensor == "" {
			sensor = "-"
		}

		rows = append(rows, []string{
			p.ID,
			p.CustomName,
			p.SpeciesName,
			formatWatered(p.LastWatered),
			formatReading(p.SoilMoisture, "%"),
			sensor,
			p.HealthStatus,
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}
