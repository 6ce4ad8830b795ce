package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newIdentifyCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "identify [image-file]",
		Short: "Identify a plant species from a photo",
		Long: `Upload a photo for species identification and add the resulting plant
to the garden. The photo is saved locally before upload, so it survives a
failed identification.

With --watch, observe the configured inbox directory (images.inbox_dir) and
identify every new image dropped into it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if watch {
				return runIdentifyWatch()
			}

			if len(args) != 1 {
				return fmt.Errorf("an image file is required unless --watch is set")
			}

			return runIdentify(args[0])
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch the image inbox directory")

	return cmd
}

func runIdentify(imagePath string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := shutdownContext(context.Background(), a.logger)

	return identifyFile(ctx, a, imagePath)
}

func identifyFile(ctx context.Context, a *app, imagePath string) error {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	plant, saved, err := a.coord.Identify(ctx, image)
	if err != nil {
		return err
	}

	statusf("Identified %s as %s (saved to %s).\n", plant.CustomName, plant.SpeciesName, saved)

	return nil
}

// isImageFile reports whether the path looks like a photo worth identifying.
func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}

func runIdentifyWatch() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	inbox := a.cfg.Images.InboxDir
	if inbox == "" {
		return fmt.Errorf("images.inbox_dir is not configured")
	}

	ctx := shutdownContext(context.Background(), a.logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(inbox); err != nil {
		return fmt.Errorf("watching %s: %w", inbox, err)
	}

	statusf("Watching %s for new images.\n", inbox)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Create covers both fresh files and most atomic drops (rename
			// into the watched directory also surfaces as Create).
			if !event.Has(fsnotify.Create) || !isImageFile(event.Name) {
				continue
			}

			if err := identifyFile(ctx, a, event.Name); err != nil {
				a.logger.Warn("identification failed",
					"path", event.Name,
					"error", err.Error(),
				)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			a.logger.Warn("watcher error", "error", err.Error())
		}
	}
}
