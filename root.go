package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/gardenlab/sprout/internal/api"
	"github.com/gardenlab/sprout/internal/auth"
	"github.com/gardenlab/sprout/internal/cache"
	"github.com/gardenlab/sprout/internal/config"
	"github.com/gardenlab/sprout/internal/credstore"
	"github.com/gardenlab/sprout/internal/garden"
	"github.com/gardenlab/sprout/internal/garden/imagestore"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sprout",
		Short:   "Houseplant tracker CLI",
		Long:    "A houseplant tracking client: sync your garden, water plants, pair sensors, identify species from photos.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newGardenCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newWaterCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newSensorCmd())
	cmd.AddCommand(newNotifyCmd())
	cmd.AddCommand(newIdentifyCmd())
	cmd.AddCommand(newListenCmd())
	cmd.AddCommand(newAccountCmd())

	return cmd
}

// app bundles the wired subsystems behind one handle for subcommands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	creds  *credstore.Store
	tokens *auth.Manager
	client *api.Client
	store  *cache.SQLiteStore
	engine *garden.Engine
	coord  *garden.Coordinator
}

// newApp loads configuration and wires every subsystem, including the local
// cache. Commands that never touch the cache use newAuthApp instead.
func newApp() (*app, error) {
	a, err := newAuthApp()
	if err != nil {
		return nil, err
	}

	store, err := cache.NewStore(config.CachePath(), a.logger)
	if err != nil {
		return nil, err
	}

	cooldown, err := a.cfg.Sync.CooldownDuration()
	if err != nil {
		store.Close()
		return nil, err
	}

	images := imagestore.New(config.ImagesDir(), a.logger)

	a.store = store
	a.engine = garden.NewEngine(a.client, store, a.logger)
	a.coord = garden.NewCoordinator(a.engine, a.client, store, images,
		garden.NewActionLimiter(cooldown), a.logger)

	return a, nil
}

// newAuthApp wires configuration, the credential store, the token manager,
// and the authenticated client — everything except the cache.
func newAuthApp() (*app, error) {
	cfg, err := config.Resolve(flagConfigPath)
	if err != nil {
		return nil, err
	}

	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	timeout, err := cfg.Server.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: timeout}

	creds := credstore.New(config.CredentialsPath(), logger)
	tokens := auth.NewManager(creds, identityProvider(cfg), cfg.Server.BaseURL, httpClient, logger)
	client := api.NewClient(cfg.Server.BaseURL, httpClient, creds, tokens, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		creds:  creds,
		tokens: tokens,
		client: client,
	}, nil
}

// identityProvider selects where identity assertions come from: a configured
// file, else the process environment.
func identityProvider(cfg *config.Config) auth.IdentityProvider {
	if cfg.Server.IdentityFile != "" {
		return &auth.FileProvider{Path: cfg.Server.IdentityFile}
	}

	return auth.EnvProvider{}
}

// Close releases the app's resources. Safe to call on a partially wired app.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing cache", slog.String("error", err.Error()))
		}
	}
}

// buildLogger creates an slog.Logger configured by config and CLI flags.
// Config-file log level provides the baseline; --verbose and --quiet
// override it because CLI flags always win.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
