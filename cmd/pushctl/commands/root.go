package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/LuisCutz/expo-notifications/internal/app"
	"github.com/LuisCutz/expo-notifications/internal/apperr"
	"github.com/LuisCutz/expo-notifications/internal/config"
	"github.com/LuisCutz/expo-notifications/internal/logging"
	"github.com/LuisCutz/expo-notifications/internal/metrics"
	"github.com/LuisCutz/expo-notifications/internal/platform"
	"github.com/LuisCutz/expo-notifications/internal/platform/loopback"
	"github.com/LuisCutz/expo-notifications/internal/securestore"
)

// installationKey stores the loopback installation id next to the session.
const installationKey = "installation_id"

// cli holds flag values and the dependency graph built by the root command.
type cli struct {
	cfgFile  string
	envFile  string
	stateDir string
	logLevel string
	mode     string

	cfg      *config.Config
	app      *app.App
	platform *loopback.Platform
	cleanup  []func()
}

// Execute runs the CLI and prints the display message of any error.
func Execute(ctx context.Context) error {
	root, c := newRoot()
	err := root.ExecuteContext(ctx)
	c.teardown()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", apperr.Message(err))
	}
	return err
}

// newRoot returns the command tree and the shared state so callers can tear it down when a
// command fails (cobra skips post-run hooks on error).
func newRoot() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "pushctl",
		Short:         "Session and push notification client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&c.stateDir, "state-dir", "", "secure store directory (default ~/.pushctl)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.mode, "mode", "", "delivery mode: local or remote")

	root.AddCommand(
		signInCmd(c),
		signOutCmd(c),
		statusCmd(c),
		registerCmd(c),
		channelsCmd(c),
		sendCmd(c),
		watchCmd(c),
	)
	return root, c
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	c.cfg = cfg

	closeLog, err := logging.InitWriter(cmd.ErrOrStderr(), cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.cleanup = append(c.cleanup, closeLog)

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	store := securestore.NewFileStore(cfg.StateDir, cfg.StatePassphrase)

	c.platform = loopback.New(loopback.Options{
		Physical:       cfg.Device.Physical,
		OS:             cfg.Device.OS,
		Permission:     platform.PermissionStatus(cfg.Device.Permission),
		GrantOnRequest: cfg.Device.GrantOnRequest,
		InstallationID: installationID(cmd.Context(), store),
	})
	c.cleanup = append(c.cleanup, c.platform.Close)

	c.initMetrics()
	c.app = app.New(cfg, c.platform, store)
	return nil
}

// loadConfig applies defaults, then the config file, the dotenv file, the
// environment and finally explicit flags.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if c.cfgFile != "" {
		loaded, err := config.LoadConfigFromFile(c.cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed loading config: %w", err)
		}
		cfg = loaded
	}
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return nil, err
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("state-dir") {
		cfg.StateDir = c.stateDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("mode") {
		if c.mode != config.ModeLocal && c.mode != config.ModeRemote {
			return nil, apperr.New(apperr.KindValidation, "config", fmt.Sprintf("unknown delivery mode %q", c.mode))
		}
		cfg.DeliveryMode = c.mode
	}
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.StateDir = filepath.Join(home, ".pushctl")
	}
	return cfg, nil
}

// installationID returns the persisted loopback installation id, creating it
// on first use so push tokens stay stable across runs.
func installationID(ctx context.Context, store securestore.Primitive) string {
	id, ok, err := store.Get(ctx, installationKey)
	if err != nil {
		logging.Get().Warn().Err(err).Msg("could not read installation id; using a temporary one")
		return uuid.NewString()
	}
	if ok {
		return id
	}
	id = uuid.NewString()
	if err := store.Set(ctx, installationKey, id); err != nil {
		logging.Get().Warn().Err(err).Msg("could not persist installation id")
	}
	return id
}

// initMetrics starts the optional metrics server for the command's lifetime.
func (c *cli) initMetrics() {
	if !c.cfg.MetricsEnabled {
		return
	}
	addr := fmt.Sprintf(":%d", c.cfg.MetricsPort)
	srv := &http.Server{Addr: addr, Handler: metrics.NewMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logging.Get().Info().Str("addr", addr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Get().Error().Err(err).Msg("metrics server failed")
		}
	}()
	c.cleanup = append(c.cleanup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

func (c *cli) teardown() {
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		c.cleanup[i]()
	}
	c.cleanup = nil
}
