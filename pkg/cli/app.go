package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mchmarny/pulse/pkg/config"
	"github.com/mchmarny/pulse/pkg/data"
	"github.com/mchmarny/pulse/pkg/logging"
	urfave "github.com/urfave/cli/v3"
)

const (
	appName      = "pulse"
	appConfigKey = "app-config"

	debugFlagName     = "debug"
	configDirFlagName = "config-dir"
	dbDriverFlagName  = "db-driver"
	dbFlagName        = "db"
	formatFlagName    = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}
	logging.SetDefaultCLILogger(config.DefaultLogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

type appConfig struct {
	Dir    string
	Path   string
	Config *config.Config
	Store  *data.Store
	Format string
	Debug  bool

	// FileStore is the store section as read from the config file, before
	// flag overrides and the default sqlite path are applied.
	FileStore config.Store
}

func getConfig(cmd *urfave.Command) *appConfig {
	cfg, _ := cmd.Root().Metadata[appConfigKey].(*appConfig)
	return cfg
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:                 "Repository vitality auditor: score maintenance risk from GitHub activity",
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Metadata:              map[string]any{},
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:  configDirFlagName,
				Usage: "Directory holding config, token and sqlite database (default: $HOME/.pulse)",
			},
			&urfave.StringFlag{
				Name:  dbDriverFlagName,
				Usage: "Database driver [sqlite, postgres] (overrides config)",
			},
			&urfave.StringFlag{
				Name:    dbFlagName,
				Usage:   "Sqlite file path or postgres DSN (overrides config)",
				Sources: urfave.EnvVars("PULSE_DB"),
			},
			&urfave.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml, markdown, prom] (overrides config)",
			},
		},
		Commands: []*urfave.Command{
			newAuthCmd(),
			newAssessCmd(),
			newCompareCmd(),
			newSearchCmd(),
			newBasketCmd(),
			newHistoryCmd(),
			newServerCmd(),
		},
		Before: before,
		After:  after,
	}
}

func before(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
	dir := cmd.String(configDirFlagName)
	if dir == "" {
		d, _, err := config.GetOrCreateHomeDir(appName)
		if err != nil {
			return ctx, fmt.Errorf("creating home dir: %w", err)
		}
		dir = d
	}

	c, err := config.ReadOrCreate(dir)
	if err != nil {
		return ctx, fmt.Errorf("reading config: %w", err)
	}
	fileStore := c.Store

	debug := cmd.Bool(debugFlagName)
	if debug {
		logging.SetDefaultCLILogger("debug")
	} else {
		logging.SetDefaultCLILogger(c.LogLevel)
	}

	if v := cmd.String(dbDriverFlagName); v != "" {
		c.Store.Driver = v
	}
	if v := cmd.String(dbFlagName); v != "" {
		c.Store.DSN = v
	}
	if c.Store.Driver == config.DriverSQLite && c.Store.DSN == "" {
		c.Store.DSN = filepath.Join(dir, data.DataFileName)
	}
	if err := c.Validate(); err != nil {
		return ctx, err
	}

	format := cmd.String(formatFlagName)
	if format == "" {
		format = c.Output
	}
	format, err = parseFormat(format)
	if err != nil {
		return ctx, err
	}

	store, err := data.Open(ctx, c.Store.Driver, c.Store.DSN)
	if err != nil {
		return ctx, fmt.Errorf("opening database: %w", err)
	}

	slog.Debug("configured",
		"dir", dir,
		"driver", c.Store.Driver,
		"format", format,
	)

	cmd.Root().Metadata[appConfigKey] = &appConfig{
		Dir:    dir,
		Path:   filepath.Join(dir, config.FileName),
		Config: c,
		Store:  store,
		Format: format,
		Debug:  debug,

		FileStore: fileStore,
	}
	return ctx, nil
}

func after(_ context.Context, cmd *urfave.Command) error {
	if cfg := getConfig(cmd); cfg != nil && cfg.Store != nil {
		if err := cfg.Store.Close(); err != nil {
			slog.Debug("error closing database", "error", err)
		}
	}
	return nil
}
