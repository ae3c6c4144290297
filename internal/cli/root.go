package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"canvas-cli/internal/format"
	"canvas-cli/internal/logging"
	"canvas-cli/internal/store"
)

type App struct {
	Dir        string
	ConfigPath string
	PrettyJSON bool
	Format     string
	LogLevel   string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "canvas",
		Short:        "Shared canvas document engine for a voice agent",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve the command endpoint for the agent
  canvas serve

  # Run one command against the cached document
  canvas exec createItem type=note name=Ideas

  # What the agent sees before each turn
  canvas digest

  # Direct item lookup (shortcut for: canvas show <item-id>)
  canvas 0001
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("CANVAS_DIR", ""), "Path to the snapshot dir (default: ~/.canvas/canvas)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config.yaml (default: $CANVAS_CONFIG_DIR/config.yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("CANVAS_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("CANVAS_LOG_LEVEL", ""), "Log level (debug|info|warn|error; default from config)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newExecCmd(app))
	cmd.AddCommand(newCommandsCmd(app))
	cmd.AddCommand(newStateCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newDigestCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func (app *App) snapshots() (store.Store, error) {
	dir := strings.TrimSpace(app.Dir)
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return store.Store{}, err
		}
		dir = d
		app.Dir = d
	}
	return store.Store{Dir: dir}, nil
}

func (app *App) configPath() (string, error) {
	if p := strings.TrimSpace(app.ConfigPath); p != "" {
		return p, nil
	}
	return store.ConfigPath()
}

func (app *App) loadConfig() (store.Config, string, error) {
	path, err := app.configPath()
	if err != nil {
		return store.DefaultConfig(), "", err
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func (app *App) logger(cfg store.Config, dev bool) (*zap.Logger, error) {
	level := cfg.Log.Level
	if strings.TrimSpace(app.LogLevel) != "" {
		level = app.LogLevel
	}
	return logging.New(level, dev)
}

// lockSnapshots gives up after a short wait so a running `serve` is
// reported as store.ErrLocked instead of blocking.
func lockSnapshots(ctx context.Context, snapshots store.Store) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return snapshots.Lock(ctx)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
