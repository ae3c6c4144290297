package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"canvas-cli/internal/metrics"
	"canvas-cli/internal/model"
	"canvas-cli/internal/server"
	"canvas-cli/internal/store"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the command endpoint (HTTP + websocket) for the agent",
		Long: strings.TrimSpace(`
Serves the canvas command surface for the remote agent:

  POST /commands/{name}   run one command (JSON object of arguments)
  GET  /ws                websocket: {"id","command","args"} frames in,
                          {"id","result","lastAction","error"} and state frames out
  GET  /state /digest /commands /metrics /assets/
  POST /reset             blank canvas, duplicate-creation history cleared

Every new document snapshot is cached in the snapshot dir. The config file is
watched; throttle windows apply without a restart.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := app.loadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(addr) != "" {
				cfg.Server.Addr = strings.TrimSpace(addr)
			}
			log, err := app.logger(cfg, dev)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = log.Sync() }()

			snapshots, err := app.snapshots()
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			release, err := lockSnapshots(ctx, snapshots)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			eng, err := openEngine(ctx, engineDeps{
				cfg:         cfg,
				snapshots:   snapshots,
				log:         log,
				metrics:     metrics.New(reg),
				interactive: true,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			done := persistSnapshots(ctx, eng.State(), snapshots, log)

			if err := store.WatchConfig(ctx, cfgPath, log, func(next store.Config) {
				eng.Guard().SetWindows(throttleWindows(next))
			}); err != nil {
				log.Warn("config watch disabled", zap.String("path", cfgPath), zap.Error(err))
			}

			srv, err := server.New(eng, server.Config{
				Addr:      cfg.Server.Addr,
				AssetsDir: assetsDir(cfg, snapshots),
				Logger:    log,
				Gatherer:  reg,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			log.Info("serving", zap.String("addr", srv.Addr()), zap.String("dir", snapshots.Dir))
			runErr := srv.Run(ctx)
			stop()
			<-done
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return writeErr(cmd, runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Human-readable console logs")
	return cmd
}

// Retry bounds for a failed snapshot save.
var (
	persistRetryDelay    = 250 * time.Millisecond
	maxPersistRetryDelay = 10 * time.Second
)

type snapshotSaver interface {
	Save(ctx context.Context, doc model.Document) error
}

// persistSnapshots saves the newest document after every mutation. Bursts
// collapse into one save; a failed save is retried with backoff until one
// lands. The returned channel closes after the final save.
func persistSnapshots(ctx context.Context, state *store.State, snapshots snapshotSaver, log *zap.Logger) <-chan struct{} {
	changed := make(chan struct{}, 1)
	unsubscribe := state.Subscribe(func(model.Document) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()
		var retry <-chan time.Time
		delay := persistRetryDelay
		for {
			select {
			case <-ctx.Done():
				pending := retry != nil
				select {
				case <-changed:
					pending = true
				default:
				}
				if pending {
					if err := snapshots.Save(context.Background(), state.Snapshot()); err != nil {
						log.Warn("final snapshot save failed", zap.Error(err))
					}
				}
				return
			case <-changed:
			case <-retry:
			}
			retry = nil
			if err := snapshots.Save(ctx, state.Snapshot()); err != nil {
				log.Warn("snapshot save failed", zap.Error(err), zap.Duration("retry_in", delay))
				retry = time.After(delay)
				delay = min(delay*2, maxPersistRetryDelay)
				continue
			}
			delay = persistRetryDelay
		}
	}()
	return done
}
