package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"canvas-cli/internal/engine"
	"canvas-cli/internal/gen"
	"canvas-cli/internal/guard"
	"canvas-cli/internal/metrics"
	"canvas-cli/internal/store"
	"canvas-cli/internal/tui"
)

type engineDeps struct {
	cfg         store.Config
	snapshots   store.Store
	log         *zap.Logger
	metrics     *metrics.Metrics
	interactive bool
}

func throttleWindows(cfg store.Config) guard.Windows {
	return guard.Windows{Item: cfg.Throttle.ItemWindow, SubEntity: cfg.Throttle.SubEntityWindow}
}

func assetsDir(cfg store.Config, snapshots store.Store) string {
	if d := strings.TrimSpace(cfg.Server.AssetsDir); d != "" {
		return d
	}
	return filepath.Join(snapshots.Dir, "assets")
}

// openEngine seeds a State from the newest cached snapshot (and the newest
// populated one as the grounding fallback) and wires the optional collaborators.
func openEngine(ctx context.Context, d engineDeps) (*engine.Engine, error) {
	doc, _, err := d.snapshots.Latest(ctx)
	if err != nil {
		return nil, err
	}
	state := store.NewState(doc)
	if good, ok, err := d.snapshots.LatestPopulated(ctx); err != nil {
		return nil, err
	} else if ok {
		state.RememberGood(good)
	}

	opts := engine.Options{
		Guard:   guard.New(throttleWindows(d.cfg), nil),
		Logger:  d.log,
		Metrics: d.metrics,
		Voice:   d.cfg.Generation.Voice,
	}

	assets := gen.DirAssets{
		Dir:     assetsDir(d.cfg, d.snapshots),
		BaseURL: "http://" + d.cfg.Server.Addr + "/assets",
	}
	if client, err := gen.NewFromEnv(d.cfg.Generation, assets, d.log); err != nil {
		d.log.Debug("generation disabled", zap.Error(err))
	} else {
		opts.Images = client
		opts.Narrator = client
	}

	if d.interactive && isatty.IsTerminal(os.Stdin.Fd()) {
		opts.Chooser = &tui.Chooser{}
	}
	return engine.New(state, opts), nil
}
