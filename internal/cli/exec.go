package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"canvas-cli/internal/args"
	"canvas-cli/internal/engine"
	"canvas-cli/internal/format"
)

func newExecCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <command> [key=value...]",
		Short: "Run one command against the cached document",
		Example: strings.TrimSpace(`
  canvas exec createItem type=project name="Launch plan"
  canvas exec addProjectChecklistItem itemId=0001 text="Book venue"
  canvas exec setProjectChecklistItem itemId=0001 checklistItemId=1 done=true
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			a, err := args.ParseKV(argv[1:])
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, _, err := app.loadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			log, err := app.logger(cfg, true)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = log.Sync() }()

			snapshots, err := app.snapshots()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			release, err := lockSnapshots(ctx, snapshots)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			eng, err := openEngine(ctx, engineDeps{cfg: cfg, snapshots: snapshots, log: log, interactive: true})
			if err != nil {
				return writeErr(cmd, err)
			}
			name := strings.TrimSpace(argv[0])
			res, err := eng.Dispatch(ctx, name, a)
			if err != nil {
				return writeErr(cmd, err)
			}
			doc := eng.Snapshot()
			if err := snapshots.Save(ctx, doc); err != nil {
				return writeErr(cmd, err)
			}
			log.Debug("exec", zap.String("command", name), zap.String("lastAction", doc.LastAction))

			hints := []string{"canvas state", "canvas digest"}
			if res.Kind == engine.ResultID {
				if _, _, ok := doc.FindItem(res.Value); ok {
					hints = append([]string{"canvas show " + res.Value}, hints...)
				}
			}
			return writeOut(cmd, app, format.Envelope{
				Data: map[string]any{
					"command":    name,
					"result":     res,
					"lastAction": doc.LastAction,
				},
				Hints: hints,
			})
		},
	}
	return cmd
}
