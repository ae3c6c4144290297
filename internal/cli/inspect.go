package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"canvas-cli/internal/engine"
	"canvas-cli/internal/format"
	"canvas-cli/internal/grounding"
	"canvas-cli/internal/model"
	"canvas-cli/internal/store"
	"canvas-cli/internal/tui"
)

func newCommandsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the command registry with declared parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(store.NewState(model.EmptyDocument()), engine.Options{Logger: zap.NewNop()})
			return writeOut(cmd, app, format.Envelope{
				Data:  eng.Commands(),
				Meta:  map[string]any{"count": len(eng.Commands())},
				Hints: []string{"canvas exec <command> key=value..."},
			})
		},
	}
}

func newStateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the newest cached document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := app.snapshots()
			if err != nil {
				return writeErr(cmd, err)
			}
			doc, _, err := snapshots.Latest(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			hints := []string{"canvas digest"}
			if len(doc.Items) > 0 {
				hints = append(hints, "canvas show "+doc.Items[0].ID)
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  doc,
				Meta:  map[string]any{"items": len(doc.Items)},
				Hints: hints,
			})
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item-id>",
		Short: "Print one item of the cached document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := app.snapshots()
			if err != nil {
				return writeErr(cmd, err)
			}
			doc, _, err := snapshots.Latest(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			it, idx, ok := doc.FindItem(id)
			if !ok {
				return writeErr(cmd, errNotFound("item", id))
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  it,
				Meta:  map[string]any{"index": idx},
				Hints: []string{"canvas exec setItemName itemId=" + it.ID + " name=..."},
			})
		},
	}
}

func newDigestCmd(app *App) *cobra.Command {
	var full bool
	var render bool
	var width int

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the grounding digest the agent receives before each turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := app.snapshots()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			doc, _, err := snapshots.Latest(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			state := store.NewState(doc)
			if good, ok, err := snapshots.LatestPopulated(ctx); err != nil {
				return writeErr(cmd, err)
			} else if ok {
				state.RememberGood(good)
			}

			text := grounding.Digest(state.GroundingSnapshot())
			if full {
				text = grounding.Build(state)
			}
			if render {
				md := "```text\n" + strings.TrimRight(text, "\n") + "\n```\n"
				if !full {
					md = "## Canvas digest\n\n" + md
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), renderForTerminal(md, width))
				return err
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  map[string]any{"digest": text},
				Hints: []string{"canvas digest --render", "canvas state"},
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Include the field schema, tool policy and grounding rules")
	cmd.Flags().BoolVar(&render, "render", false, "Render as markdown for a terminal instead of JSON")
	cmd.Flags().IntVar(&width, "width", 100, "Wrap width for --render")
	return cmd
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a blank canvas (older snapshots stay as the grounding fallback)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := snapshots.Save(ctx, model.EmptyDocument()); err != nil {
				return writeErr(cmd, err)
			}
			n, err := snapshots.Count(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  map[string]any{"reset": true},
				Meta:  map[string]any{"snapshots": n},
				Hints: []string{"canvas exec createItem type=note"},
			})
		},
	}
}

var renderForTerminal = func(md string, width int) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return md
	}
	return tui.RenderMarkdown(md, width)
}
