// Package engine is the command surface over the shared canvas document.
//
// Every command reads the latest snapshot, computes a new one and swaps it in
// through store.State. Field-level failures are silent no-ops; only an unknown
// command or an invalid item type is reported as an error.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"canvas-cli/internal/guard"
	"canvas-cli/internal/metrics"
	"canvas-cli/internal/model"
	"canvas-cli/internal/mutate"
	"canvas-cli/internal/store"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidItemType = errors.New("invalid item type")
)

// ImageGenerator renders prompt and returns a URL for the image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Narrator synthesizes speech for text and returns a URL for the audio.
type Narrator interface {
	Narrate(ctx context.Context, text, voice string) (string, error)
}

// Choice is one option offered to the human.
type Choice struct {
	Value       string
	Label       string
	Description string
}

// Chooser asks a human to pick one of choices. ok is false on cancel.
type Chooser interface {
	Choose(ctx context.Context, title string, choices []Choice) (value string, ok bool, err error)
}

type Options struct {
	Clock    func() time.Time
	Guard    *guard.Guard
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Images   ImageGenerator
	Narrator Narrator
	Chooser  Chooser
	// Voice is the narration voice used when a command does not name one.
	Voice string
}

type Engine struct {
	state    *store.State
	guard    *guard.Guard
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics
	images   ImageGenerator
	narrator Narrator
	chooser  Chooser
	voice    string

	// stream orders commands against human prompts: prompts hold it
	// exclusively, everything else shares it.
	stream   sync.RWMutex
	commands map[string]Command
	order    []string
}

func New(state *store.State, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Guard == nil {
		opts.Guard = guard.New(guard.DefaultWindows(), opts.Clock)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}
	e := &Engine{
		state:    state,
		guard:    opts.Guard,
		now:      opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		images:   opts.Images,
		narrator: opts.Narrator,
		chooser:  opts.Chooser,
		voice:    opts.Voice,
	}
	e.register(builtinCommands()...)
	if e.metrics != nil {
		e.metrics.SetItems(len(state.Snapshot().Items))
		state.Subscribe(func(doc model.Document) { e.metrics.SetItems(len(doc.Items)) })
	}
	return e
}

func (e *Engine) State() *store.State { return e.state }

func (e *Engine) Guard() *guard.Guard { return e.guard }

// Snapshot returns a copy of the live document.
func (e *Engine) Snapshot() model.Document { return e.state.Snapshot() }

func (e *Engine) update(fn func(model.Document) model.Document) model.Document {
	return e.state.Update(fn)
}

// updateItem applies fn to the item's data and logs a missing target.
func (e *Engine) updateItem(op, itemID string, fn func(model.Data) model.Data) {
	e.update(func(doc model.Document) model.Document {
		next, ok := mutate.UpdateData(doc, itemID, fn)
		if !ok {
			e.log.Debug("target not found", zap.String("op", op), zap.String("itemId", itemID))
		}
		return next
	})
}

// Reset replaces the live document with a blank canvas and forgets the
// throttle history. The last populated document stays the grounding fallback.
func (e *Engine) Reset() {
	e.update(func(model.Document) model.Document {
		e.guard.Reset()
		return model.EmptyDocument()
	})
	e.log.Info("canvas reset")
}

func (e *Engine) duplicate(scope string, hit guard.Hit) {
	e.log.Debug("duplicate creation suppressed",
		zap.String("scope", scope),
		zap.String("id", hit.ID),
		zap.String("reason", string(hit.Reason)))
	e.metrics.Duplicate(scope, string(hit.Reason))
}
