package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"canvas-cli/internal/args"
	"canvas-cli/internal/model"
	"canvas-cli/internal/mutate"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// Mode decides how a command shares the command stream.
type Mode string

const (
	// ModeShared commands run alongside each other; State serializes their writes.
	ModeShared Mode = "shared"
	// ModeExclusive commands hold the stream until a human answers.
	ModeExclusive Mode = "exclusive"
	// ModeDetached commands may wait on external services and never hold the stream.
	ModeDetached Mode = "detached"
)

type ResultKind string

const (
	ResultNone   ResultKind = "none"
	ResultStatus ResultKind = "status"
	ResultID     ResultKind = "id"
)

type Result struct {
	Kind  ResultKind `json:"kind"`
	Value string     `json:"value,omitempty"`
}

func none() Result { return Result{Kind: ResultNone} }

func status(s string) Result { return Result{Kind: ResultStatus, Value: s} }

func idResult(id string) Result { return Result{Kind: ResultID, Value: id} }

type handler func(ctx context.Context, e *Engine, a args.Args) (Result, error)

type Command struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	Returns     string  `json:"returns,omitempty"`
	Mode        Mode    `json:"mode"`
	run         handler
}

func (e *Engine) register(cmds ...Command) {
	if e.commands == nil {
		e.commands = map[string]Command{}
	}
	for _, c := range cmds {
		if _, dup := e.commands[c.Name]; !dup {
			e.order = append(e.order, c.Name)
		}
		e.commands[c.Name] = c
	}
}

// Commands lists the registry in declaration order.
func (e *Engine) Commands() []Command {
	out := make([]Command, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.commands[name])
	}
	return out
}

func (e *Engine) Lookup(name string) (Command, bool) {
	c, ok := e.commands[strings.TrimSpace(name)]
	return c, ok
}

// Dispatch runs the named command with loosely-typed arguments.
func (e *Engine) Dispatch(ctx context.Context, name string, a args.Args) (Result, error) {
	cmd, ok := e.Lookup(name)
	if !ok {
		e.metrics.Command("unknown", "error")
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	switch cmd.Mode {
	case ModeExclusive:
		e.stream.Lock()
		defer e.stream.Unlock()
	case ModeShared:
		e.stream.RLock()
		defer e.stream.RUnlock()
	}

	start := time.Now()
	res, err := cmd.run(ctx, e, a)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.Command(cmd.Name, outcome)
	e.log.Debug("command dispatched",
		zap.String("command", cmd.Name),
		zap.Strings("args", a.Keys()),
		zap.String("result", res.Value),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return res, err
}

func str(a args.Args, key string) string { return a.String(key).Or("") }

func p(name string, t ParamType, required bool, desc string) Param {
	return Param{Name: name, Type: t, Required: required, Description: desc}
}

var (
	pItemID = p("itemId", ParamString, true, "target item id")
	pValue  = p("value", ParamString, true, "")
	pIndex  = p("index", ParamNumber, true, "0-based metric position")
	pSlide  = p("slideId", ParamString, true, "target slide id")
)

// fieldSetter builds a command writing one scalar field from the named argument.
func fieldSetter(name, desc, argName string, f mutate.Field, aliases ...string) Command {
	return Command{
		Name:        name,
		Description: desc,
		Params:      []Param{p(argName, ParamString, true, ""), pItemID},
		Mode:        ModeShared,
		run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
			v := a.String(argName)
			for _, alias := range aliases {
				if v.Valid {
					break
				}
				v = a.String(alias)
			}
			if !v.Valid {
				return none(), nil
			}
			e.SetField(str(a, "itemId"), f, v.Value)
			return none(), nil
		},
	}
}

// itemString builds a command calling fn(itemId, <argName>).
func itemString(name, desc, argName string, fn func(e *Engine, itemID, v string)) Command {
	return Command{
		Name:        name,
		Description: desc,
		Params:      []Param{p(argName, ParamString, true, ""), pItemID},
		Mode:        ModeShared,
		run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
			v := a.String(argName)
			if !v.Valid {
				return none(), nil
			}
			fn(e, str(a, "itemId"), v.Value)
			return none(), nil
		},
	}
}

func metricIndexed(name, desc string, extra []Param, fn func(e *Engine, itemID string, index int, a args.Args)) Command {
	return Command{
		Name:        name,
		Description: desc,
		Params:      append([]Param{pItemID, pIndex}, extra...),
		Mode:        ModeShared,
		run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
			idx := a.Int("index")
			if !idx.Valid {
				return none(), nil
			}
			fn(e, str(a, "itemId"), idx.Value, a)
			return none(), nil
		},
	}
}

func optFloat(o args.Opt[float64]) *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

func builtinCommands() []Command {
	return []Command{
		{
			Name:        "setGlobalTitle",
			Description: "Set the canvas title.",
			Params:      []Param{p("title", ParamString, true, "")},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				if v := a.String("title"); v.Valid {
					e.SetGlobalTitle(v.Value)
				}
				return none(), nil
			},
		},
		{
			Name:        "setGlobalDescription",
			Description: "Set the canvas description.",
			Params:      []Param{p("description", ParamString, true, "")},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				if v := a.String("description"); v.Valid {
					e.SetGlobalDescription(v.Value)
				}
				return none(), nil
			},
		},
		itemString("setItemName", "Rename an item.", "name", (*Engine).SetItemName),
		itemString("setItemSubtitleOrDescription", "Set an item's subtitle (its short description).", "subtitle", (*Engine).SetItemSubtitle),
		{
			Name:        "createItem",
			Description: "Create a card and return its id. Repeating the same request returns the existing id.",
			Params: []Param{
				p("type", ParamString, true, "project | entity | note | chart | character | story"),
				p("name", ParamString, false, ""),
			},
			Returns: "item id",
			Mode:    ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				t, ok := model.ParseItemType(str(a, "type"))
				if !ok {
					return Result{}, fmt.Errorf("%w: %q", ErrInvalidItemType, str(a, "type"))
				}
				id, err := e.CreateItem(t, str(a, "name"))
				if err != nil {
					return Result{}, err
				}
				return idResult(id), nil
			},
		},
		{
			Name:        "deleteItem",
			Description: "Delete a card.",
			Params:      []Param{pItemID},
			Returns:     "deleted:<id> | not_found:<id>",
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				return status(e.DeleteItem(str(a, "itemId"))), nil
			},
		},

		// note
		fieldSetter("setNoteField1", "Replace a note's text.", "value", mutate.FieldField1),
		{
			Name:        "appendNoteField1",
			Description: "Append text to a note.",
			Params:      []Param{pValue, pItemID, p("withNewline", ParamBoolean, false, "start on a new line")},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				v := a.String("value")
				if !v.Valid {
					return none(), nil
				}
				e.AppendNote(str(a, "itemId"), v.Value, a.Bool("withNewline").Or(false))
				return none(), nil
			},
		},
		{
			Name:        "clearNoteField1",
			Description: "Clear a note's text.",
			Params:      []Param{pItemID},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				e.ClearNote(str(a, "itemId"))
				return none(), nil
			},
		},

		// project
		fieldSetter("setProjectField1", "Set a project's text field.", "value", mutate.FieldField1),
		fieldSetter("setProjectField2", "Set a project's select (Option A | Option B | Option C).", "value", mutate.FieldField2),
		itemString("setProjectField3", "Set a project's date; natural language is accepted.", "date", (*Engine).SetProjectDate),
		{
			Name:        "clearProjectField3",
			Description: "Clear a project's date.",
			Params:      []Param{pItemID},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				e.ClearProjectDate(str(a, "itemId"))
				return none(), nil
			},
		},
		{
			Name:        "addProjectChecklistItem",
			Description: "Add a checklist entry and return its id.",
			Params:      []Param{pItemID, p("text", ParamString, false, "")},
			Returns:     "checklist item id",
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				return idResult(e.AddChecklistItem(str(a, "itemId"), str(a, "text"))), nil
			},
		},
		{
			Name:        "setProjectChecklistItem",
			Description: "Update a checklist entry by id or position.",
			Params: []Param{
				pItemID,
				p("checklistItemId", ParamString, true, "entry id, or a 0-based/1-based position"),
				p("text", ParamString, false, ""),
				p("done", ParamBoolean, false, ""),
				p("proposed", ParamBoolean, false, "suggested by the agent, awaiting the user"),
			},
			Mode: ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				e.SetChecklistItem(str(a, "itemId"), str(a, "checklistItemId"), a.String("text"), a.Bool("done"), a.Bool("proposed"))
				return none(), nil
			},
		},
		{
			Name:        "removeProjectChecklistItem",
			Description: "Remove a checklist entry.",
			Params:      []Param{pItemID, p("checklistItemId", ParamString, true, "")},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				e.RemoveChecklistItem(str(a, "itemId"), str(a, "checklistItemId"))
				return none(), nil
			},
		},

		// entity
		fieldSetter("setEntityField1", "Set an entity's text field.", "value", mutate.FieldField1),
		fieldSetter("setEntityField2", "Set an entity's select (Option A | Option B | Option C).", "value", mutate.FieldField2),
		itemString("addEntityField3", "Add a tag to an entity.", "tag", (*Engine).AddTag),
		itemString("removeEntityField3", "Remove a tag from an entity.", "tag", (*Engine).RemoveTag),

		// chart
		{
			Name:        "addChartField1",
			Description: "Add a metric (value 0-100) and return its id.",
			Params:      []Param{pItemID, p("label", ParamString, false, ""), p("value", ParamNumber, false, "0-100")},
			Returns:     "metric id",
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				return idResult(e.AddMetric(str(a, "itemId"), str(a, "label"), optFloat(a.Float("value")))), nil
			},
		},
		metricIndexed("setChartField1Label", "Rename a metric.", []Param{p("label", ParamString, true, "")},
			func(e *Engine, itemID string, index int, a args.Args) {
				if v := a.String("label"); v.Valid {
					e.SetMetricLabel(itemID, index, v.Value)
				}
			}),
		metricIndexed("setChartField1Value", "Set a metric value (clamped to 0-100).", []Param{p("value", ParamNumber, true, "")},
			func(e *Engine, itemID string, index int, a args.Args) {
				if v := a.Float("value"); v.Valid {
					e.SetMetricValue(itemID, index, v.Value)
				}
			}),
		metricIndexed("clearChartField1Value", "Unset a metric value.", nil,
			func(e *Engine, itemID string, index int, _ args.Args) { e.ClearMetricValue(itemID, index) }),
		metricIndexed("removeChartField1", "Remove a metric.", nil,
			func(e *Engine, itemID string, index int, _ args.Args) { e.RemoveMetric(itemID, index) }),

		// character
		fieldSetter("setCharacterName", "Set a character's name.", "name", mutate.FieldName),
		fieldSetter("setCharacterDescription", "Set a character's description.", "description", mutate.FieldDescription),
		fieldSetter("setCharacterImageUrl", "Set a character's portrait URL.", "image_url", mutate.FieldImageURL, "imageUrl"),
		fieldSetter("setCharacterSourceComic", "Set the comic a character comes from.", "source_comic", mutate.FieldSourceComic, "sourceComic"),
		itemString("addCharacterTrait", "Add a character trait.", "trait", (*Engine).AddTrait),
		itemString("removeCharacterTrait", "Remove a character trait.", "trait", (*Engine).RemoveTrait),

		// story
		fieldSetter("setStoryTitle", "Set a story's title.", "title", mutate.FieldTitle),
		{
			Name:        "addStorySlide",
			Description: "Add a captioned slide and return its id.",
			Params: []Param{
				pItemID,
				p("caption", ParamString, true, ""),
				p("duration", ParamNumber, false, "seconds, default 8"),
			},
			Returns: "slide id",
			Mode:    ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				d := a.Float("duration").Or(mutate.DefaultSlideDuration)
				return idResult(e.AddSlide(str(a, "itemId"), str(a, "caption"), d)), nil
			},
		},
		{
			Name:        "setStorySlideCaption",
			Description: "Set a slide caption.",
			Params:      []Param{pItemID, pSlide, p("caption", ParamString, true, "")},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				if v := a.String("caption"); v.Valid {
					e.SetSlideCaption(str(a, "itemId"), str(a, "slideId"), v.Value)
				}
				return none(), nil
			},
		},
		{
			Name:        "setStorySlideDuration",
			Description: "Set how long a slide plays, in seconds.",
			Params:      []Param{pItemID, pSlide, p("duration", ParamNumber, true, "")},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				if v := a.Float("duration"); v.Valid {
					e.SetSlideDuration(str(a, "itemId"), str(a, "slideId"), v.Value)
				}
				return none(), nil
			},
		},
		{
			Name:        "removeStorySlide",
			Description: "Remove a slide.",
			Params:      []Param{pItemID, pSlide},
			Mode:        ModeShared,
			run: func(_ context.Context, e *Engine, a args.Args) (Result, error) {
				e.RemoveSlide(str(a, "itemId"), str(a, "slideId"))
				return none(), nil
			},
		},

		// human in the loop
		{
			Name:        "chooseItem",
			Description: "Ask the user to pick a card. Returns its id, or nothing if they cancel.",
			Params:      []Param{p("prompt", ParamString, false, "")},
			Returns:     "item id",
			Mode:        ModeExclusive,
			run: func(ctx context.Context, e *Engine, a args.Args) (Result, error) {
				return idResult(e.ChooseItem(ctx, str(a, "prompt"))), nil
			},
		},
		{
			Name:        "chooseCardType",
			Description: "Ask the user to pick a card type. Returns the type, or nothing if they cancel.",
			Params:      []Param{p("prompt", ParamString, false, "")},
			Returns:     "card type",
			Mode:        ModeExclusive,
			run: func(ctx context.Context, e *Engine, a args.Args) (Result, error) {
				return status(e.ChooseCardType(ctx, str(a, "prompt"))), nil
			},
		},

		// generation
		{
			Name:        "generateCharacterImage",
			Description: "Generate a portrait for a character and store its URL.",
			Params:      []Param{pItemID, p("style", ParamString, false, "art direction")},
			Returns:     "image URL or error message",
			Mode:        ModeDetached,
			run: func(ctx context.Context, e *Engine, a args.Args) (Result, error) {
				return status(e.GenerateCharacterImage(ctx, str(a, "itemId"), str(a, "style"))), nil
			},
		},
		{
			Name:        "generateSlideNarration",
			Description: "Narrate a slide caption and store the audio URL.",
			Params:      []Param{pItemID, pSlide, p("voice", ParamString, false, strings.Join(Voices, " | "))},
			Returns:     "audio URL or error message",
			Mode:        ModeDetached,
			run: func(ctx context.Context, e *Engine, a args.Args) (Result, error) {
				return status(e.GenerateSlideNarration(ctx, str(a, "itemId"), str(a, "slideId"), str(a, "voice"))), nil
			},
		},
	}
}
