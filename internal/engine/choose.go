package engine

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"canvas-cli/internal/model"
)

// ItemChoices lists the live items as chooser options.
func ItemChoices(doc model.Document) []Choice {
	out := make([]Choice, 0, len(doc.Items))
	for _, it := range doc.Items {
		label := strings.TrimSpace(it.Name)
		if label == "" {
			label = "(untitled " + string(it.Type) + ")"
		}
		desc := it.ID + " · " + string(it.Type)
		if s := strings.TrimSpace(it.Subtitle); s != "" {
			desc += " · " + s
		}
		out = append(out, Choice{Value: it.ID, Label: label, Description: desc})
	}
	return out
}

// TypeChoices lists every card type as chooser options.
func TypeChoices() []Choice {
	out := make([]Choice, 0, len(model.ItemTypes))
	for _, t := range model.ItemTypes {
		out = append(out, Choice{Value: string(t), Label: string(t), Description: typeBlurb[t]})
	}
	return out
}

var typeBlurb = map[model.ItemType]string{
	model.ItemTypeProject:   "text, select, date and checklist",
	model.ItemTypeEntity:    "text, select and tags",
	model.ItemTypeNote:      "free text",
	model.ItemTypeChart:     "labelled metrics from 0 to 100",
	model.ItemTypeCharacter: "name, description, traits and portrait",
	model.ItemTypeStory:     "captioned slides with narration",
}

// ChooseItem asks the human to pick a live item and returns its id, or "" when
// the prompt is cancelled or nobody is there to answer.
func (e *Engine) ChooseItem(ctx context.Context, prompt string) string {
	choices := ItemChoices(e.state.Snapshot())
	if len(choices) == 0 {
		return ""
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = "Choose an item"
	}
	id := e.choose(ctx, prompt, choices)
	if id == "" {
		return ""
	}
	if _, _, ok := e.state.Snapshot().FindItem(id); !ok {
		return ""
	}
	return id
}

// ChooseCardType asks the human to pick a card type.
func (e *Engine) ChooseCardType(ctx context.Context, prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Choose a card type"
	}
	return e.choose(ctx, prompt, TypeChoices())
}

func (e *Engine) choose(ctx context.Context, title string, choices []Choice) string {
	if e.chooser == nil {
		e.log.Debug("no chooser attached; treating prompt as cancelled", zap.String("title", title))
		return ""
	}
	value, ok, err := e.chooser.Choose(ctx, title, choices)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.log.Warn("chooser failed", zap.Error(err))
		}
		return ""
	}
	if !ok {
		return ""
	}
	for _, c := range choices {
		if c.Value == value {
			return value
		}
	}
	return ""
}
