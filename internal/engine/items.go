package engine

import (
	"fmt"
	"strings"

	"canvas-cli/internal/args"
	"canvas-cli/internal/model"
	"canvas-cli/internal/mutate"
	"canvas-cli/internal/store"
)

func (e *Engine) SetGlobalTitle(title string) {
	e.update(func(doc model.Document) model.Document { return mutate.SetGlobalTitle(doc, title) })
}

func (e *Engine) SetGlobalDescription(description string) {
	e.update(func(doc model.Document) model.Document { return mutate.SetGlobalDescription(doc, description) })
}

func (e *Engine) SetItemName(itemID, name string) {
	e.update(func(doc model.Document) model.Document { return mutate.SetItemName(doc, itemID, name) })
}

func (e *Engine) SetItemSubtitle(itemID, subtitle string) {
	e.update(func(doc model.Document) model.Document { return mutate.SetItemSubtitle(doc, itemID, subtitle) })
}

// CreateItem appends a new item of type t and returns its id. A duplicate
// request returns the id of the item that already satisfies it.
func (e *Engine) CreateItem(t model.ItemType, name string) (string, error) {
	if _, ok := model.ParseItemType(string(t)); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidItemType, t)
	}
	var id string
	e.update(func(doc model.Document) model.Document {
		if hit, dup := e.guard.CheckItem(doc, t, name); dup {
			id = hit.ID
			e.duplicate("item", hit)
			return doc
		}
		var n int
		id, n = store.NextItemID(doc)
		doc = mutate.AppendItem(doc, model.Item{
			ID:   id,
			Type: t,
			Name: name,
			Data: model.DefaultData(t, name),
		})
		doc.ItemsCreated = n
		doc.LastAction = "created:" + id
		e.guard.RememberItem(t, name, id)
		return doc
	})
	return id, nil
}

// DeleteItem removes the item and returns "deleted:<id>" or "not_found:<id>",
// which is also recorded as the document's last action.
func (e *Engine) DeleteItem(itemID string) string {
	itemID = strings.TrimSpace(itemID)
	var status string
	e.update(func(doc model.Document) model.Document {
		next, ok := mutate.RemoveItem(doc, itemID)
		if ok {
			status = "deleted:" + itemID
		} else {
			status = "not_found:" + itemID
		}
		next.LastAction = status
		return next
	})
	return status
}

// SetField writes a scalar field on whichever variant declares it.
func (e *Engine) SetField(itemID string, f mutate.Field, value string) {
	e.updateItem("set "+string(f), itemID, func(d model.Data) model.Data { return mutate.SetText(d, f, value) })
}

func (e *Engine) AppendNote(itemID, value string, withNewline bool) {
	e.updateItem("appendNote", itemID, func(d model.Data) model.Data { return mutate.AppendNote(d, value, withNewline) })
}

func (e *Engine) ClearNote(itemID string) {
	e.updateItem("clearNote", itemID, func(d model.Data) model.Data {
		if _, ok := d.(model.NoteData); !ok {
			return d
		}
		return model.NoteData{}
	})
}

// SetProjectDate normalizes raw against the engine clock. Unparseable input is ignored.
func (e *Engine) SetProjectDate(itemID, raw string) {
	now := e.now()
	e.updateItem("setProjectDate", itemID, func(d model.Data) model.Data { return mutate.SetDate(d, raw, now) })
}

func (e *Engine) ClearProjectDate(itemID string) {
	e.updateItem("clearProjectDate", itemID, mutate.ClearDate)
}

// AddChecklistItem appends an entry to a project checklist and returns its id.
// An empty id means the item is missing or not a project.
func (e *Engine) AddChecklistItem(itemID, text string) string {
	var id string
	e.update(func(doc model.Document) model.Document {
		if hit, dup := e.guard.CheckChecklist(doc, itemID, text); dup {
			id = hit.ID
			e.duplicate("checklist", hit)
			return doc
		}
		next, _ := mutate.UpdateData(doc, itemID, func(d model.Data) model.Data {
			var out model.Data
			out, id = mutate.AddChecklistItem(d, text)
			return out
		})
		e.guard.RememberChecklist(itemID, text, id)
		return next
	})
	return id
}

// SetChecklistItem updates the text, done and proposed flags of the entry ref
// names (an id, or a 0-based then 1-based position). Unset options are kept.
func (e *Engine) SetChecklistItem(itemID, ref string, text args.Opt[string], done, proposed args.Opt[bool]) {
	e.updateItem("setChecklistItem", itemID, func(d model.Data) model.Data {
		if text.Valid {
			d = mutate.SetChecklistText(d, ref, text.Value)
		}
		if done.Valid {
			d = mutate.SetChecklistDone(d, ref, done.Value)
		}
		if proposed.Valid {
			d = mutate.SetChecklistProposed(d, ref, proposed.Value)
		}
		return d
	})
}

func (e *Engine) RemoveChecklistItem(itemID, checklistItemID string) {
	e.updateItem("removeChecklistItem", itemID, func(d model.Data) model.Data {
		return mutate.RemoveChecklistItem(d, checklistItemID)
	})
}

func (e *Engine) AddTag(itemID, tag string) {
	e.updateItem("addTag", itemID, func(d model.Data) model.Data { return mutate.AddTag(d, tag) })
}

func (e *Engine) RemoveTag(itemID, tag string) {
	e.updateItem("removeTag", itemID, func(d model.Data) model.Data { return mutate.RemoveTag(d, tag) })
}

// AddMetric appends a metric to a chart and returns its id. A nil value is unset.
func (e *Engine) AddMetric(itemID, label string, value *float64) string {
	var id string
	e.update(func(doc model.Document) model.Document {
		if hit, dup := e.guard.CheckMetric(doc, itemID, label, value); dup {
			id = hit.ID
			e.duplicate("metric", hit)
			return doc
		}
		next, _ := mutate.UpdateData(doc, itemID, func(d model.Data) model.Data {
			var out model.Data
			out, id = mutate.AddMetric(d, label, value)
			return out
		})
		e.guard.RememberMetric(itemID, label, value, id)
		return next
	})
	return id
}

func (e *Engine) SetMetricLabel(itemID string, index int, label string) {
	e.updateItem("setMetricLabel", itemID, func(d model.Data) model.Data { return mutate.SetMetricLabel(d, index, label) })
}

func (e *Engine) SetMetricValue(itemID string, index int, value float64) {
	e.updateItem("setMetricValue", itemID, func(d model.Data) model.Data { return mutate.SetMetricValue(d, index, value) })
}

func (e *Engine) ClearMetricValue(itemID string, index int) {
	e.updateItem("clearMetricValue", itemID, func(d model.Data) model.Data { return mutate.ClearMetricValue(d, index) })
}

func (e *Engine) RemoveMetric(itemID string, index int) {
	e.updateItem("removeMetric", itemID, func(d model.Data) model.Data { return mutate.RemoveMetric(d, index) })
}

func (e *Engine) AddTrait(itemID, trait string) {
	e.updateItem("addTrait", itemID, func(d model.Data) model.Data { return mutate.AddTrait(d, trait) })
}

func (e *Engine) RemoveTrait(itemID, trait string) {
	e.updateItem("removeTrait", itemID, func(d model.Data) model.Data { return mutate.RemoveTrait(d, trait) })
}

// AddSlide appends a slide to a story and returns its id.
func (e *Engine) AddSlide(itemID, caption string, duration float64) string {
	var id string
	e.updateItem("addSlide", itemID, func(d model.Data) model.Data {
		var out model.Data
		out, id = mutate.AddSlide(d, caption, duration)
		return out
	})
	return id
}

func (e *Engine) SetSlideCaption(itemID, slideID, caption string) {
	e.updateItem("setSlideCaption", itemID, func(d model.Data) model.Data { return mutate.SetSlideCaption(d, slideID, caption) })
}

func (e *Engine) SetSlideDuration(itemID, slideID string, seconds float64) {
	e.updateItem("setSlideDuration", itemID, func(d model.Data) model.Data { return mutate.SetSlideDuration(d, slideID, seconds) })
}

func (e *Engine) RemoveSlide(itemID, slideID string) {
	e.updateItem("removeSlide", itemID, func(d model.Data) model.Data { return mutate.RemoveSlide(d, slideID) })
}
