package mutate

import (
	"slices"
	"strconv"
	"strings"

	"canvas-cli/internal/model"
	"canvas-cli/internal/store"
)

// AddChecklistItem appends an unchecked entry to a project's field4 and returns
// the new entry id. Non-project data comes back unchanged with an empty id.
func AddChecklistItem(d model.Data, text string) (model.Data, string) {
	p, ok := d.(model.ProjectData)
	if !ok {
		return d, ""
	}
	id, next := store.NextSeq(p.Field4ID)
	items := make([]model.ChecklistItem, 0, len(p.Field4)+1)
	items = append(items, p.Field4...)
	p.Field4 = append(items, model.ChecklistItem{ID: id, Text: strings.TrimSpace(text)})
	p.Field4ID = next
	return p, id
}

// ResolveChecklistRef maps ref to a position in items. An exact id match wins;
// otherwise a bare non-negative integer is tried as a 0-based then 1-based index.
func ResolveChecklistRef(items []model.ChecklistItem, ref string) (int, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, false
	}
	for i := range items {
		if items[i].ID == ref {
			return i, true
		}
	}
	if !isDigits(ref) {
		return -1, false
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return -1, false
	}
	if n < len(items) {
		return n, true
	}
	if n >= 1 && n-1 < len(items) {
		return n - 1, true
	}
	return -1, false
}

func updateChecklistItem(d model.Data, ref string, fn func(*model.ChecklistItem)) model.Data {
	p, ok := d.(model.ProjectData)
	if !ok {
		return d
	}
	idx, ok := ResolveChecklistRef(p.Field4, ref)
	if !ok {
		return d
	}
	p.Field4 = slices.Clone(p.Field4)
	fn(&p.Field4[idx])
	return p
}

func SetChecklistText(d model.Data, ref, text string) model.Data {
	return updateChecklistItem(d, ref, func(c *model.ChecklistItem) { c.Text = text })
}

func SetChecklistDone(d model.Data, ref string, done bool) model.Data {
	return updateChecklistItem(d, ref, func(c *model.ChecklistItem) { c.Done = done })
}

// SetChecklistProposed flags an entry as suggested by the agent rather than the user.
func SetChecklistProposed(d model.Data, ref string, proposed bool) model.Data {
	return updateChecklistItem(d, ref, func(c *model.ChecklistItem) { c.Proposed = proposed })
}

// RemoveChecklistItem drops the entry with the exact id. The counter is kept so
// ids are never reused.
func RemoveChecklistItem(d model.Data, id string) model.Data {
	p, ok := d.(model.ProjectData)
	if !ok {
		return d
	}
	id = strings.TrimSpace(id)
	idx := slices.IndexFunc(p.Field4, func(c model.ChecklistItem) bool { return c.ID == id })
	if idx < 0 {
		return d
	}
	p.Field4 = slices.Delete(slices.Clone(p.Field4), idx, idx+1)
	return p
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
