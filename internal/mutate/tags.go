package mutate

import (
	"slices"
	"strings"

	"canvas-cli/internal/model"
)

// AddTag adds tag to an entity's field3 set. Tags outside the entity's
// field3 options and tags already present are ignored.
func AddTag(d model.Data, tag string) model.Data {
	e, ok := d.(model.EntityData)
	tag = strings.TrimSpace(tag)
	if !ok || !containsString(e.Field3Options, tag) || containsString(e.Field3, tag) {
		return d
	}
	e.Field3 = appendString(e.Field3, tag)
	return e
}

func RemoveTag(d model.Data, tag string) model.Data {
	e, ok := d.(model.EntityData)
	if !ok {
		return d
	}
	next, removed := removeString(e.Field3, strings.TrimSpace(tag))
	if !removed {
		return d
	}
	e.Field3 = next
	return e
}

// AddTrait appends a character trait, keeping traits unique and ordered.
func AddTrait(d model.Data, trait string) model.Data {
	c, ok := d.(model.CharacterData)
	trait = strings.TrimSpace(trait)
	if !ok || trait == "" || containsString(c.Traits, trait) {
		return d
	}
	c.Traits = appendString(c.Traits, trait)
	return c
}

func RemoveTrait(d model.Data, trait string) model.Data {
	c, ok := d.(model.CharacterData)
	if !ok {
		return d
	}
	next, removed := removeString(c.Traits, strings.TrimSpace(trait))
	if !removed {
		return d
	}
	c.Traits = next
	return c
}

func containsString(list []string, s string) bool {
	return slices.Contains(list, s)
}

func appendString(list []string, s string) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	return append(out, s)
}

func removeString(list []string, s string) ([]string, bool) {
	idx := slices.Index(list, s)
	if idx < 0 {
		return list, false
	}
	return slices.Delete(slices.Clone(list), idx, idx+1), true
}
