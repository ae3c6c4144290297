// Package grounding renders the read-only state digest handed to the agent
// before each of its turns. The document is the only source of truth; nothing
// here mutates it.
package grounding

import (
	"fmt"
	"strings"

	"canvas-cli/internal/model"
)

// MaxDigestItems bounds how many items the digest lists.
const MaxDigestItems = 5

const FieldSchema = `FIELD SCHEMA (authoritative):
- project.data:
  - field1: string (text)
  - field2: string (select: 'Option A' | 'Option B' | 'Option C')
  - field3: string (date 'YYYY-MM-DD')
  - field4: ChecklistItem[] where ChecklistItem={id: string, text: string, done: boolean, proposed: boolean}
- entity.data:
  - field1: string
  - field2: string (select: 'Option A' | 'Option B' | 'Option C')
  - field3: string[] (selected tags; subset of field3_options)
  - field3_options: string[] (available tags)
- note.data:
  - field1: string (textarea; represents description)
- character.data:
  - name: string (character name)
  - description: string (brief character description)
  - traits: string[] (character traits/tags)
  - image_url: string (URL to character image)
  - source_comic: string (which comic this character came from)
- story.data:
  - title: string (story title)
  - slides: Array<{id: string, imageUrl: string, audioUrl?: string, caption?: string, duration?: number}>
- chart.data:
  - field1: Array<{id: string, label: string, value: number | ''}> with value in [0..100] or ''
`

const ToolPolicy = `MUTATION/TOOL POLICY:
- When you claim to create/update/delete, you MUST call the corresponding command(s).
- To create new cards, call createItem with type in {project, entity, note, chart, character, story} and optional name. It returns the new id; use that id for follow-up commands in the same turn.
- Repeating a creation returns the id that already exists. Do not retry creations to "make sure".
- After commands run, rely on the latest shared state (ground truth) when replying.
- To set a card's subtitle (never the data fields): use setItemSubtitleOrDescription.
- When the user must pick a card or a card type, call chooseItem or chooseCardType and wait; an empty result means they cancelled.
- generateCharacterImage and generateSlideNarration return a URL on success or a message to relay on failure.

DESCRIPTION MAPPING:
- For project/entity/chart: treat 'description', 'overview', 'summary', 'caption', 'blurb' as the card subtitle; use setItemSubtitleOrDescription.
- For notes: 'content', 'description', 'text', or 'note' refers to note content; use setNoteField1 / appendNoteField1 / clearNoteField1.
- For characters: use the character commands to set name, description, traits, image and source comic.
- For stories: use setStoryTitle for the story title, and addStorySlide to add slides with captions and durations.
`

const GroundingRules = `STRICT GROUNDING RULES:
1) ONLY use shared state (items/globalTitle/globalDescription) as the source of truth.
2) Before ANY read or write, assume values may have changed; always read the latest state.
3) If a command doesn't specify which item to change, ask to clarify.
`

// Source yields the snapshot to ground on: the live document, or the last
// populated one when the live document is empty.
type Source interface {
	GroundingSnapshot() model.Document
}

// Build renders the full instructions for the snapshot src prefers.
func Build(src Source) string {
	return Instructions(src.GroundingSnapshot())
}

// Instructions joins the fixed schema and policy with the digest of doc.
func Instructions(doc model.Document) string {
	var b strings.Builder
	b.WriteString(FieldSchema)
	b.WriteString("\n")
	b.WriteString(ToolPolicy)
	b.WriteString("\n")
	b.WriteString(GroundingRules)
	b.WriteString("\n")
	b.WriteString(Digest(doc))
	return b.String()
}

// Digest summarizes doc: global fields plus the first MaxDigestItems items.
func Digest(doc model.Document) string {
	var b strings.Builder
	b.WriteString("CURRENT STATE:\n")
	fmt.Fprintf(&b, "- globalTitle: %s\n", quoteOrNone(doc.GlobalTitle))
	fmt.Fprintf(&b, "- globalDescription: %s\n", quoteOrNone(doc.GlobalDescription))
	if doc.LastAction != "" {
		fmt.Fprintf(&b, "- lastAction: %s\n", doc.LastAction)
	}
	if len(doc.Items) == 0 {
		b.WriteString("- items: none\n")
		return b.String()
	}
	fmt.Fprintf(&b, "- items (%d):\n", len(doc.Items))
	for i, it := range doc.Items {
		if i == MaxDigestItems {
			fmt.Fprintf(&b, "  - ... %d more\n", len(doc.Items)-MaxDigestItems)
			break
		}
		fmt.Fprintf(&b, "  - id=%s type=%s name=%s", it.ID, it.Type, quoteOrNone(it.Name))
		if s := summarize(it.Data); s != "" {
			b.WriteString(" ")
			b.WriteString(s)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func summarize(d model.Data) string {
	switch v := d.(type) {
	case model.ProjectData:
		done := 0
		for _, c := range v.Field4 {
			if c.Done {
				done++
			}
		}
		if len(v.Field4) == 0 {
			return ""
		}
		return fmt.Sprintf("(checklist %d/%d done)", done, len(v.Field4))
	case model.EntityData:
		if len(v.Field3) == 0 {
			return ""
		}
		return fmt.Sprintf("(tags: %s)", strings.Join(v.Field3, ", "))
	case model.ChartData:
		if len(v.Field1) == 0 {
			return ""
		}
		return fmt.Sprintf("(%d metrics)", len(v.Field1))
	case model.StoryData:
		if len(v.Slides) == 0 {
			return ""
		}
		return fmt.Sprintf("(%d slides)", len(v.Slides))
	case model.CharacterData:
		if len(v.Traits) == 0 {
			return ""
		}
		return fmt.Sprintf("(traits: %s)", strings.Join(v.Traits, ", "))
	}
	return ""
}

func quoteOrNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return fmt.Sprintf("%q", s)
}
