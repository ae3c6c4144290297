package model

import "strings"

type ItemType string

const (
	ItemTypeProject   ItemType = "project"
	ItemTypeEntity    ItemType = "entity"
	ItemTypeNote      ItemType = "note"
	ItemTypeChart     ItemType = "chart"
	ItemTypeCharacter ItemType = "character"
	ItemTypeStory     ItemType = "story"
)

// ItemTypes lists every card type in presentation order.
var ItemTypes = []ItemType{
	ItemTypeProject,
	ItemTypeEntity,
	ItemTypeNote,
	ItemTypeChart,
	ItemTypeCharacter,
	ItemTypeStory,
}

// ParseItemType accepts a type name case-insensitively.
func ParseItemType(s string) (ItemType, bool) {
	t := ItemType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ItemTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Document is the whole shared canvas state. It is replaced wholesale on every mutation.
type Document struct {
	Items             []Item `json:"items"`
	GlobalTitle       string `json:"globalTitle"`
	GlobalDescription string `json:"globalDescription"`
	LastAction        string `json:"lastAction,omitempty"`
	ItemsCreated      int    `json:"itemsCreated"`
}

// EmptyDocument is the initial state used whenever no state exists yet.
func EmptyDocument() Document {
	return Document{Items: []Item{}}
}

// IsPopulated reports whether the document carries any user content.
// Callers use it to decide between a live snapshot and a last-known-good one.
func (d Document) IsPopulated() bool {
	return len(d.Items) > 0 || d.GlobalTitle != "" || d.GlobalDescription != ""
}

func (d Document) FindItem(id string) (Item, int, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, -1, false
	}
	for i := range d.Items {
		if d.Items[i].ID == id {
			return d.Items[i], i, true
		}
	}
	return Item{}, -1, false
}

// Clone returns a deep copy; the result shares no slices with d.
func (d Document) Clone() Document {
	out := d
	out.Items = make([]Item, len(d.Items))
	for i, it := range d.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

type Item struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Name     string   `json:"name"`
	Subtitle string   `json:"subtitle"`
	Data     Data     `json:"data"`
}

func (it Item) Clone() Item {
	out := it
	if it.Data != nil {
		out.Data = it.Data.clone()
	}
	return out
}

type ChecklistItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Done     bool   `json:"done"`
	Proposed bool   `json:"proposed"`
}

type ChartMetric struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Value MetricValue `json:"value"`
}

type Slide struct {
	ID       string   `json:"id"`
	ImageURL string   `json:"imageUrl"`
	AudioURL string   `json:"audioUrl,omitempty"`
	Caption  string   `json:"caption,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}
