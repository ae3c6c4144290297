package model

import "slices"

// Data is the type-specific payload of an Item. The concrete type is fixed by Item.Type
// and never changes after creation; only its content does.
type Data interface {
	ItemType() ItemType
	clone() Data
}

// SelectOptions is the vocabulary shared by project.field2 and entity.field2 ("" means unset).
var SelectOptions = []string{"Option A", "Option B", "Option C"}

func ValidSelectOption(s string) bool {
	return s == "" || slices.Contains(SelectOptions, s)
}

// DefaultTagOptions is the tag vocabulary seeded into new entities.
var DefaultTagOptions = []string{"Tag 1", "Tag 2", "Tag 3"}

type ProjectData struct {
	Field1   string          `json:"field1"`
	Field2   string          `json:"field2"`
	Field3   string          `json:"field3"` // YYYY-MM-DD or ""
	Field4   []ChecklistItem `json:"field4"`
	Field4ID int             `json:"field4_id"`
}

func (ProjectData) ItemType() ItemType { return ItemTypeProject }

func (d ProjectData) clone() Data {
	d.Field4 = cloneSlice(d.Field4)
	return d
}

type EntityData struct {
	Field1        string   `json:"field1"`
	Field2        string   `json:"field2"`
	Field3        []string `json:"field3"`
	Field3Options []string `json:"field3_options"`
}

func (EntityData) ItemType() ItemType { return ItemTypeEntity }

func (d EntityData) clone() Data {
	d.Field3 = cloneSlice(d.Field3)
	d.Field3Options = cloneSlice(d.Field3Options)
	return d
}

type NoteData struct {
	Field1 string `json:"field1"`
}

func (NoteData) ItemType() ItemType { return ItemTypeNote }

func (d NoteData) clone() Data { return d }

type ChartData struct {
	Field1   []ChartMetric `json:"field1"`
	Field1ID int           `json:"field1_id"`
}

func (ChartData) ItemType() ItemType { return ItemTypeChart }

func (d ChartData) clone() Data {
	d.Field1 = cloneSlice(d.Field1)
	return d
}

type CharacterData struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Traits      []string `json:"traits"`
	ImageURL    string   `json:"image_url"`
	SourceComic string   `json:"source_comic"`
}

func (CharacterData) ItemType() ItemType { return ItemTypeCharacter }

func (d CharacterData) clone() Data {
	d.Traits = cloneSlice(d.Traits)
	return d
}

type StoryData struct {
	Title    string  `json:"title"`
	Slides   []Slide `json:"slides"`
	SlidesID int     `json:"slides_id"`
}

func (StoryData) ItemType() ItemType { return ItemTypeStory }

func (d StoryData) clone() Data {
	if d.Slides == nil {
		return d
	}
	slides := make([]Slide, len(d.Slides))
	for i, s := range d.Slides {
		if s.Duration != nil {
			v := *s.Duration
			s.Duration = &v
		}
		slides[i] = s
	}
	d.Slides = slides
	return d
}

// DefaultData builds the initial payload for a freshly created item of type t.
func DefaultData(t ItemType, name string) Data {
	switch t {
	case ItemTypeProject:
		return ProjectData{Field4: []ChecklistItem{}}
	case ItemTypeEntity:
		return EntityData{Field3: []string{}, Field3Options: cloneSlice(DefaultTagOptions)}
	case ItemTypeNote:
		return NoteData{}
	case ItemTypeChart:
		return ChartData{Field1: []ChartMetric{}}
	case ItemTypeCharacter:
		return CharacterData{Name: name, Traits: []string{}}
	case ItemTypeStory:
		return StoryData{Title: name, Slides: []Slide{}}
	default:
		return nil
	}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
