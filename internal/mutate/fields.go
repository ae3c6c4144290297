package mutate

import "canvas-cli/internal/model"

// Field names a scalar text field that one or more data variants declare.
type Field string

const (
	FieldField1      Field = "field1"
	FieldField2      Field = "field2"
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldImageURL    Field = "image_url"
	FieldSourceComic Field = "source_comic"
	FieldTitle       Field = "title"
)

// SetText writes value into field f on whichever variant declares it. Variants
// that lack the field come back unchanged, so one command can target any card.
// field2 is a select: values outside model.SelectOptions are ignored.
func SetText(d model.Data, f Field, value string) model.Data {
	switch v := d.(type) {
	case model.ProjectData:
		switch f {
		case FieldField1:
			v.Field1 = value
			return v
		case FieldField2:
			if !model.ValidSelectOption(value) {
				return d
			}
			v.Field2 = value
			return v
		}
	case model.EntityData:
		switch f {
		case FieldField1:
			v.Field1 = value
			return v
		case FieldField2:
			if !model.ValidSelectOption(value) {
				return d
			}
			v.Field2 = value
			return v
		}
	case model.NoteData:
		if f == FieldField1 {
			v.Field1 = value
			return v
		}
	case model.CharacterData:
		switch f {
		case FieldName:
			v.Name = value
			return v
		case FieldDescription:
			v.Description = value
			return v
		case FieldImageURL:
			v.ImageURL = value
			return v
		case FieldSourceComic:
			v.SourceComic = value
			return v
		}
	case model.StoryData:
		if f == FieldTitle {
			v.Title = value
			return v
		}
	}
	return d
}

// AppendNote appends value to note.field1, optionally on a new line.
func AppendNote(d model.Data, value string, withNewline bool) model.Data {
	n, ok := d.(model.NoteData)
	if !ok {
		return d
	}
	if withNewline && n.Field1 != "" {
		n.Field1 += "\n"
	}
	n.Field1 += value
	return n
}
