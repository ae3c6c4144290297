package mutate

import (
	"slices"
	"strings"

	"canvas-cli/internal/model"
)

func SetGlobalTitle(doc model.Document, title string) model.Document {
	doc.GlobalTitle = title
	return doc
}

func SetGlobalDescription(doc model.Document, description string) model.Document {
	doc.GlobalDescription = description
	return doc
}

// UpdateItem replaces the item with the given id by fn(item). A missing id
// returns doc unchanged.
func UpdateItem(doc model.Document, itemID string, fn func(model.Item) model.Item) (model.Document, bool) {
	_, idx, ok := doc.FindItem(itemID)
	if !ok {
		return doc, false
	}
	items := slices.Clone(doc.Items)
	items[idx] = fn(items[idx])
	doc.Items = items
	return doc, true
}

// UpdateData applies fn to one item's data. Variants are never swapped: a
// result of a different type is discarded.
func UpdateData(doc model.Document, itemID string, fn func(model.Data) model.Data) (model.Document, bool) {
	return UpdateItem(doc, itemID, func(it model.Item) model.Item {
		next := fn(it.Data)
		if next == nil || it.Data == nil || next.ItemType() != it.Data.ItemType() {
			return it
		}
		it.Data = next
		return it
	})
}

func SetItemName(doc model.Document, itemID, name string) model.Document {
	doc, _ = UpdateItem(doc, itemID, func(it model.Item) model.Item {
		it.Name = name
		return it
	})
	return doc
}

func SetItemSubtitle(doc model.Document, itemID, subtitle string) model.Document {
	doc, _ = UpdateItem(doc, itemID, func(it model.Item) model.Item {
		it.Subtitle = subtitle
		return it
	})
	return doc
}

// AppendItem adds it at the end of the item sequence.
func AppendItem(doc model.Document, it model.Item) model.Document {
	items := make([]model.Item, 0, len(doc.Items)+1)
	items = append(items, doc.Items...)
	doc.Items = append(items, it)
	return doc
}

// RemoveItem drops the item with the given id.
func RemoveItem(doc model.Document, itemID string) (model.Document, bool) {
	itemID = strings.TrimSpace(itemID)
	_, idx, ok := doc.FindItem(itemID)
	if !ok {
		return doc, false
	}
	items := make([]model.Item, 0, len(doc.Items)-1)
	items = append(items, doc.Items[:idx]...)
	items = append(items, doc.Items[idx+1:]...)
	doc.Items = items
	return doc, true
}
