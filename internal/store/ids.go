package store

import (
	"fmt"
	"strconv"
	"strings"

	"canvas-cli/internal/model"
)

const idWidth = 4

// FormatID renders n as a zero-padded decimal id ("0001").
func FormatID(n int) string {
	return fmt.Sprintf("%0*d", idWidth, n)
}

// numericID parses an id as a decimal integer. Non-numeric or missing ids count as 0.
func numericID(id string) int {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// NextItemID returns the id for the next item and the counter value it consumes.
// The counter is reconciled against the largest numeric id present, so documents
// seeded with foreign ids never collide.
func NextItemID(doc model.Document) (string, int) {
	top := doc.ItemsCreated
	for _, it := range doc.Items {
		if n := numericID(it.ID); n > top {
			top = n
		}
	}
	next := top + 1
	return FormatID(next), next
}

// NextSeq allocates the next sub-entity id from a per-item counter.
func NextSeq(counter int) (string, int) {
	if counter < 0 {
		counter = 0
	}
	next := counter + 1
	return FormatID(next), next
}

// NextSlideID allocates a slide id from a story's slide counter.
func NextSlideID(counter int) (string, int) {
	id, next := NextSeq(counter)
	return "slide-" + id, next
}
