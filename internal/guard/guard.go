// Package guard suppresses duplicate creations from a retry-prone caller.
//
// Two checks run in order. Content dedup answers with an existing sibling that
// already carries the requested name, text or label. The throttle answers with
// the id created for the previous request in the same scope when the content
// signature repeats inside a short window. Neither is a concurrency control.
package guard

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"canvas-cli/internal/model"
)

const (
	DefaultItemWindow      = 5 * time.Second
	DefaultSubEntityWindow = 800 * time.Millisecond
)

type Windows struct {
	Item      time.Duration
	SubEntity time.Duration
}

func DefaultWindows() Windows {
	return Windows{Item: DefaultItemWindow, SubEntity: DefaultSubEntityWindow}
}

type Reason string

const (
	ReasonContent  Reason = "content"
	ReasonThrottle Reason = "throttle"
)

// Hit is an existing id returned in place of a new creation.
type Hit struct {
	ID     string
	Reason Reason
}

type entry struct {
	sig string
	id  string
	at  time.Time
}

type Guard struct {
	mu      sync.Mutex
	now     func() time.Time
	windows Windows
	last    map[string]entry
}

// New returns a guard using now as its clock (time.Now when nil).
func New(w Windows, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{now: now, windows: w, last: map[string]entry{}}
}

func (g *Guard) SetWindows(w Windows) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.windows = w
}

func (g *Guard) Windows() Windows {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.windows
}

// Reset forgets every throttle entry.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = map[string]entry{}
}

func itemScope() string { return "item" }

func checklistScope(itemID string) string { return "checklist:" + strings.TrimSpace(itemID) }

func metricScope(itemID string) string { return "metric:" + strings.TrimSpace(itemID) }

func itemSignature(t model.ItemType, name string) string {
	return string(t) + "|" + strings.TrimSpace(name)
}

func metricSignature(label string, value *float64) string {
	v := ""
	if value != nil {
		v = strconv.FormatFloat(*value, 'f', -1, 64)
	}
	return strings.TrimSpace(label) + "|" + v
}

// throttled reports the cached id for scope when sig repeats inside window and
// alive still recognizes that id.
func (g *Guard) throttled(scope, sig string, window time.Duration, alive func(string) bool) (Hit, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.last[scope]
	if !ok || e.sig != sig || window <= 0 {
		return Hit{}, false
	}
	if g.now().Sub(e.at) > window {
		return Hit{}, false
	}
	if !alive(e.id) {
		return Hit{}, false
	}
	return Hit{ID: e.id, Reason: ReasonThrottle}, true
}

func (g *Guard) remember(scope, sig, id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[scope] = entry{sig: sig, id: id, at: g.now()}
}

// CheckItem looks for an item that makes creating (t, name) redundant.
func (g *Guard) CheckItem(doc model.Document, t model.ItemType, name string) (Hit, bool) {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		for _, it := range doc.Items {
			if it.Type == t && strings.TrimSpace(it.Name) == trimmed {
				return Hit{ID: it.ID, Reason: ReasonContent}, true
			}
		}
	}
	alive := func(id string) bool {
		it, _, ok := doc.FindItem(id)
		return ok && it.Type == t
	}
	return g.throttled(itemScope(), itemSignature(t, name), g.Windows().Item, alive)
}

func (g *Guard) RememberItem(t model.ItemType, name, id string) {
	g.remember(itemScope(), itemSignature(t, name), id)
}

// CheckChecklist looks for a checklist entry on itemID equivalent to text.
func (g *Guard) CheckChecklist(doc model.Document, itemID, text string) (Hit, bool) {
	it, _, ok := doc.FindItem(itemID)
	if !ok {
		return Hit{}, false
	}
	p, ok := it.Data.(model.ProjectData)
	if !ok {
		return Hit{}, false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		for _, c := range p.Field4 {
			if strings.TrimSpace(c.Text) == trimmed {
				return Hit{ID: c.ID, Reason: ReasonContent}, true
			}
		}
	}
	alive := func(id string) bool {
		for _, c := range p.Field4 {
			if c.ID == id {
				return true
			}
		}
		return false
	}
	return g.throttled(checklistScope(itemID), trimmed, g.Windows().SubEntity, alive)
}

func (g *Guard) RememberChecklist(itemID, text, id string) {
	g.remember(checklistScope(itemID), strings.TrimSpace(text), id)
}

// CheckMetric looks for a metric on itemID equivalent to (label, value).
func (g *Guard) CheckMetric(doc model.Document, itemID, label string, value *float64) (Hit, bool) {
	it, _, ok := doc.FindItem(itemID)
	if !ok {
		return Hit{}, false
	}
	c, ok := it.Data.(model.ChartData)
	if !ok {
		return Hit{}, false
	}
	trimmed := strings.TrimSpace(label)
	if trimmed != "" {
		for _, m := range c.Field1 {
			if strings.TrimSpace(m.Label) == trimmed {
				return Hit{ID: m.ID, Reason: ReasonContent}, true
			}
		}
	}
	alive := func(id string) bool {
		for _, m := range c.Field1 {
			if m.ID == id {
				return true
			}
		}
		return false
	}
	return g.throttled(metricScope(itemID), metricSignature(label, value), g.Windows().SubEntity, alive)
}

func (g *Guard) RememberMetric(itemID, label string, value *float64, id string) {
	g.remember(metricScope(itemID), metricSignature(label, value), id)
}
