package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MetricValue is a chart value in [0,100] or the unset marker, which encodes as "".
type MetricValue struct {
	v   float64
	set bool
}

func Metric(v float64) MetricValue { return MetricValue{v: v, set: true} }

func UnsetMetric() MetricValue { return MetricValue{} }

func (m MetricValue) Get() (float64, bool) { return m.v, m.set }

func (m MetricValue) IsSet() bool { return m.set }

func (m MetricValue) Equal(o MetricValue) bool {
	if m.set != o.set {
		return false
	}
	return !m.set || m.v == o.v
}

func (m MetricValue) String() string {
	if !m.set {
		return ""
	}
	return strconv.FormatFloat(m.v, 'f', -1, 64)
}

func (m MetricValue) MarshalJSON() ([]byte, error) {
	if !m.set {
		return []byte(`""`), nil
	}
	return json.Marshal(m.v)
}

func (m *MetricValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = UnsetMetric()
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*m = UnsetMetric()
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("metric value %q: %w", s, err)
		}
		*m = Metric(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

type wireItem struct {
	ID       string          `json:"id"`
	Type     ItemType        `json:"type"`
	Name     string          `json:"name"`
	Subtitle string          `json:"subtitle"`
	Data     json.RawMessage `json:"data"`
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var w wireItem
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t, ok := ParseItemType(string(w.Type))
	if !ok {
		return fmt.Errorf("item %s: unknown type %q", w.ID, w.Type)
	}
	data, err := DecodeData(t, w.Data)
	if err != nil {
		return fmt.Errorf("item %s: %w", w.ID, err)
	}
	*it = Item{ID: w.ID, Type: t, Name: w.Name, Subtitle: w.Subtitle, Data: data}
	return nil
}

// DecodeData decodes a raw payload into the variant for t. Missing or null payloads
// decode to the type's defaults.
func DecodeData(t ItemType, raw json.RawMessage) (Data, error) {
	base := DefaultData(t, "")
	if base == nil {
		return nil, fmt.Errorf("unknown type %q", t)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return base, nil
	}
	switch d := base.(type) {
	case ProjectData:
		err := json.Unmarshal(raw, &d)
		return d, err
	case EntityData:
		err := json.Unmarshal(raw, &d)
		return d, err
	case NoteData:
		err := json.Unmarshal(raw, &d)
		return d, err
	case ChartData:
		err := json.Unmarshal(raw, &d)
		return d, err
	case CharacterData:
		err := json.Unmarshal(raw, &d)
		return d, err
	case StoryData:
		err := json.Unmarshal(raw, &d)
		return d, err
	}
	return nil, fmt.Errorf("unknown type %q", t)
}
