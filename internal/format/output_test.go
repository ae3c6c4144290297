package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWrite_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	env := Envelope{Data: map[string]any{"id": "0001"}, Hints: []string{"canvas state"}}
	if err := Write(&buf, env, "", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if _, ok := got["meta"]; ok {
		t.Fatalf("empty meta should be omitted: %s", buf.String())
	}
	if got["_hints"].([]any)[0] != "canvas state" {
		t.Fatalf("unexpected hints: %v", got["_hints"])
	}
}

func TestWrite_YAMLUsesJSONNames(t *testing.T) {
	type item struct {
		ItemID string `json:"itemId"`
	}
	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Data: item{ItemID: "0002"}}, "yaml", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "itemId: \"0002\"") {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "edn", false); err == nil {
		t.Fatalf("expected error")
	}
}
