package args

import (
	"encoding/json"
	"testing"
)

func TestBool(t *testing.T) {
	a := Args{"t": "TRUE", "f": " false ", "b": true, "junk": "yes", "one": 1}
	if o := a.Bool("t"); !o.Valid || !o.Value {
		t.Fatalf("TRUE: %+v", o)
	}
	if o := a.Bool("f"); !o.Valid || o.Value {
		t.Fatalf("false: %+v", o)
	}
	if o := a.Bool("b"); !o.Valid || !o.Value {
		t.Fatalf("native bool: %+v", o)
	}
	if o := a.Bool("junk"); o.Valid {
		t.Fatalf("expected junk to be absent; got %+v", o)
	}
	if o := a.Bool("missing"); o.Valid {
		t.Fatalf("expected missing to be absent")
	}
	if o := a.Bool("one"); !o.Valid || !o.Value {
		t.Fatalf("numeric bool: %+v", o)
	}
}

func TestFloatAndInt(t *testing.T) {
	var fromJSON map[string]any
	if err := json.Unmarshal([]byte(`{"n": 150, "s": "42.5", "i": "2", "frac": 1.5, "bad": "abc", "empty": "", "flag": true}`), &fromJSON); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	a := Args(fromJSON)

	if o := a.Float("n"); !o.Valid || o.Value != 150 {
		t.Fatalf("n: %+v", o)
	}
	if o := a.Float("s"); !o.Valid || o.Value != 42.5 {
		t.Fatalf("s: %+v", o)
	}
	if o := a.Int("i"); !o.Valid || o.Value != 2 {
		t.Fatalf("i: %+v", o)
	}
	if o := a.Int("frac"); o.Valid {
		t.Fatalf("expected fractional int to be absent")
	}
	for _, k := range []string{"bad", "empty", "flag", "missing"} {
		if o := a.Float(k); o.Valid {
			t.Fatalf("%s: expected absent; got %+v", k, o)
		}
	}
}

func TestString(t *testing.T) {
	a := Args{"s": "x", "n": 3, "nil": nil, "obj": map[string]any{"a": 1}, "empty": ""}
	if got := a.String("s").Or("?"); got != "x" {
		t.Fatalf("s: %q", got)
	}
	if got := a.String("n").Or("?"); got != "3" {
		t.Fatalf("n: %q", got)
	}
	if o := a.String("empty"); !o.Valid || o.Value != "" {
		t.Fatalf("empty string should be present: %+v", o)
	}
	if a.String("nil").Valid || a.String("obj").Valid {
		t.Fatalf("expected nil/object to be absent")
	}
}

func TestParseKV(t *testing.T) {
	a, err := ParseKV([]string{"itemId=0001", "text=a=b", "done=true"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.String("text").Or("") != "a=b" {
		t.Fatalf("expected value to keep later '=': %+v", a)
	}
	if !a.Bool("done").Value {
		t.Fatalf("expected done=true")
	}
	if _, err := ParseKV([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for token without '='")
	}
}
