package mutate

import (
	"testing"

	"canvas-cli/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestAddMetric_Clamps(t *testing.T) {
	var d model.Data = model.DefaultData(model.ItemTypeChart, "")
	d, id1 := AddMetric(d, " Revenue ", ptr(150))
	d, id2 := AddMetric(d, "Churn", ptr(-10))
	d, _ = AddMetric(d, "Pending", nil)
	c := d.(model.ChartData)

	if id1 != "0001" || id2 != "0002" || c.Field1ID != 3 {
		t.Fatalf("unexpected ids %q %q counter %d", id1, id2, c.Field1ID)
	}
	if c.Field1[0].Label != "Revenue" {
		t.Fatalf("expected trimmed label; got %q", c.Field1[0].Label)
	}
	if v, ok := c.Field1[0].Value.Get(); !ok || v != 100 {
		t.Fatalf("expected 100; got %v %v", v, ok)
	}
	if v, ok := c.Field1[1].Value.Get(); !ok || v != 0 {
		t.Fatalf("expected 0; got %v %v", v, ok)
	}
	if c.Field1[2].Value.IsSet() {
		t.Fatalf("expected unset value")
	}
}

func TestMetricSetters(t *testing.T) {
	var d model.Data = model.DefaultData(model.ItemTypeChart, "")
	d, _ = AddMetric(d, "A", ptr(10))
	d, _ = AddMetric(d, "B", ptr(20))

	d = SetMetricValue(d, 1, 150)
	if v, _ := d.(model.ChartData).Field1[1].Value.Get(); v != 100 {
		t.Fatalf("expected clamp to 100; got %v", v)
	}
	d = SetMetricValue(d, 0, -10)
	if v, _ := d.(model.ChartData).Field1[0].Value.Get(); v != 0 {
		t.Fatalf("expected clamp to 0; got %v", v)
	}
	d = ClearMetricValue(d, 0)
	m := d.(model.ChartData).Field1[0]
	if m.Value.IsSet() || m.Value.Equal(model.Metric(0)) {
		t.Fatalf("cleared value must differ from 0: %+v", m.Value)
	}
	d = SetMetricLabel(d, 1, "Beta")
	if got := d.(model.ChartData).Field1[1].Label; got != "Beta" {
		t.Fatalf("label: %q", got)
	}

	before := d
	for _, idx := range []int{-1, 2, 99} {
		if got := SetMetricLabel(d, idx, "x"); !sameChart(got, before) {
			t.Fatalf("index %d should be a no-op", idx)
		}
		if got := RemoveMetric(d, idx); !sameChart(got, before) {
			t.Fatalf("remove index %d should be a no-op", idx)
		}
	}

	d = RemoveMetric(d, 0)
	c := d.(model.ChartData)
	if len(c.Field1) != 1 || c.Field1[0].Label != "Beta" || c.Field1ID != 2 {
		t.Fatalf("unexpected chart after remove: %+v", c)
	}
}

func sameChart(a, b model.Data) bool {
	ca, cb := a.(model.ChartData), b.(model.ChartData)
	if len(ca.Field1) != len(cb.Field1) || ca.Field1ID != cb.Field1ID {
		return false
	}
	for i := range ca.Field1 {
		if ca.Field1[i].ID != cb.Field1[i].ID || ca.Field1[i].Label != cb.Field1[i].Label || !ca.Field1[i].Value.Equal(cb.Field1[i].Value) {
			return false
		}
	}
	return true
}
