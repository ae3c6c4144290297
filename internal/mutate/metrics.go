package mutate

import (
	"slices"
	"strings"

	"canvas-cli/internal/model"
	"canvas-cli/internal/store"
)

const (
	MetricMin = 0
	MetricMax = 100
)

// ClampMetric bounds v to [MetricMin, MetricMax].
func ClampMetric(v float64) float64 {
	return min(max(v, MetricMin), MetricMax)
}

// AddMetric appends a metric to a chart. A nil value leaves it unset.
func AddMetric(d model.Data, label string, value *float64) (model.Data, string) {
	c, ok := d.(model.ChartData)
	if !ok {
		return d, ""
	}
	id, next := store.NextSeq(c.Field1ID)
	m := model.ChartMetric{ID: id, Label: strings.TrimSpace(label), Value: model.UnsetMetric()}
	if value != nil {
		m.Value = model.Metric(ClampMetric(*value))
	}
	metrics := make([]model.ChartMetric, 0, len(c.Field1)+1)
	metrics = append(metrics, c.Field1...)
	c.Field1 = append(metrics, m)
	c.Field1ID = next
	return c, id
}

func updateMetric(d model.Data, index int, fn func(*model.ChartMetric)) model.Data {
	c, ok := d.(model.ChartData)
	if !ok || index < 0 || index >= len(c.Field1) {
		return d
	}
	c.Field1 = slices.Clone(c.Field1)
	fn(&c.Field1[index])
	return c
}

func SetMetricLabel(d model.Data, index int, label string) model.Data {
	return updateMetric(d, index, func(m *model.ChartMetric) { m.Label = label })
}

func SetMetricValue(d model.Data, index int, value float64) model.Data {
	return updateMetric(d, index, func(m *model.ChartMetric) { m.Value = model.Metric(ClampMetric(value)) })
}

func ClearMetricValue(d model.Data, index int) model.Data {
	return updateMetric(d, index, func(m *model.ChartMetric) { m.Value = model.UnsetMetric() })
}

func RemoveMetric(d model.Data, index int) model.Data {
	c, ok := d.(model.ChartData)
	if !ok || index < 0 || index >= len(c.Field1) {
		return d
	}
	c.Field1 = slices.Delete(slices.Clone(c.Field1), index, index+1)
	return c
}
