package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordAction("main_actions", "allowed")
	r.RecordAction("main_actions", "allowed")
	r.RecordAction("main_actions", "rejected")
	r.RecordRowsSkipped("gaps", 0)
	r.RecordRowsSkipped("gaps", 3)
	r.RecordScrape(false, 0.2)

	assert.Equal(t, 2.0, counterValue(t, reg, "light_action_decisions_total",
		map[string]string{"counter": "main_actions", "outcome": "allowed"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "light_action_decisions_total",
		map[string]string{"counter": "main_actions", "outcome": "rejected"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "light_loader_rows_skipped_total",
		map[string]string{"source": "gaps"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "light_quote_scrapes_total",
		map[string]string{"status": "error"}))
}

func TestNewIsSingleton(t *testing.T) {
	assert.Same(t, New(), New())
}
