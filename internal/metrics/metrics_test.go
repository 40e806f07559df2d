// ABOUTME: Tests for the Prometheus collectors
// ABOUTME: Verifies counters and nil-safe recording

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Fix("written")
	m.Fix("written")
	m.Fix("stale")
	m.StoreOp("merge", nil)
	m.StoreOp("merge", errors.New("offline"))
	m.Draw("collision")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fixes.WithLabelValues("written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fixes.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("merge", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("merge", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.draws.WithLabelValues("collision")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.Fix("written")
	m.StoreOp("delete", nil)
	m.Draw("accepted")
}

func TestMetrics_ReRegisterReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.Fix("written")
	second.Fix("written")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.fixes.WithLabelValues("written")))
}
