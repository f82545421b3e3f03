package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestFoundryMetricsCountOutcomes(t *testing.T) {
	m := Foundry()
	require.Same(t, m, Foundry())

	beforeOK := testutil.ToFloat64(m.transactions.WithLabelValues("curve_buy", "success"))
	beforeFail := testutil.ToFloat64(m.transactions.WithLabelValues("curve_buy", "failure"))
	beforeKind := testutil.ToFloat64(m.rejections.WithLabelValues("economic"))

	m.ObserveTransaction("curve_buy", "", time.Millisecond)
	m.ObserveTransaction("curve_buy", "economic", time.Millisecond)
	m.ObserveEvent("curve.tokens.purchased")
	m.SetHeight(7)

	require.Equal(t, beforeOK+1, testutil.ToFloat64(m.transactions.WithLabelValues("curve_buy", "success")))
	require.Equal(t, beforeFail+1, testutil.ToFloat64(m.transactions.WithLabelValues("curve_buy", "failure")))
	require.Equal(t, beforeKind+1, testutil.ToFloat64(m.rejections.WithLabelValues("economic")))
	require.Equal(t, float64(7), testutil.ToFloat64(m.height))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *FoundryMetrics
	m.ObserveTransaction("x", "", 0)
	m.ObserveEvent("x")
	m.SetHeight(1)
}
