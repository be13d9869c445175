package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCheckIn()
	m.RecordCheckOut("manual")
	m.RecordCheckOutFailure("automatic", "MINIMUM_DURATION_ERROR")
	m.RecordAccessFetch("ok", 2)
	m.RecordPurge(3)
	m.RecordPurge(0)
	m.RecordRequest("/checkin", "POST", 200, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckIns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckOuts.WithLabelValues("manual")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckOutFailures.WithLabelValues("automatic", "MINIMUM_DURATION_ERROR")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AccessesMatched))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TracesPurged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("/checkin", "POST", "200")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCheckIn()
		m.RecordCheckOut("manual")
		m.RecordError("/x", "GET", "CODE")
	})
}
