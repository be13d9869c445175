package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the agent.
type Metrics struct {
	CheckIns          prometheus.Counter
	CheckOuts         *prometheus.CounterVec
	CheckOutFailures  *prometheus.CounterVec
	GeofenceEvents    *prometheus.CounterVec
	AccessFetches     *prometheus.CounterVec
	AccessesMatched   prometheus.Counter
	TracesPurged      prometheus.Counter
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	RequestErrorCount *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CheckIns: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkin_agent_checkins_total",
			Help: "Total number of check-ins",
		}),
		CheckOuts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_agent_checkouts_total",
			Help: "Total number of check-outs by trigger",
		}, []string{"trigger"}),
		CheckOutFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_agent_checkout_failures_total",
			Help: "Failed check-out attempts by trigger and error code",
		}, []string{"trigger", "code"}),
		GeofenceEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_agent_geofence_events_total",
			Help: "Geofence transitions by type and whether they were confirmed",
		}, []string{"transition", "outcome"}),
		AccessFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_agent_access_fetches_total",
			Help: "Accessed-data fetches by outcome",
		}, []string{"outcome"}),
		AccessesMatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkin_agent_accesses_matched_total",
			Help: "Newly surfaced data accesses",
		}),
		TracesPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkin_agent_traces_purged_total",
			Help: "Trace tuples removed after the retention window",
		}),
		RequestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_agent_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkin_agent_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		RequestErrorCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_agent_http_request_errors_total",
			Help: "HTTP errors by route, method and error code",
		}, []string{"path", "method", "code"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.RequestErrorCount.WithLabelValues(path, method, code).Inc()
}

// RecordCheckIn counts a successful check-in.
func (m *Metrics) RecordCheckIn() {
	if m == nil {
		return
	}
	m.CheckIns.Inc()
}

// RecordCheckOut counts a successful check-out.
func (m *Metrics) RecordCheckOut(trigger string) {
	if m == nil {
		return
	}
	m.CheckOuts.WithLabelValues(trigger).Inc()
}

// RecordCheckOutFailure counts a rejected check-out.
func (m *Metrics) RecordCheckOutFailure(trigger, code string) {
	if m == nil {
		return
	}
	m.CheckOutFailures.WithLabelValues(trigger, code).Inc()
}

// RecordGeofenceEvent counts a platform transition.
func (m *Metrics) RecordGeofenceEvent(transition, outcome string) {
	if m == nil {
		return
	}
	m.GeofenceEvents.WithLabelValues(transition, outcome).Inc()
}

// RecordAccessFetch counts a reconciliation cycle.
func (m *Metrics) RecordAccessFetch(outcome string, matched int) {
	if m == nil {
		return
	}
	m.AccessFetches.WithLabelValues(outcome).Inc()
	if matched > 0 {
		m.AccessesMatched.Add(float64(matched))
	}
}

// RecordPurge counts expired trace tuples.
func (m *Metrics) RecordPurge(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TracesPurged.Add(float64(n))
}
