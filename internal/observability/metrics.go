package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "armctl",
			Subsystem: "protocol",
			Name:      "frames_total",
			Help:      "Inbound frames by family and dispatch outcome.",
		},
		[]string{"family", "outcome"},
	)
	stateSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "armctl",
			Subsystem: "protocol",
			Name:      "state_sends_total",
			Help:      "State replies by state command and success.",
		},
		[]string{"cmd", "success"},
	)
	cycleSlotsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "armctl",
			Subsystem: "cycle",
			Name:      "slots_in_use",
			Help:      "Motion-cycle staging slots currently in use.",
		},
	)
	linkSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "armctl",
			Subsystem: "link",
			Name:      "sessions",
			Help:      "Open bench link sessions.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "armctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"device", "method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "armctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"device", "method", "route", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesTotal,
			stateSends,
			cycleSlotsInUse,
			linkSessions,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordFrame(family, outcome string) {
	RegisterMetrics()
	framesTotal.WithLabelValues(family, outcome).Inc()
}

func RecordStateSend(cmd uint8, success bool) {
	RegisterMetrics()
	stateSends.WithLabelValues(strconv.Itoa(int(cmd)), strconv.FormatBool(success)).Inc()
}

func SetCycleSlotsInUse(n int) {
	RegisterMetrics()
	cycleSlotsInUse.Set(float64(n))
}

func AddLinkSessions(delta int) {
	RegisterMetrics()
	linkSessions.Add(float64(delta))
}

func RecordHTTPRequest(device, method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(device, method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(device, method, route, statusLabel).Observe(duration.Seconds())
}
