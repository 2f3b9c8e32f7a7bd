package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdfconverter"

var (
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversions by kind and result (success, bad_request, timeout, error)",
		},
		[]string{"kind", "result"},
	)

	conversionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting, by kind",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	inputBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_bytes",
			Help:      "Decoded PDF size by kind",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8),
		},
		[]string{"kind"},
	)

	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Pages produced by successful conversions, by kind",
		},
		[]string{"kind"},
	)

	inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversions_in_flight",
			Help:      "Conversions currently holding a slot",
		},
	)

	jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Asynchronous job events by kind and event (submitted, completed, failed, cancelled)",
		},
		[]string{"kind", "event"},
	)

	initOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(conversions, conversionLatency, inputBytes, pagesProcessed, inFlight, jobs)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveConversion(kind, result string, dur time.Duration) {
	conversions.WithLabelValues(kind, result).Inc()
	conversionLatency.WithLabelValues(kind).Observe(dur.Seconds())
}

func ObserveInput(kind string, size int) { inputBytes.WithLabelValues(kind).Observe(float64(size)) }

func AddPages(kind string, n int) {
	if n > 0 {
		pagesProcessed.WithLabelValues(kind).Add(float64(n))
	}
}

func IncInFlight() { inFlight.Inc() }
func DecInFlight() { inFlight.Dec() }

func IncJob(kind, event string) { jobs.WithLabelValues(kind, event).Inc() }
