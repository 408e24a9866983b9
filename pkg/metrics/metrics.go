package metrics

import (
	"FaceTrigger/internal/entity"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	FramesProcessed atomic.Uint64
	FacePresent     atomic.Uint64 // 0 = no face, 1 = face
	ReadErrors      atomic.Uint64
	DetectErrors    atomic.Uint64

	detectLatency prometheus.Histogram
	pulses        *prometheus.CounterVec
	pulseFailures prometheus.Counter
	polls         prometheus.Counter

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "facetrigger_frames_processed_total",
			Help: "Total frames run through the face detector",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "facetrigger_camera_read_errors_total",
			Help: "Total failed camera reads",
		},
		func() float64 { return float64(m.ReadErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "facetrigger_detect_errors_total",
			Help: "Total frames skipped because detection failed",
		},
		func() float64 { return float64(m.DetectErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "facetrigger_face_present",
			Help: "Face currently detected (0=no, 1=yes)",
		},
		func() float64 { return float64(m.FacePresent.Load()) },
	))

	m.detectLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "facetrigger_detect_latency_seconds",
		Help:    "Per-frame face detection latency",
		Buckets: prometheus.ExponentialBuckets(0.002, 2, 10),
	})

	m.pulses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facetrigger_servo_pulses_total",
		Help: "Servo pulses by source",
	}, []string{"source"})

	m.pulseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facetrigger_servo_pulse_failures_total",
		Help: "Servo pulses that returned an error",
	})

	m.polls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facetrigger_status_polls_total",
		Help: "Detection status polls served over HTTP",
	})

	m.registry.MustRegister(m.detectLatency, m.pulses, m.pulseFailures, m.polls)
}

func (m *Metrics) FrameProcessed(present bool, latency time.Duration) {
	m.FramesProcessed.Add(1)
	if present {
		m.FacePresent.Store(1)
	} else {
		m.FacePresent.Store(0)
	}
	m.detectLatency.Observe(latency.Seconds())
}

func (m *Metrics) ReadError() {
	m.ReadErrors.Add(1)
}

func (m *Metrics) DetectError() {
	m.DetectErrors.Add(1)
}

func (m *Metrics) PulseFinished(event entity.ServoEvent) {
	m.pulses.WithLabelValues(event.Source).Inc()
	if event.Error != "" {
		m.pulseFailures.Inc()
	}
}

func (m *Metrics) StatusPolled() {
	m.polls.Inc()
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
