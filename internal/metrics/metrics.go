package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipforge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Render metrics
var (
	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_renders_total",
			Help: "Total number of renders by terminal state",
		},
		[]string{"state"}, // "done", "failed", "cancelled"
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_render_duration_seconds",
			Help:    "Wall-clock duration of render stages in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"stage"}, // "video", "audio", "mux"
	)

	RendersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipforge_renders_active",
			Help: "Number of render sessions currently running",
		},
	)

	FramesEncodedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_frames_encoded_total",
			Help: "Total number of frames written to the encoder",
		},
	)

	BlankFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_blank_frames_total",
			Help: "Total number of synthesized blank frames (gaps in the timeline)",
		},
	)

	FrameUnderrunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_frame_underruns_total",
			Help: "Total number of segments where the decoder delivered fewer frames than planned",
		},
	)

	PaddedFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_padded_frames_total",
			Help: "Total number of blank frames written to pad decoder underruns",
		},
	)

	ScratchFreeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clipforge_scratch_free_bytes",
			Help: "Free space observed on candidate scratch volumes in bytes",
		},
		[]string{"volume"}, // "destination", "temp"
	)
)

// Probe metrics
var (
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_probes_total",
			Help: "Total number of ffprobe invocations",
		},
		[]string{"status"}, // "ok", "error"
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Build info
var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clipforge_build_info",
			Help: "Build information",
		},
		[]string{"version", "commit", "date"},
	)
)
