// Package metrics provides Prometheus instrumentation for clipforge.
//
// All metrics are prefixed with "clipforge_" to avoid naming collisions with
// other applications, and are registered with the default registry via
// promauto. To expose them, mount promhttp.Handler() on your metrics
// endpoint:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Render Metrics
//
//   - RendersTotal: Counter of renders by terminal state (done/failed/cancelled)
//   - RenderDuration: Histogram of stage duration (video/audio/mux)
//   - RendersActive: Gauge of render sessions in flight
//   - FramesEncodedTotal: Counter of frames written to the encoder
//   - BlankFramesTotal: Counter of synthesized gap frames
//   - FrameUnderrunsTotal: Counter of decoder underruns
//   - PaddedFramesTotal: Counter of blank frames written to cover underruns
//   - ScratchFreeBytes: Gauge of free space on candidate scratch volumes
//
// ## Probe and Database Metrics
//
//   - ProbesTotal: Counter of ffprobe invocations by status
//   - DBQueryTotal / DBQueryDuration: render-history query instrumentation
//
// # Recording Metrics
//
// Import this package and use the exported metric variables:
//
//	metrics.FramesEncodedTotal.Inc()
//	metrics.RenderDuration.WithLabelValues("video").Observe(42.5)
//	metrics.ScratchFreeBytes.WithLabelValues("temp").Set(2 << 40)
package metrics
