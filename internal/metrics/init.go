package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, state := range []string{"done", "failed", "cancelled"} {
		RendersTotal.WithLabelValues(state)
	}

	for _, stage := range []string{"video", "audio", "mux"} {
		RenderDuration.WithLabelValues(stage)
	}

	for _, vol := range []string{"destination", "temp"} {
		ScratchFreeBytes.WithLabelValues(vol)
	}

	for _, status := range []string{"ok", "error"} {
		ProbesTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "insert_job", "update_job", "list_jobs", "get_job"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
