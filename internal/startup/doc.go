// Package startup handles application initialization, configuration loading,
// toolchain checks, and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - DATA_DIR: Path for the job database and posters (default: /data)
//   - EXPORT_DIR: Path where rendered files land (default: /exports)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - FFMPEG_PATH / FFPROBE_PATH: Tool binaries (default: from PATH)
//   - SCRATCH_PREFERRED_GIB: Free space needed to place intermediates next
//     to the destination (default: 15)
//   - SCRATCH_MINIMUM_GIB: Free space below which renders refuse to start
//     (default: 10)
//   - DEFAULT_FPS / DEFAULT_VIDEO_CODEC: Overrides for the default render
//     settings
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Toolchain Check
//
// [Config.CheckToolchain] verifies ffmpeg and ffprobe run, and probes the
// encoder list for NVENC. A missing tool is fatal; missing NVENC downgrades
// hardware codecs to their software equivalents at render time.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via
// [GetBuildInfo]: Version, Commit, BuildTime, GoVersion.
package startup
