// Package memory configures Go's runtime memory limit in containerized
// environments.
//
// When running under Kubernetes or another container orchestrator, Go
// applications can be OOM-killed if they exceed their memory limits. Unlike
// GOMAXPROCS, which Go detects from cgroup CPU limits automatically,
// GOMEMLIMIT must be configured explicitly. The ratio reserved outside the
// Go heap covers the ffmpeg child processes and their raw-frame pipes.
//
// Call [ConfigureFromEnv] early in main(), before significant allocations.
// It honors GOMEMLIMIT directly, or derives a limit from MEMORY_LIMIT (the
// Downward API value) scaled by MEMORY_RATIO.
package memory
