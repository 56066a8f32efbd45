// Package workers sizes worker pools and encoder thread counts from the
// CPUs actually available to the process.
//
// runtime.NumCPU() reports the host CPU count even under container cgroup
// limits; GOMAXPROCS respects them. The helpers here use GOMAXPROCS so that
// software encodes inside a constrained container do not oversubscribe the
// CPU, and allow an explicit override via the RENDER_THREADS environment
// variable.
package workers
