// Package middleware provides HTTP middleware for the clipforge API.
//
// It includes:
//   - Structured request logging with log-injection sanitization
//   - Prometheus request metrics with low-cardinality path labels
//   - Configurable filtering for health check endpoints
package middleware
