// Package observability provides structured logging and metrics for the
// node provider and the gateway built on it.
//
// This package implements:
//   - zap logger construction from LOG_LEVEL / LOG_FORMAT
//   - Request ID and node role propagation into log fields
//   - Prometheus counters and histograms for node calls
package observability
