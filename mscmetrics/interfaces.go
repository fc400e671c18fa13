// Package mscmetrics provides Prometheus-compatible metrics for the
// container: a scrape registry for in-process HTTP exposition, and a
// remote-write push client for environments fronted by a
// VictoriaMetrics-style collector instead.
//
// Grounded on metrics/interfaces.go, metrics/scrape.go, metrics/metrics.go
// (push.go) in full: the Gauge/Counter/GaugeVec/CounterVec/Registry
// interface split, the ScrapeRegistry Prometheus-registry wrapper, and the
// Client remote-write implementation are kept verbatim in shape; only the
// metric names and the collector (ControllerCollector, in collector.go) are
// new.
package mscmetrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge is a metric that represents a single numerical value that can go
// up and down.
type Gauge interface {
	Set(float64)
}

// Counter is a metric that represents a single monotonically increasing
// counter.
type Counter interface {
	Inc()
	Add(float64)
}

// GaugeVec is a Gauge with labels.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
}

// CounterVec is a Counter with labels.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates and registers metrics, abstracting over scrape vs. push
// delivery.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounter(opts prometheus.CounterOpts) (Counter, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}
