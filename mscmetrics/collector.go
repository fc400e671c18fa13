package mscmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/msc/service"
)

// ControllerLister supplies the live set of service controllers to
// collect metrics from, implemented by the container.
type ControllerLister interface {
	Controllers() []*service.Controller
}

// ControllerCollector is a prometheus.Collector computing container-wide
// gauges from a live snapshot of every installed controller at scrape
// time, rather than maintaining counters updated on every state
// transition: servicesUp, servicesFailed, unsatisfiedDependencies.
type ControllerCollector struct {
	lister ControllerLister

	servicesUp              *prometheus.Desc
	servicesFailed          *prometheus.Desc
	unsatisfiedDependencies *prometheus.Desc
}

// NewControllerCollector builds a collector reading from lister.
func NewControllerCollector(lister ControllerLister) *ControllerCollector {
	return &ControllerCollector{
		lister:                  lister,
		servicesUp:              prometheus.NewDesc("msc_services_up", "Number of service controllers currently UP.", nil, nil),
		servicesFailed:          prometheus.NewDesc("msc_services_failed", "Number of service controllers currently FAILED.", nil, nil),
		unsatisfiedDependencies: prometheus.NewDesc("msc_unsatisfied_dependencies_total", "Sum of unsatisfied dependency counts across all controllers.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.servicesUp
	ch <- c.servicesFailed
	ch <- c.unsatisfiedDependencies
}

// Collect implements prometheus.Collector.
func (c *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	var up, failed, unsatisfied float64
	for _, ctrl := range c.lister.Controllers() {
		snap := ctrl.Snapshot()
		switch snap.State {
		case service.StateUp:
			up++
		case service.StateFailed:
			failed++
		}
		unsatisfied += float64(snap.Unsatisfied)
	}

	ch <- prometheus.MustNewConstMetric(c.servicesUp, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(c.servicesFailed, prometheus.GaugeValue, failed)
	ch <- prometheus.MustNewConstMetric(c.unsatisfiedDependencies, prometheus.GaugeValue, unsatisfied)
}

// TransactionCounters are incremented by container.Container's Commit and
// Abort wrappers around txn.Transaction's Commit/Abort; kept
// separate from ControllerCollector since they're genuine monotonic
// counters, not recomputable from a point-in-time snapshot.
type TransactionCounters struct {
	Committed Counter
	Aborted   Counter
}

// NewTransactionCounters registers the two transaction-outcome counters
// against reg.
func NewTransactionCounters(reg Registry) (*TransactionCounters, error) {
	committed, err := reg.NewCounter(prometheus.CounterOpts{
		Name: "msc_transactions_committed_total",
		Help: "Total update transactions committed.",
	})
	if err != nil {
		return nil, err
	}
	aborted, err := reg.NewCounter(prometheus.CounterOpts{
		Name: "msc_transactions_aborted_total",
		Help: "Total update transactions aborted.",
	})
	if err != nil {
		return nil, err
	}
	return &TransactionCounters{Committed: committed, Aborted: aborted}, nil
}
