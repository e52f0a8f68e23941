package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DurationBuckets: 100ms to 30min, zfs destroy on large batches is slow
var DurationBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800}

// NewDurationHistogram creates a histogram for tracking durations in seconds
func NewDurationHistogram(name, help string, labels prometheus.Labels) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        name,
		Help:        help,
		Buckets:     DurationBuckets,
		ConstLabels: labels,
	})
}

// NewCounter creates a standard counter metric
func NewCounter(name, help string, labels prometheus.Labels) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	})
}

// NewCounterVec creates a labeled counter
func NewCounterVec(name, help string, labels prometheus.Labels, variable []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, variable)
}

// NewGauge creates a standard gauge metric
func NewGauge(name, help string, labels prometheus.Labels) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	})
}

// NewGaugeVec creates a labeled gauge
func NewGaugeVec(name, help string, labels prometheus.Labels, variable []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, variable)
}
