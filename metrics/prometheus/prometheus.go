// Package prometheus exports docgo store metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := docgoprom.NewCollector(reg)
//	store, _ := docgo.OpenCollection(ctx, "articles", "./data", docgo.WithMetricsCollector(mc))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prometheus

import (
	"time"

	"github.com/hupe1980/docgo"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docgo"

// Collector implements docgo.MetricsCollector.
type Collector struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	deleted    prometheus.Counter
	results    *prometheus.HistogramVec
	exported   *prometheus.CounterVec
}

// Compile time check to ensure Collector satisfies the docgo.MetricsCollector interface.
var _ docgo.MetricsCollector = (*Collector)(nil)

// NewCollector creates a collector and registers it with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total store operations",
		}, []string{"op", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_deleted_total",
			Help:      "Total documents deleted",
		}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_results",
			Help:      "Number of documents returned per query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"op"}),
		exported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_exported_total",
			Help:      "Total documents exported",
		}, []string{"status"}),
	}

	reg.MustRegister(c.operations, c.latency, c.deleted, c.results, c.exported)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	c.operations.WithLabelValues(op, status(err)).Inc()
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordInsert implements docgo.MetricsCollector.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.observe("insert", d, err)
}

// RecordReplace implements docgo.MetricsCollector.
func (c *Collector) RecordReplace(d time.Duration, err error) {
	c.observe("replace", d, err)
}

// RecordDelete implements docgo.MetricsCollector.
func (c *Collector) RecordDelete(count int, d time.Duration, err error) {
	c.observe("delete", d, err)
	c.deleted.Add(float64(count))
}

// RecordNarrow implements docgo.MetricsCollector.
func (c *Collector) RecordNarrow(results int, d time.Duration, err error) {
	c.observe("narrow", d, err)
	if err == nil {
		c.results.WithLabelValues("narrow").Observe(float64(results))
	}
}

// RecordSearch implements docgo.MetricsCollector.
func (c *Collector) RecordSearch(results int, d time.Duration, err error) {
	c.observe("search", d, err)
	if err == nil {
		c.results.WithLabelValues("search").Observe(float64(results))
	}
}

// RecordExport implements docgo.MetricsCollector.
func (c *Collector) RecordExport(written, failed int, d time.Duration) {
	var err error
	if failed > 0 {
		err = errExportFailures
	}
	c.observe("export", d, err)
	c.exported.WithLabelValues("success").Add(float64(written))
	c.exported.WithLabelValues("error").Add(float64(failed))
}
