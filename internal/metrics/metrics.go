// Package metrics collects client-side Prometheus metrics for the gateway,
// the task cache and the mutation coordinator.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the interface the gateway and cache report through.
type Recorder interface {
	RecordRequest(method string, status int, duration time.Duration)
	RecordCacheRead(hit bool)
	RecordFetch(ok bool)
	RecordMutation(name string, outcome string)
}

// Mutation outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeRolledBack = "rolled_back"
)

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	cacheReads      *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	mutations       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_client_requests_total",
			Help: "API requests by method and status class",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "todo_client_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		cacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_client_cache_reads_total",
			Help: "Task cache reads by result",
		}, []string{"result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_client_fetches_total",
			Help: "Task list fetches by result",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_client_mutations_total",
			Help: "Optimistic mutations by name and outcome",
		}, []string{"mutation", "outcome"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.cacheReads,
		c.fetches,
		c.mutations,
	)

	return c
}

// RecordRequest records one gateway round trip; status 0 means no response.
func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, statusClass(status)).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

// RecordCacheRead records whether a read was served from cache.
func (c *Collector) RecordCacheRead(hit bool) {
	if hit {
		c.cacheReads.WithLabelValues("hit").Inc()
		return
	}
	c.cacheReads.WithLabelValues("miss").Inc()
}

// RecordFetch records the result of a list fetch.
func (c *Collector) RecordFetch(ok bool) {
	if ok {
		c.fetches.WithLabelValues("ok").Inc()
		return
	}
	c.fetches.WithLabelValues("error").Inc()
}

// RecordMutation records how a mutation settled.
func (c *Collector) RecordMutation(name string, outcome string) {
	c.mutations.WithLabelValues(name, outcome).Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, int, time.Duration) {}
func (Nop) RecordCacheRead(bool)                     {}
func (Nop) RecordFetch(bool)                         {}
func (Nop) RecordMutation(string, string)            {}
