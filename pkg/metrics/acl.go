package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ACLMetrics provides observability for the permission engine.
//
// Implementations collect metrics about resolution throughput, policy
// cache effectiveness, parse failures, and mutation outcomes.
//
// This interface is optional - components accept a nil ACLMetrics and
// proceed without collection (zero overhead).
type ACLMetrics interface {
	// RecordResolution records a completed permission resolution with its
	// duration and outcome.
	RecordResolution(duration time.Duration, err error)

	// RecordCacheHit records a policy cache hit.
	RecordCacheHit()

	// RecordCacheMiss records a policy cache miss (load from disk).
	RecordCacheMiss()

	// RecordParseFailure records a policy file that failed to parse and
	// was treated as contributing zero rules.
	RecordParseFailure(directory string)

	// RecordMutation records a completed grant/revoke operation with its
	// action name, duration, and outcome.
	RecordMutation(action string, duration time.Duration, err error)

	// SetCachedPolicies updates the count of policy files currently held
	// by the cache.
	SetCachedPolicies(count int)

	// RecordDroppedEvent records a change-feed event dropped because a
	// subscriber's buffer was full.
	RecordDroppedEvent()
}

// aclMetrics is the Prometheus implementation of ACLMetrics.
type aclMetrics struct {
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	parseFailures      *prometheus.CounterVec
	mutationsTotal     *prometheus.CounterVec
	mutationDuration   *prometheus.HistogramVec
	cachedPolicies     prometheus.Gauge
	droppedEvents      prometheus.Counter
}

// NewACLMetrics creates a Prometheus-backed ACLMetrics instance.
//
// Returns nil when metrics are not enabled (InitRegistry not called);
// callers treat a nil instance as a no-op.
func NewACLMetrics() ACLMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)

	return &aclMetrics{
		resolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aclfs",
			Subsystem: "acl",
			Name:      "resolutions_total",
			Help:      "Total permission resolutions by outcome",
		}, []string{"outcome"}),

		resolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aclfs",
			Subsystem: "acl",
			Name:      "resolution_duration_seconds",
			Help:      "Permission resolution latency",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
		}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aclfs",
			Subsystem: "policy_cache",
			Name:      "hits_total",
			Help:      "Policy cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aclfs",
			Subsystem: "policy_cache",
			Name:      "misses_total",
			Help:      "Policy cache misses (loads from disk)",
		}),

		parseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aclfs",
			Subsystem: "policy_cache",
			Name:      "parse_failures_total",
			Help:      "Policy files that failed to parse, by directory",
		}, []string{"directory"}),

		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aclfs",
			Subsystem: "acl",
			Name:      "mutations_total",
			Help:      "Total grant/revoke operations by action and outcome",
		}, []string{"action", "outcome"}),

		mutationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aclfs",
			Subsystem: "acl",
			Name:      "mutation_duration_seconds",
			Help:      "Grant/revoke latency by action",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"action"}),

		cachedPolicies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "aclfs",
			Subsystem: "policy_cache",
			Name:      "entries",
			Help:      "Policy files currently cached",
		}),

		droppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aclfs",
			Subsystem: "feed",
			Name:      "dropped_events_total",
			Help:      "Change-feed events dropped due to full subscriber buffers",
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *aclMetrics) RecordResolution(duration time.Duration, err error) {
	m.resolutionsTotal.WithLabelValues(outcome(err)).Inc()
	m.resolutionDuration.Observe(duration.Seconds())
}

func (m *aclMetrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

func (m *aclMetrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

func (m *aclMetrics) RecordParseFailure(directory string) {
	m.parseFailures.WithLabelValues(directory).Inc()
}

func (m *aclMetrics) RecordMutation(action string, duration time.Duration, err error) {
	m.mutationsTotal.WithLabelValues(action, outcome(err)).Inc()
	m.mutationDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func (m *aclMetrics) SetCachedPolicies(count int) {
	m.cachedPolicies.Set(float64(count))
}

func (m *aclMetrics) RecordDroppedEvent() {
	m.droppedEvents.Inc()
}
