// Package metrics holds the prometheus collectors for cache builds, the
// discovery job and mail delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	CacheBuilds         *prometheus.CounterVec
	CacheBuildPages     *prometheus.HistogramVec
	CacheReads          *prometheus.CounterVec
	DiscoveryRuns       *prometheus.CounterVec
	DiscoveryFacts      *prometheus.CounterVec
	DiscoveryDeferred   prometheus.Counter
	NotificationsSent   *prometheus.CounterVec
	MailFailures        prometheus.Counter
	CatalogRequestError *prometheus.CounterVec
}

// New registers all collectors on reg. A nil registerer skips registration,
// which keeps tests and optional wiring cheap.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasewatch_cache_builds_total",
			Help: "Cache convergence builds by list and result.",
		}, []string{"list", "result"}),
		CacheBuildPages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "releasewatch_cache_build_pages",
			Help:    "Catalog pages consumed per cache build.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}, []string{"list"}),
		CacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasewatch_cache_reads_total",
			Help: "Cached list reads by outcome (hit, miss).",
		}, []string{"list", "outcome"}),
		DiscoveryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasewatch_discovery_runs_total",
			Help: "Discovery job runs by job and result.",
		}, []string{"job", "result"}),
		DiscoveryFacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasewatch_discovery_facts_total",
			Help: "Refreshed release facts by classification.",
		}, []string{"classification"}),
		DiscoveryDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "releasewatch_discovery_deferred_total",
			Help: "Movies selected but deferred to a later run by the batch cap.",
		}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasewatch_notifications_sent_total",
			Help: "Notification log rows written by kind.",
		}, []string{"kind"}),
		MailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "releasewatch_mail_failures_total",
			Help: "Per-recipient mail send failures.",
		}),
		CatalogRequestError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "releasewatch_catalog_errors_total",
			Help: "Catalog request failures by operation.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CacheBuilds,
			m.CacheBuildPages,
			m.CacheReads,
			m.DiscoveryRuns,
			m.DiscoveryFacts,
			m.DiscoveryDeferred,
			m.NotificationsSent,
			m.MailFailures,
			m.CatalogRequestError,
		)
	}
	return m
}
