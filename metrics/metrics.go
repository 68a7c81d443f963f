// Package metrics exposes the proxy's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors for one proxy instance.
// A nil *Metrics is valid and records nothing, so instrumentation call
// sites never need to guard.
type Metrics struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	networkFetches prometheus.Counter
	evictions      prometheus.Counter
	syncItems      *prometheus.CounterVec
	notifications  prometheus.Counter
}

// New creates the collectors and registers them on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offcache",
			Name:      "cache_hits_total",
			Help:      "Responses served from cache, by strategy.",
		}, []string{"strategy"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offcache",
			Name:      "cache_misses_total",
			Help:      "Cache lookups that found nothing, by strategy.",
		}, []string{"strategy"}),
		networkFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "offcache",
			Name:      "network_fetches_total",
			Help:      "Requests forwarded to the network.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "offcache",
			Name:      "evictions_total",
			Help:      "Cache entries removed by scheduled soft expiry.",
		}),
		syncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offcache",
			Name:      "sync_items_total",
			Help:      "Background sync work items, by task and outcome.",
		}, []string{"task", "outcome"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "offcache",
			Name:      "notifications_shown_total",
			Help:      "User notifications presented.",
		}),
	}
	reg.MustRegister(
		m.cacheHits,
		m.cacheMisses,
		m.networkFetches,
		m.evictions,
		m.syncItems,
		m.notifications,
	)
	return m
}

func (m *Metrics) CacheHit(strategy string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(strategy).Inc()
}

func (m *Metrics) CacheMiss(strategy string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(strategy).Inc()
}

func (m *Metrics) NetworkFetch() {
	if m == nil {
		return
	}
	m.networkFetches.Inc()
}

func (m *Metrics) Eviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Metrics) SyncItem(task, outcome string) {
	if m == nil {
		return
	}
	m.syncItems.WithLabelValues(task, outcome).Inc()
}

func (m *Metrics) NotificationShown() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}
