package vault

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	storeReadsTotal  prometheus.Counter
	retriesTotal     prometheus.Counter
	authTotal        prometheus.Counter

	// metricsOnce ensures metrics are only registered once.
	metricsOnce sync.Once

	// metricsRegistered indicates if metrics have been registered.
	metricsRegistered bool
)

// InitMetrics registers the Prometheus metrics for secret resolution.
// Call once at startup if metrics are enabled; safe to skip entirely.
func InitMetrics() {
	metricsOnce.Do(func() {
		cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "envault_cache_hits_total",
			Help: "Total number of secret fetches served from the TTL cache",
		})
		cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "envault_cache_misses_total",
			Help: "Total number of secret fetches that missed the TTL cache",
		})
		storeReadsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "envault_store_reads_total",
			Help: "Total number of read requests issued to the secret store",
		})
		retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "envault_store_retries_total",
			Help: "Total number of retried store requests after transient failures",
		})
		authTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "envault_auth_exchanges_total",
			Help: "Total number of username/password token exchanges performed",
		})
		metricsRegistered = true
	})
}

func countCacheHit() { incr(cacheHitsTotal) }

func countCacheMiss() { incr(cacheMissesTotal) }

func countStoreRead() { incr(storeReadsTotal) }

func countRetry() { incr(retriesTotal) }

func countAuth() { incr(authTotal) }

// incr is safe to call when metrics were never initialized.
func incr(c prometheus.Counter) {
	if metricsRegistered && c != nil {
		c.Inc()
	}
}
