package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	FeedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedcache_processed_feed_ops_total",
		Help: "The total number of processed feed requests",
	})
	CachedFeedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedcache_processed_cached_feed_ops_total",
		Help: "The total number of processed cached feed requests",
	})
	ValidateRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedcache_processed_validate_ops_total",
		Help: "The total number of processed cache validation requests",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedcache_remote_cache_hits_ops_total",
		Help: "The total number of remote responses served from the response cache",
	})
	CacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedcache_remote_cache_miss_ops_total",
		Help: "The total number of remote responses missing from the response cache",
	})
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedcache_store_operations_total",
		Help: "Number of feed store operations by backend, operation and result.",
	}, []string{"backend", "operation", "result"})
	CacheLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedcache_cache_loads_total",
		Help: "Number of local feed loads by outcome.",
	}, []string{"result"})
	CacheValidationDeletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedcache_cache_validation_deletions_total",
		Help: "Number of caches deleted because they were stale or unreadable",
	})
	AppErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedcache_errors_total",
		Help: "Number of errors for the app.",
	}, []string{"type"})
)

// ObserveStoreOperation counts a finished store operation.
func ObserveStoreOperation(backend, operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	StoreOperations.With(prometheus.Labels{"backend": backend, "operation": operation, "result": result}).Inc()
}
