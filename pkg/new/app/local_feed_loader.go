package app

import (
	"log"
	"sync/atomic"

	"github.com/piraces/feedcache/pkg/metrics"
	"github.com/piraces/feedcache/pkg/new/domain/cache"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/prometheus/client_golang/prometheus"
)

// LocalFeedLoader applies the cache policy on top of a FeedStore. It never knows
// which backend it talks to.
//
// Once Close has been called, completions of store operations that were still in
// flight are dropped: the caller is not notified and no follow-up operation is issued.
type LocalFeedLoader struct {
	store       FeedStore
	currentTime CurrentTimeProvider
	released    atomic.Bool
}

func NewLocalFeedLoader(store FeedStore, currentTime CurrentTimeProvider) *LocalFeedLoader {
	return &LocalFeedLoader{
		store:       store,
		currentTime: currentTime,
	}
}

// Close releases the loader. It does not close the store.
func (l *LocalFeedLoader) Close() {
	l.released.Store(true)
}

func (l *LocalFeedLoader) alive() bool {
	return !l.released.Load()
}

func (l *LocalFeedLoader) Load(completion func([]feed.Image, error)) {
	if completion == nil {
		completion = func([]feed.Image, error) {}
	}

	l.store.Retrieve(func(result cache.RetrievalResult) {
		if !l.alive() {
			return
		}

		if err := result.Err(); err != nil {
			countLoad("error")
			completion(nil, err)
			return
		}

		cached, ok := result.Found()
		if !ok {
			countLoad("empty")
			completion([]feed.Image{}, nil)
			return
		}

		if !cache.IsValid(l.currentTime.GetCurrentTime(), cached.Timestamp) {
			countLoad("stale")
			completion([]feed.Image{}, nil)
			return
		}

		countLoad("fresh")
		completion(cache.ToImages(cached.Images), nil)
	})
}

func (l *LocalFeedLoader) Save(images []feed.Image, completion func(error)) {
	if completion == nil {
		completion = func(error) {}
	}

	l.store.Delete(func(err error) {
		if !l.alive() {
			return
		}

		if err != nil {
			completion(err)
			return
		}

		l.insert(images, completion)
	})
}

func (l *LocalFeedLoader) insert(images []feed.Image, completion func(error)) {
	l.store.Insert(cache.NewLocalImages(images), l.currentTime.GetCurrentTime(), func(err error) {
		if !l.alive() {
			return
		}
		completion(err)
	})
}

// Validate deletes the cache when it can't be read or is no longer valid. Cleanup
// failures are only logged.
func (l *LocalFeedLoader) Validate() {
	l.store.Retrieve(func(result cache.RetrievalResult) {
		if !l.alive() {
			return
		}

		if err := result.Err(); err != nil {
			log.Printf("[WARN] feed cache can't be retrieved, deleting it: %v", err)
			l.deleteCache()
			return
		}

		cached, ok := result.Found()
		if ok && !cache.IsValid(l.currentTime.GetCurrentTime(), cached.Timestamp) {
			log.Printf("[DEBUG] feed cache written at %s is stale, deleting it", cached.Timestamp)
			l.deleteCache()
		}
	})
}

func (l *LocalFeedLoader) deleteCache() {
	metrics.CacheValidationDeletions.Inc()
	l.store.Delete(func(err error) {
		if err != nil {
			log.Printf("[WARN] failure to delete invalid feed cache: %v", err)
			metrics.AppErrors.With(prometheus.Labels{"type": "CACHE_CLEANUP"}).Inc()
		}
	})
}

func countLoad(result string) {
	metrics.CacheLoads.With(prometheus.Labels{"result": result}).Inc()
}
