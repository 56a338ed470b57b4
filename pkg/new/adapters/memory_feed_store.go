package adapters

import (
	"log"
	"sync"
	"time"

	"github.com/piraces/feedcache/pkg/metrics"
	"github.com/piraces/feedcache/pkg/new/domain/cache"
)

const memoryBackend = "memory"

// InMemoryFeedStore keeps the cached feed in process memory. Completions are
// delivered synchronously once the lock has been released.
type InMemoryFeedStore struct {
	cached     *cache.CachedFeed
	cachedLock sync.RWMutex
}

func NewInMemoryFeedStore() *InMemoryFeedStore {
	return &InMemoryFeedStore{}
}

func (s *InMemoryFeedStore) Retrieve(completion func(cache.RetrievalResult)) {
	result := s.retrieve()
	metrics.ObserveStoreOperation(memoryBackend, "retrieve", nil)
	complete(completion, result)
}

func (s *InMemoryFeedStore) Insert(images []cache.LocalImage, timestamp time.Time, completion func(error)) {
	s.cachedLock.Lock()
	log.Printf("[DEBUG] saving %d images in memory", len(images))
	s.cached = &cache.CachedFeed{
		Images:    copyLocalImages(images),
		Timestamp: timestamp,
	}
	s.cachedLock.Unlock()

	metrics.ObserveStoreOperation(memoryBackend, "insert", nil)
	complete(completion, nil)
}

func (s *InMemoryFeedStore) Delete(completion func(error)) {
	s.cachedLock.Lock()
	s.cached = nil
	s.cachedLock.Unlock()

	metrics.ObserveStoreOperation(memoryBackend, "delete", nil)
	complete(completion, nil)
}

func (s *InMemoryFeedStore) retrieve() cache.RetrievalResult {
	s.cachedLock.RLock()
	defer s.cachedLock.RUnlock()

	if s.cached == nil {
		return cache.NewEmptyRetrieval()
	}

	return cache.NewFoundRetrieval(cache.CachedFeed{
		Images:    copyLocalImages(s.cached.Images),
		Timestamp: s.cached.Timestamp,
	})
}

func copyLocalImages(images []cache.LocalImage) []cache.LocalImage {
	return append(make([]cache.LocalImage, 0, len(images)), images...)
}
