package main

import (
	"context"
	"log"

	"github.com/piraces/feedcache/pkg/new/adapters"
	"github.com/piraces/feedcache/pkg/new/app"
	"github.com/piraces/feedcache/pkg/new/domain/cache"
)

func defaultStorePath(backend string) string {
	switch backend {
	case "sqlite":
		return "db/feed-store.sqlite"
	default:
		return "db/feed-store.json"
	}
}

// OpenStore returns the configured store and a function releasing it.
func OpenStore(config Config) (app.FeedStore, func() error, error) {
	switch config.StoreBackend {
	case "sqlite":
		store, err := adapters.OpenSQLiteFeedStore(config.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		log.Print("[WARN] using the in-memory feed store, the cache won't survive restarts")
		return adapters.NewInMemoryFeedStore(), func() error { return nil }, nil
	default:
		log.Printf("[INFO] feed store file at %s", config.StorePath)
		store := adapters.NewFileFeedStore(config.StorePath)
		return store, store.Close, nil
	}
}

// checkStore fails if the store can't be read. A corrupted cache also fails the
// check until validation removes it.
func checkStore(ctx context.Context, store app.FeedStore) error {
	results := make(chan cache.RetrievalResult, 1)
	store.Retrieve(func(result cache.RetrievalResult) {
		results <- result
	})

	select {
	case result := <-results:
		return result.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
