package app

import (
	"context"
	"log"

	"github.com/hashicorp/go-multierror"
	"github.com/piraces/feedcache/pkg/metrics"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// HandlerGetFeed loads the remote feed and keeps the local cache up to date with
// it. When the remote feed can't be loaded the cached one is served instead.
type HandlerGetFeed struct {
	remote FeedLoader
	local  FeedLoader
	cache  FeedCache
}

func NewHandlerGetFeed(remote FeedLoader, local FeedLoader, cache FeedCache) *HandlerGetFeed {
	return &HandlerGetFeed{
		remote: remote,
		local:  local,
		cache:  cache,
	}
}

func (h *HandlerGetFeed) Handle(ctx context.Context) ([]feed.Image, error) {
	images, remoteErr := waitForLoad(ctx, h.remote)
	if remoteErr == nil {
		h.save(images)
		return images, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.Printf("[WARN] failure to load the remote feed, falling back to the cache: %v", remoteErr)

	images, localErr := waitForLoad(ctx, h.local)
	if localErr != nil {
		var resultErr error
		resultErr = multierror.Append(resultErr, errors.Wrap(remoteErr, "error loading the remote feed"))
		resultErr = multierror.Append(resultErr, errors.Wrap(localErr, "error loading the cached feed"))
		return nil, resultErr
	}

	return images, nil
}

// save doesn't wait for the store, failures are only logged.
func (h *HandlerGetFeed) save(images []feed.Image) {
	h.cache.Save(images, func(err error) {
		if err != nil {
			log.Printf("[ERROR] failure to save the feed into the cache: %v", err)
			metrics.AppErrors.With(prometheus.Labels{"type": "CACHE_SAVE"}).Inc()
			return
		}
		log.Printf("[DEBUG] saved %d images into the cache", len(images))
	})
}

type loadResult struct {
	images []feed.Image
	err    error
}

// waitForLoad blocks until the loader completes or ctx is done. A completion that
// arrives after ctx is done is discarded.
func waitForLoad(ctx context.Context, loader FeedLoader) ([]feed.Image, error) {
	results := make(chan loadResult, 1)
	loader.Load(func(images []feed.Image, err error) {
		results <- loadResult{images: images, err: err}
	})

	select {
	case result := <-results:
		return result.images, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
