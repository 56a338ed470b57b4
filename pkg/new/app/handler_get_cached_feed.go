package app

import (
	"context"

	"github.com/piraces/feedcache/pkg/new/domain/feed"
)

type HandlerGetCachedFeed struct {
	local FeedLoader
}

func NewHandlerGetCachedFeed(local FeedLoader) *HandlerGetCachedFeed {
	return &HandlerGetCachedFeed{local: local}
}

func (h *HandlerGetCachedFeed) Handle(ctx context.Context) ([]feed.Image, error) {
	return waitForLoad(ctx, h.local)
}
