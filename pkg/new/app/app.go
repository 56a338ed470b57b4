package app

import (
	"time"

	"github.com/piraces/feedcache/pkg/new/domain/cache"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
)

type App struct {
	GetFeed       *HandlerGetFeed
	GetCachedFeed *HandlerGetCachedFeed
	ValidateCache *HandlerValidateCache
}

// FeedStore persists a single cached feed. Every completion is called exactly once,
// possibly on another goroutine; nil completions are allowed. Completions run after
// the store has released its locks, so a slow completion only delays the delivery of
// later completions, never the operations themselves.
type FeedStore interface {
	Retrieve(completion func(cache.RetrievalResult))
	Insert(images []cache.LocalImage, timestamp time.Time, completion func(error))
	Delete(completion func(error))
}

// FeedLoader is implemented by both the remote and the local loader.
type FeedLoader interface {
	Load(completion func([]feed.Image, error))
}

type FeedCache interface {
	Save(images []feed.Image, completion func(error))
}

type CurrentTimeProvider interface {
	GetCurrentTime() time.Time
}

type CurrentTimeProviderFunc func() time.Time

func (f CurrentTimeProviderFunc) GetCurrentTime() time.Time {
	return f()
}

type SystemTimeProvider struct {
}

func NewSystemTimeProvider() *SystemTimeProvider {
	return &SystemTimeProvider{}
}

func (p *SystemTimeProvider) GetCurrentTime() time.Time {
	return time.Now()
}
