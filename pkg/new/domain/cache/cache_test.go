package cache_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/piraces/feedcache/pkg/new/domain/cache"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagesSurviveConversionToLocalAndBack(t *testing.T) {
	description, location := "description", "location"
	images := []feed.Image{
		feed.NewImage(uuid.New(), &description, &location, feed.MustNewAddress("https://images.example/1.png")),
		feed.NewImage(uuid.New(), nil, nil, feed.MustNewAddress("https://images.example/2.png")),
		feed.NewImage(uuid.New(), nil, &location, feed.MustNewAddress("https://images.example/3.png")),
	}

	roundTripped := cache.ToImages(cache.NewLocalImages(images))

	require.Len(t, roundTripped, len(images))
	for i := range images {
		assert.True(t, images[i].Equal(roundTripped[i]), "image %d", i)
	}
}

func TestConversionOfEmptyListIsEmpty(t *testing.T) {
	assert.Empty(t, cache.NewLocalImages(nil))
	assert.Empty(t, cache.ToImages(nil))
}

func TestRetrievalResult(t *testing.T) {
	empty := cache.NewEmptyRetrieval()
	assert.True(t, empty.IsEmpty())
	assert.NoError(t, empty.Err())
	_, ok := empty.Found()
	assert.False(t, ok)

	cached := cache.CachedFeed{Timestamp: time.Now()}
	found := cache.NewFoundRetrieval(cached)
	assert.False(t, found.IsEmpty())
	assert.NoError(t, found.Err())
	got, ok := found.Found()
	assert.True(t, ok)
	assert.Equal(t, cached, got)

	failed := cache.NewFailedRetrieval(errors.New("disk on fire"))
	assert.False(t, failed.IsEmpty())
	assert.EqualError(t, failed.Err(), "disk on fire")
	_, ok = failed.Found()
	assert.False(t, ok)
}

func TestCorruptedCacheErrorIsDistinguishable(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := errors.Wrap(cache.NewCorruptedCacheError(cause), "error reading cache")

	var corrupted cache.CorruptedCacheError
	require.ErrorAs(t, err, &corrupted)
	assert.ErrorIs(t, err, cause)
}
