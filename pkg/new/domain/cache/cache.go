package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
)

// ErrStoreClosed is reported by stores for operations submitted after Close.
var ErrStoreClosed = errors.New("feed store is closed")

// LocalImage is the persisted counterpart of feed.Image. Stores only ever see this
// type so that the persisted shape can change independently of the domain.
type LocalImage struct {
	ID          uuid.UUID
	Description *string
	Location    *string
	URL         feed.Address
}

// CachedFeed is the single snapshot a store holds.
type CachedFeed struct {
	Images    []LocalImage
	Timestamp time.Time
}

func NewLocalImages(images []feed.Image) []LocalImage {
	result := make([]LocalImage, 0, len(images))
	for _, image := range images {
		local := LocalImage{
			ID:  image.ID(),
			URL: image.URL(),
		}
		if description, ok := image.Description(); ok {
			local.Description = &description
		}
		if location, ok := image.Location(); ok {
			local.Location = &location
		}
		result = append(result, local)
	}
	return result
}

func ToImages(locals []LocalImage) []feed.Image {
	result := make([]feed.Image, 0, len(locals))
	for _, local := range locals {
		result = append(result, feed.NewImage(local.ID, local.Description, local.Location, local.URL))
	}
	return result
}

// RetrievalResult is one of empty, found or failure.
type RetrievalResult struct {
	cached *CachedFeed
	err    error
}

func NewEmptyRetrieval() RetrievalResult {
	return RetrievalResult{}
}

func NewFoundRetrieval(cached CachedFeed) RetrievalResult {
	return RetrievalResult{cached: &cached}
}

func NewFailedRetrieval(err error) RetrievalResult {
	if err == nil {
		err = errors.New("unknown retrieval failure")
	}
	return RetrievalResult{err: err}
}

func (r RetrievalResult) Err() error {
	return r.err
}

func (r RetrievalResult) Found() (CachedFeed, bool) {
	if r.err != nil || r.cached == nil {
		return CachedFeed{}, false
	}
	return *r.cached, true
}

func (r RetrievalResult) IsEmpty() bool {
	return r.err == nil && r.cached == nil
}

func (r RetrievalResult) String() string {
	switch {
	case r.err != nil:
		return fmt.Sprintf("failure(%s)", r.err)
	case r.cached == nil:
		return "empty"
	default:
		return fmt.Sprintf("found(%d images, %s)", len(r.cached.Images), r.cached.Timestamp.Format(time.RFC3339))
	}
}

// CorruptedCacheError means persisted data exists but could not be decoded.
type CorruptedCacheError struct {
	cause error
}

func NewCorruptedCacheError(cause error) error {
	return CorruptedCacheError{cause: cause}
}

func (e CorruptedCacheError) Error() string {
	return fmt.Sprintf("corrupted feed cache: %s", e.cause)
}

func (e CorruptedCacheError) Unwrap() error {
	return e.cause
}
