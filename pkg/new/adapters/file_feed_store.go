package adapters

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/piraces/feedcache/pkg/metrics"
	"github.com/piraces/feedcache/pkg/new/adapters/queue"
	"github.com/piraces/feedcache/pkg/new/domain/cache"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
)

const fileBackend = "file"

// FileFeedStore keeps the cached feed as a single JSON document. Retrievals run
// concurrently, insertions and deletions run alone and in submission order.
type FileFeedStore struct {
	path  string
	queue *queue.OperationQueue
}

func NewFileFeedStore(path string) *FileFeedStore {
	return &FileFeedStore{
		path:  path,
		queue: queue.NewOperationQueue(),
	}
}

// Close waits for pending operations. Operations submitted afterwards fail with
// cache.ErrStoreClosed.
func (s *FileFeedStore) Close() error {
	s.queue.Close()
	return nil
}

func (s *FileFeedStore) Retrieve(completion func(cache.RetrievalResult)) {
	if !s.queue.Read(func() func() {
		result := s.retrieve()
		metrics.ObserveStoreOperation(fileBackend, "retrieve", result.Err())
		return func() {
			complete(completion, result)
		}
	}) {
		complete(completion, cache.NewFailedRetrieval(cache.ErrStoreClosed))
	}
}

func (s *FileFeedStore) Insert(images []cache.LocalImage, timestamp time.Time, completion func(error)) {
	if !s.queue.Write(func() func() {
		err := s.insert(images, timestamp)
		metrics.ObserveStoreOperation(fileBackend, "insert", err)
		return func() {
			complete(completion, err)
		}
	}) {
		complete(completion, cache.ErrStoreClosed)
	}
}

func (s *FileFeedStore) Delete(completion func(error)) {
	if !s.queue.Write(func() func() {
		err := s.delete()
		metrics.ObserveStoreOperation(fileBackend, "delete", err)
		return func() {
			complete(completion, err)
		}
	}) {
		complete(completion, cache.ErrStoreClosed)
	}
}

func (s *FileFeedStore) retrieve() cache.RetrievalResult {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cache.NewEmptyRetrieval()
		}
		return cache.NewFailedRetrieval(errors.Wrap(err, "error reading the cache file"))
	}

	var stored storedCache
	if err := json.Unmarshal(data, &stored); err != nil {
		return cache.NewFailedRetrieval(cache.NewCorruptedCacheError(err))
	}

	cached, err := stored.toCachedFeed()
	if err != nil {
		return cache.NewFailedRetrieval(cache.NewCorruptedCacheError(err))
	}

	return cache.NewFoundRetrieval(cached)
}

// insert writes the new document next to the old one and renames it into place,
// so a failed write leaves the previous cache untouched.
func (s *FileFeedStore) insert(images []cache.LocalImage, timestamp time.Time) error {
	stored, err := newStoredCache(images, timestamp)
	if err != nil {
		return errors.Wrap(err, "error preparing the cache")
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "error encoding the cache")
	}

	tmpPath := s.path + ".tmp"
	if err := writeFileSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "error writing the cache file")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "error replacing the cache file")
	}

	log.Printf("[DEBUG] saved %d images to %s", len(images), s.path)
	return nil
}

func (s *FileFeedStore) delete() error {
	if err := os.Remove(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrap(err, "error removing the cache file")
	}
	return nil
}

func writeFileSynced(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// storedCache is the on-disk document. It has exactly two top-level fields and
// no version; a document that doesn't match is reported as corrupted.
type storedCache struct {
	Feed      []storedImage `json:"feed"`
	Timestamp *time.Time    `json:"timestamp"`
}

type storedImage struct {
	ID          string  `json:"id"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	URL         string  `json:"url"`
}

// newStoredCache refuses text that isn't valid UTF-8, encoding/json would
// otherwise replace it and the cache would no longer round-trip.
func newStoredCache(images []cache.LocalImage, timestamp time.Time) (storedCache, error) {
	stored := storedCache{
		Feed:      make([]storedImage, 0, len(images)),
		Timestamp: &timestamp,
	}
	for i, image := range images {
		if !validText(image.Description) || !validText(image.Location) || !utf8.ValidString(image.URL.String()) {
			return storedCache{}, errors.Errorf("image at position %d has text that isn't valid UTF-8", i)
		}
		stored.Feed = append(stored.Feed, storedImage{
			ID:          image.ID.String(),
			Description: image.Description,
			Location:    image.Location,
			URL:         image.URL.String(),
		})
	}
	return stored, nil
}

func validText(s *string) bool {
	return s == nil || utf8.ValidString(*s)
}

func (c storedCache) toCachedFeed() (cache.CachedFeed, error) {
	if c.Timestamp == nil {
		return cache.CachedFeed{}, errors.New("missing timestamp")
	}
	if c.Feed == nil {
		return cache.CachedFeed{}, errors.New("missing feed")
	}

	images := make([]cache.LocalImage, 0, len(c.Feed))
	for i, stored := range c.Feed {
		image, err := stored.toLocalImage()
		if err != nil {
			return cache.CachedFeed{}, errors.Wrapf(err, "invalid image at position %d", i)
		}
		images = append(images, image)
	}

	return cache.CachedFeed{Images: images, Timestamp: *c.Timestamp}, nil
}

func (i storedImage) toLocalImage() (cache.LocalImage, error) {
	id, err := uuid.Parse(i.ID)
	if err != nil {
		return cache.LocalImage{}, errors.Wrap(err, "invalid id")
	}

	url, err := feed.NewAddress(i.URL)
	if err != nil {
		return cache.LocalImage{}, errors.Wrap(err, "invalid url")
	}

	return cache.LocalImage{
		ID:          id,
		Description: i.Description,
		Location:    i.Location,
		URL:         url,
	}, nil
}

func complete[T any](completion func(T), value T) {
	if completion != nil {
		completion(value)
	}
}
