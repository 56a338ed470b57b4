package feed

import (
	"context"
	"log"
	"time"

	"github.com/piraces/feedcache/pkg/metrics"
	domainfeed "github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const loadTimeout = time.Minute

var (
	ErrConnectivity = errors.New("connectivity error")
	ErrInvalidData  = errors.New("invalid data")
)

// Mapper turns a remote response into images. It returns ErrInvalidData when the
// response can't be used.
type Mapper interface {
	Map(response Response) ([]domainfeed.Image, error)
}

type ResponseCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
}

type RemoteFeedLoader struct {
	url        string
	downloader *Downloader
	mapper     Mapper
	cache      ResponseCache
}

// NewRemoteFeedLoader creates a loader for url. The response cache is optional.
func NewRemoteFeedLoader(url string, downloader *Downloader, mapper Mapper, cache ResponseCache) *RemoteFeedLoader {
	return &RemoteFeedLoader{
		url:        url,
		downloader: downloader,
		mapper:     mapper,
		cache:      cache,
	}
}

// Load downloads and maps the remote feed on a separate goroutine.
func (l *RemoteFeedLoader) Load(completion func([]domainfeed.Image, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		images, err := l.load(ctx)
		if completion != nil {
			completion(images, err)
		}
	}()
}

func (l *RemoteFeedLoader) load(ctx context.Context) ([]domainfeed.Image, error) {
	response, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	images, err := l.mapper.Map(response)
	if err != nil {
		return nil, err
	}

	log.Printf("[DEBUG] loaded %d images from %s", len(images), l.url)
	return images, nil
}

func (l *RemoteFeedLoader) fetch(ctx context.Context) (Response, error) {
	if l.cache != nil {
		body, err := l.cache.Get(ctx, l.url)
		if err == nil {
			metrics.CacheHits.Inc()
			return Response{StatusCode: 200, Body: []byte(body)}, nil
		}
		log.Printf("[DEBUG] entry not found in cache: %v", err)
		metrics.CacheMiss.Inc()
	}

	response, err := l.downloader.Download(ctx, l.url)
	if err != nil {
		log.Printf("[WARN] failure to download %s: %v", l.url, err)
		return Response{}, errors.Wrap(ErrConnectivity, err.Error())
	}

	if l.cache != nil && response.StatusCode == 200 {
		if err := l.cache.Set(ctx, l.url, string(response.Body)); err != nil {
			log.Printf("[ERROR] failure to store into cache feed: %v", err)
			metrics.AppErrors.With(prometheus.Labels{"type": "CACHE_SET"}).Inc()
		}
	}

	return response, nil
}
