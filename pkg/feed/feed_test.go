package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domainfeed "github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSONFeed = `{"items":[
	{"id":"4a9ae5ea-5bde-4a6f-b6d6-60ef5e4c47e1","description":"a description","location":"a location","image":"https://images.example/1.png"},
	{"id":"73b1e5a0-2f0c-4ab4-8f7c-3d6c8b4c5a11","image":"https://images.example/2.png"}
]}`

func TestDownloaderReturnsAnyStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "feedcache", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("body"))
	}))
	defer server.Close()

	response, err := NewDownloader().Download(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, response.StatusCode)
	assert.Equal(t, []byte("body"), response.Body)
}

func TestRemoteFeedLoaderDeliversImages(t *testing.T) {
	server := newFeedServer(t, http.StatusOK, sampleJSONFeed, nil)

	images, err := load(t, NewRemoteFeedLoader(server.URL, NewDownloader(), NewJSONMapper(), nil))

	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://images.example/1.png", images[0].URL().String())
	assert.Equal(t, "https://images.example/2.png", images[1].URL().String())
}

func TestRemoteFeedLoaderDeliversConnectivityErrorOnTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := load(t, NewRemoteFeedLoader(url, NewDownloader(), NewJSONMapper(), nil))

	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestRemoteFeedLoaderDeliversInvalidDataOnNon200Response(t *testing.T) {
	for _, status := range []int{201, 300, 400, 500} {
		server := newFeedServer(t, status, sampleJSONFeed, nil)

		_, err := load(t, NewRemoteFeedLoader(server.URL, NewDownloader(), NewJSONMapper(), nil))

		assert.ErrorIs(t, err, ErrInvalidData, "status %d", status)
	}
}

func TestRemoteFeedLoaderServesCachedResponses(t *testing.T) {
	var requests atomic.Int32
	server := newFeedServer(t, http.StatusOK, sampleJSONFeed, &requests)
	responseCache := newResponseCacheStub()
	loader := NewRemoteFeedLoader(server.URL, NewDownloader(), NewJSONMapper(), responseCache)

	first, err := load(t, loader)
	require.NoError(t, err)
	second, err := load(t, loader)
	require.NoError(t, err)

	assert.Equal(t, int32(1), requests.Load())
	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}

func TestRemoteFeedLoaderDoesNotCacheFailedResponses(t *testing.T) {
	var requests atomic.Int32
	server := newFeedServer(t, http.StatusInternalServerError, "", &requests)
	loader := NewRemoteFeedLoader(server.URL, NewDownloader(), NewJSONMapper(), newResponseCacheStub())

	_, err := load(t, loader)
	assert.ErrorIs(t, err, ErrInvalidData)
	_, err = load(t, loader)
	assert.ErrorIs(t, err, ErrInvalidData)

	assert.Equal(t, int32(2), requests.Load())
}

func newFeedServer(t *testing.T, status int, body string, requests *atomic.Int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func load(t *testing.T, loader *RemoteFeedLoader) ([]domainfeed.Image, error) {
	t.Helper()

	type result struct {
		images []domainfeed.Image
		err    error
	}

	results := make(chan result, 1)
	loader.Load(func(images []domainfeed.Image, err error) {
		results <- result{images: images, err: err}
	})

	select {
	case r := <-results:
		return r.images, r.err
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the remote loader")
		return nil, nil
	}
}

type responseCacheStub struct {
	lock   sync.Mutex
	values map[string]string
}

func newResponseCacheStub() *responseCacheStub {
	return &responseCacheStub{values: make(map[string]string)}
}

func (c *responseCacheStub) Get(ctx context.Context, key string) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	value, ok := c.values[key]
	if !ok {
		return "", errors.New("value not found")
	}
	return value, nil
}

func (c *responseCacheStub) Set(ctx context.Context, key string, value string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.values[key] = value
	return nil
}
