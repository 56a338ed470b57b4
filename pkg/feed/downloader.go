package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

const maxResponseSize = 10 << 20

// Response is a fully read remote response. Mappers decide whether its status
// and body are acceptable.
type Response struct {
	StatusCode int
	Body       []byte
}

type Downloader struct {
	client *http.Client
}

func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 2 {
					return errors.New("stopped after 2 redirects")
				}
				return nil
			},
			Timeout: 30 * time.Second,
		},
	}
}

// Download only fails on transport errors; any status code is returned as is.
func (d *Downloader) Download(ctx context.Context, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("User-Agent", "feedcache")

	resp, err := d.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Response{}, err
	}

	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}
