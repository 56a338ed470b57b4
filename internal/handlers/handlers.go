package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/piraces/feedcache/pkg/metrics"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
)

type FeedHandler interface {
	Handle(ctx context.Context) ([]feed.Image, error)
}

type ValidateCacheHandler interface {
	Handle()
}

type ImageEntry struct {
	ID          string  `json:"id"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	URL         string  `json:"url"`
}

type ErrorEntry struct {
	Error string `json:"error"`
}

// HandleFeed serves the remote feed, falling back to the cached one.
func HandleFeed(w http.ResponseWriter, r *http.Request, handler FeedHandler) {
	metrics.FeedRequests.Inc()

	images, err := handler.Handle(r.Context())
	if err != nil {
		log.Printf("[ERROR] failure to load the feed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorEntry{Error: "feed unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, toEntries(images))
}

// HandleCachedFeed serves the cached feed only. An empty or stale cache is an
// empty list.
func HandleCachedFeed(w http.ResponseWriter, r *http.Request, handler FeedHandler) {
	metrics.CachedFeedRequests.Inc()

	images, err := handler.Handle(r.Context())
	if err != nil {
		log.Printf("[ERROR] failure to load the cached feed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorEntry{Error: "cached feed unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, toEntries(images))
}

func HandleValidateCache(w http.ResponseWriter, r *http.Request, handler ValidateCacheHandler) {
	metrics.ValidateRequests.Inc()

	handler.Handle()
	w.WriteHeader(http.StatusAccepted)
}

func toEntries(images []feed.Image) []ImageEntry {
	entries := make([]ImageEntry, 0, len(images))
	for _, image := range images {
		entry := ImageEntry{
			ID:  image.ID().String(),
			URL: image.URL().String(),
		}
		if description, ok := image.Description(); ok {
			entry.Description = &description
		}
		if location, ok := image.Location(); ok {
			entry.Location = &location
		}
		entries = append(entries, entry)
	}
	return entries
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	response, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}
