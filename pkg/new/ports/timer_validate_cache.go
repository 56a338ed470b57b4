package ports

import (
	"context"
	"log"
	"time"
)

type HandlerValidateCache interface {
	Handle()
}

// ValidateCacheTimer validates the cache on start and then periodically, so stale
// or corrupted data doesn't linger on disk.
type ValidateCacheTimer struct {
	handler  HandlerValidateCache
	interval time.Duration
}

func NewValidateCacheTimer(handler HandlerValidateCache, interval time.Duration) *ValidateCacheTimer {
	return &ValidateCacheTimer{handler: handler, interval: interval}
}

func (h *ValidateCacheTimer) Run(ctx context.Context) {
	for {
		log.Printf("[DEBUG] validating the feed cache")
		h.handler.Handle()

		select {
		case <-time.After(h.interval):
			continue
		case <-ctx.Done():
			return
		}
	}
}
