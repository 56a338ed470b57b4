package ports

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCacheTimerRunsOnStartAndPeriodically(t *testing.T) {
	handler := &validateCacheHandlerMock{}
	timer := NewValidateCacheTimer(handler, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		timer.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return handler.calls.Load() >= 3
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not stop after the context was cancelled")
	}
}

func TestValidateCacheTimerStopsWhenContextIsDone(t *testing.T) {
	handler := &validateCacheHandlerMock{}
	timer := NewValidateCacheTimer(handler, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	timer.Run(ctx)

	assert.Equal(t, int32(1), handler.calls.Load())
}

type validateCacheHandlerMock struct {
	calls atomic.Int32
}

func (m *validateCacheHandlerMock) Handle() {
	m.calls.Add(1)
}
