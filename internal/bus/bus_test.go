package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/pkg/models"
)

func TestPublishAndConsume(t *testing.T) {
	b := New(4)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, models.Event{EntityID: "gpu-0"}))
	require.NoError(t, b.Publish(ctx, models.Event{EntityID: "gpu-1"}))

	ev := <-b.Events()
	assert.Equal(t, "gpu-0", ev.EntityID)

	stats := b.Stats()
	assert.Equal(t, int64(2), stats.Publishes)
	assert.Equal(t, int64(0), stats.BlockedPublishes)
}

func TestPublishBlocksWhenFull(t *testing.T) {
	b := New(1)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, models.Event{EntityID: "gpu-0"}))

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		require.NoError(t, b.Publish(ctx, models.Event{EntityID: "gpu-1"}))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second publish should have blocked while the bus was full")
	case <-time.After(50 * time.Millisecond):
	}

	<-b.Events()
	wg.Wait()

	stats := b.Stats()
	assert.Equal(t, int64(1), stats.BlockedPublishes)
	assert.Equal(t, int64(2), stats.Publishes)
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	b := New(1)
	require.NoError(t, b.Publish(context.Background(), models.Event{EntityID: "gpu-0"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, models.Event{EntityID: "gpu-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
