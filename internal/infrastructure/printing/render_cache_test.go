package printing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderKey(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, RenderKey(DocTypeQuote, id, at), RenderKey(DocTypeQuote, id, at))
	assert.NotEqual(t, RenderKey(DocTypeQuote, id, at), RenderKey(DocTypeQuote, id, at.Add(time.Second)))
	assert.NotEqual(t, RenderKey(DocTypeQuote, id, at), RenderKey(DocTypeOrder, id, at))
}

func TestRenderCache_GetOrRender(t *testing.T) {
	cache := NewRenderCache(time.Minute, 10)
	defer cache.Close()

	calls := 0
	render := func(context.Context) (*RenderResult, error) {
		calls++
		return &RenderResult{PDFData: []byte("%PDF"), PageCount: 1}, nil
	}

	first, hit, err := cache.GetOrRender(context.Background(), "k", render)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := cache.GetOrRender(context.Background(), "k", render)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())
}

func TestRenderCache_DoesNotCacheFailures(t *testing.T) {
	cache := NewRenderCache(time.Minute, 10)
	defer cache.Close()

	boom := errors.New("chromium crashed")
	_, _, err := cache.GetOrRender(context.Background(), "k", func(context.Context) (*RenderResult, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := cache.Get("k")
	assert.False(t, ok)
}

func TestRenderCache_ConcurrentCallersShareRender(t *testing.T) {
	cache := NewRenderCache(time.Minute, 10)
	defer cache.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	render := func(context.Context) (*RenderResult, error) {
		calls.Add(1)
		<-release
		return &RenderResult{PDFData: []byte("%PDF")}, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.GetOrRender(context.Background(), "shared", render)
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestRenderCache_Expiry(t *testing.T) {
	cache := NewRenderCache(20*time.Millisecond, 10)
	defer cache.Close()

	_, _, err := cache.GetOrRender(context.Background(), "k", func(context.Context) (*RenderResult, error) {
		return &RenderResult{}, nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := cache.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestRenderCache_Purge(t *testing.T) {
	cache := NewRenderCache(time.Minute, 10)
	defer cache.Close()

	_, _, _ = cache.GetOrRender(context.Background(), "a", func(context.Context) (*RenderResult, error) {
		return &RenderResult{}, nil
	})
	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}
