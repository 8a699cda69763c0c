package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicholasBallas/idr-intelligence-platform/pkg/redis"
)

func newTestCache(t *testing.T) (*Cache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return New(redis.Wrap(db), "idr:view", time.Hour), mock
}

func TestGetOrComputeMissThenHit(t *testing.T) {
	ctx := context.Background()
	cache, mock := newTestCache(t)

	value := []byte(`{"score":72}`)

	mock.ExpectGet("idr:view:generation").RedisNil()
	mock.ExpectGet("idr:view:0:filter-a").RedisNil()
	mock.ExpectSet("idr:view:0:filter-a", value, time.Hour).SetVal("OK")

	computes := 0
	got, err := cache.GetOrCompute(ctx, "filter-a", func(context.Context) ([]byte, error) {
		computes++
		return value, nil
	})
	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Equal(t, 1, computes)

	// Second request for the same key is served from Redis.
	mock.ExpectGet("idr:view:generation").RedisNil()
	mock.ExpectGet("idr:view:0:filter-a").SetVal(string(value))

	got, err = cache.GetOrCompute(ctx, "filter-a", func(context.Context) ([]byte, error) {
		computes++
		return nil, errors.New("must not recompute")
	})
	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Equal(t, 1, computes)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateRetiresCachedEntries(t *testing.T) {
	ctx := context.Background()
	cache, mock := newTestCache(t)

	mock.ExpectIncr("idr:view:generation").SetVal(4)
	require.NoError(t, cache.Invalidate(ctx))

	// After a bump the lookup targets the new generation: the stale entry
	// under generation 3 is simply never consulted again.
	value := []byte("fresh")
	mock.ExpectGet("idr:view:generation").SetVal("4")
	mock.ExpectGet("idr:view:4:filter-a").RedisNil()
	mock.ExpectSet("idr:view:4:filter-a", value, time.Hour).SetVal("OK")

	got, err := cache.GetOrCompute(ctx, "filter-a", func(context.Context) ([]byte, error) {
		return value, nil
	})
	require.NoError(t, err)
	assert.Equal(t, value, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrComputeDegradesWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	cache, mock := newTestCache(t)

	down := errors.New("connection refused")
	mock.ExpectGet("idr:view:generation").SetErr(down)
	mock.ExpectGet("idr:view:0:filter-a").SetErr(down)
	mock.ExpectSet("idr:view:0:filter-a", []byte("v"), time.Hour).SetErr(down)

	got, err := cache.GetOrCompute(ctx, "filter-a", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestGetOrComputeSharesSingleComputation(t *testing.T) {
	ctx := context.Background()
	cache, mock := newTestCache(t)
	mock.MatchExpectationsInOrder(false)

	value := []byte("shared")
	for i := 0; i < 2; i++ {
		mock.ExpectGet("idr:view:generation").RedisNil()
		mock.ExpectGet("idr:view:0:filter-a").RedisNil()
	}
	mock.ExpectSet("idr:view:0:filter-a", value, time.Hour).SetVal("OK")

	var computes atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		computes.Add(1)
		<-release
		return value, nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := cache.GetOrCompute(ctx, "filter-a", compute)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	// Let both callers reach the in-flight computation before releasing it.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), computes.Load())
	assert.Equal(t, value, results[0])
	assert.Equal(t, value, results[1])
}

func TestGetOrComputeHonorsCallerCancellation(t *testing.T) {
	cache, mock := newTestCache(t)

	mock.ExpectGet("idr:view:generation").RedisNil()
	mock.ExpectGet("idr:view:0:filter-a").RedisNil()

	ctx, cancel := context.WithCancel(context.Background())
	blocked := make(chan struct{})
	defer close(blocked)

	done := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCompute(ctx, "filter-a", func(context.Context) ([]byte, error) {
			<-blocked
			return nil, nil
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("caller did not stop waiting after cancellation")
	}
}
