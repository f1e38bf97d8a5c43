package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPool_Do(t *testing.T) {
	pool := NewHashPool(2, time.Second)

	err := pool.Do(context.Background(), func() error { return nil })
	assert.NoError(t, err)

	sentinel := errors.New("job failed")
	err = pool.Do(context.Background(), func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestHashPool_HashString(t *testing.T) {
	pool := NewHashPool(2, time.Second)

	out, err := pool.HashString(context.Background(), func() (string, error) {
		return "hashed-value", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hashed-value", out)

	_, err = pool.HashString(context.Background(), func() (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	pool := NewHashPool(2, 5*time.Second)

	var running, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), func() error {
				current := atomic.AddInt64(&running, 1)
				for {
					observed := atomic.LoadInt64(&peak)
					if current <= observed || atomic.CompareAndSwapInt64(&peak, observed, current) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt64(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestHashPool_Timeout(t *testing.T) {
	pool := NewHashPool(1, 50*time.Millisecond)
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = pool.Do(context.Background(), func() error {
			<-release
			return nil
		})
	}()

	// Give the first job time to take the only slot.
	time.Sleep(10 * time.Millisecond)

	err := pool.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrHashTimeout)

	close(release)
	wg.Wait()

	// The slot frees once the stuck job finishes.
	assert.NoError(t, pool.Do(context.Background(), func() error { return nil }))
}

func TestHashPool_CanceledContext(t *testing.T) {
	pool := NewHashPool(1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := false
	err := pool.Do(ctx, func() error {
		started = true
		return nil
	})
	// A pre-canceled context may still win the slot race; either the job ran
	// to completion or it timed out without starting.
	if err != nil {
		assert.ErrorIs(t, err, ErrHashTimeout)
	} else {
		assert.True(t, started)
	}
}

func TestHashPool_Defaults(t *testing.T) {
	pool := NewHashPool(0, 0)
	assert.Equal(t, 4, cap(pool.slots))
	assert.Equal(t, 5*time.Second, pool.timeout)
}
