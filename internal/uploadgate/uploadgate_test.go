package uploadgate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateConcurrencyCap(t *testing.T) {
	gate := New(2, 0)
	ctx := context.Background()

	var inFlight, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			require.NoError(t, gate.Acquire(ctx))
			defer gate.Release()

			current := atomic.AddInt32(&inFlight, 1)
			for {
				observed := atomic.LoadInt32(&peak)
				if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2), "concurrency cap exceeded")
}

func TestGateUnboundedWhenDisabled(t *testing.T) {
	gate := New(0, 0)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, gate.Acquire(ctx))
	}
	assert.Equal(t, 0, gate.InFlight())
}

func TestGateAcquireRespectsCancellation(t *testing.T) {
	gate := New(1, 0)

	require.NoError(t, gate.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := gate.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	gate.Release()
}

func TestGateReleaseFreesSlot(t *testing.T) {
	gate := New(1, 0)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))
	assert.Equal(t, 1, gate.InFlight())

	gate.Release()
	assert.Equal(t, 0, gate.InFlight())

	require.NoError(t, gate.Acquire(ctx))
	gate.Release()
}
