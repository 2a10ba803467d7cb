package llm

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetTracker_ResetsOnUTCDay(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	b := NewBudgetTracker(5, func() time.Time { return now })

	_, ok := b.Reserve(4)
	assert.True(t, ok)
	_, ok = b.Reserve(2)
	assert.False(t, ok)
	_, ok = b.Reserve(1)
	assert.True(t, ok)
	_, ok = b.Reserve(0)
	assert.False(t, ok, "spent budget admits nothing")
	assert.Zero(t, b.Remaining())

	now = now.Add(time.Hour)
	assert.Zero(t, b.Spent())
	assert.Equal(t, 5.0, b.Remaining())
	_, ok = b.Reserve(2)
	assert.True(t, ok)
}

func TestBudgetTracker_Refund(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	b := NewBudgetTracker(5, func() time.Time { return now })

	r, ok := b.Reserve(3)
	require.True(t, ok)
	b.Refund(r)
	assert.Zero(t, b.Spent())

	late, ok := b.Reserve(3)
	require.True(t, ok)
	now = now.Add(time.Hour)
	_, ok = b.Reserve(1)
	require.True(t, ok)
	b.Refund(late)
	assert.Equal(t, 1.0, b.Spent(), "yesterday's reservation does not touch today's spend")
}

func TestBudgetTracker_ConcurrentReserveNeverOvershoots(t *testing.T) {
	b := NewBudgetTracker(10, nil)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := b.Reserve(1); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, granted.Load())
	assert.Equal(t, 10.0, b.Spent())
}
