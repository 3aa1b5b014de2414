package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanlink/chanlink/session"
)

func TestEventQueueFIFOOrder(t *testing.T) {
	q := session.NewEventQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		v, ok := q.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestEventQueueBlocksUntilPush(t *testing.T) {
	q := session.NewEventQueue[string]()
	ctx := context.Background()

	var got string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, ok := q.Next(ctx)
		require.True(t, ok)
		got = v
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push("late")
	wg.Wait()
	assert.Equal(t, "late", got)
}

func TestEventQueueDrainsThenClosed(t *testing.T) {
	q := session.NewEventQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Close()

	ctx := context.Background()
	v, ok := q.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.Next(ctx)
	assert.False(t, ok)
}

func TestEventQueueNextRespectsContextCancellation(t *testing.T) {
	q := session.NewEventQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := q.Next(ctx)
		assert.False(t, ok)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next did not return after context cancellation")
	}
}
