package jobs

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

func TestQueueRunsJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		wg   sync.WaitGroup
	)
	wg.Add(2)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.Key)
		mu.Unlock()
		wg.Done()
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, key := range []string{"a", "b"} {
		ok, err := q.Enqueue(Job{Key: key})
		require.NoError(t, err)
		assert.True(t, ok)
	}
	wg.Wait()
	assert.ElementsMatch(t, []string{"a", "b"}, seen)
}

func TestQueueDropsPendingDuplicates(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var runs int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&runs, 1)
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())

	ok, err := q.Enqueue(Job{Key: "act-1"})
	require.NoError(t, err)
	require.True(t, ok)
	<-started

	ok, err = q.Enqueue(Job{Key: "act-1"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, q.Pending())

	close(release)
	q.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.Zero(t, q.Pending())
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) == 3 {
			close(done)
		}
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Key: "act-1"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{Key: "x"})
	assert.ErrorIs(t, err, ErrNotStarted)
}
