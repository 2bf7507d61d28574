package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasksRunInSubmissionOrder(t *testing.T) {
	w := New(64)
	w.Start()
	defer w.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		w.Submit("append", func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestStopDrainsOutstandingTasks(t *testing.T) {
	w := New(64)
	w.Start()

	var executed int
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		w.Submit("count", func() {
			mu.Lock()
			executed++
			mu.Unlock()
		})
	}

	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, executed)
}

func TestStopIsIdempotent(t *testing.T) {
	w := New(64)
	w.Start()
	w.Stop()
	assert.NotPanics(t, func() { w.Stop() })
}

func TestPauseResumeTogglesIsPaused(t *testing.T) {
	w := New(64)
	w.Start()
	defer w.Stop()

	require.False(t, w.IsPaused())
	w.Pause()
	assert.True(t, w.IsPaused())
	w.Resume()
	assert.False(t, w.IsPaused())
}

func TestPanickingTaskDoesNotKillTheLoop(t *testing.T) {
	w := New(64)
	w.Start()
	defer w.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	w.Submit("boom", func() { panic("kaboom") })

	var ran bool
	w.Submit("after", func() {
		ran = true
		wg.Done()
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker loop appears stuck after a panicking task")
	}
	assert.True(t, ran)
}

func TestStatsCountSubmittedAndExecuted(t *testing.T) {
	w := New(64)
	w.Start()
	defer w.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		w.Submit("noop", func() { wg.Done() })
	}
	wg.Wait()

	// give the loop a moment to bump the executed counter past the last Done
	time.Sleep(10 * time.Millisecond)

	submitted, executed := w.Stats()
	assert.Equal(t, int64(5), submitted)
	assert.Equal(t, int64(5), executed)
}
