// Package worker implements the single-consumer, single-thread task queue
// described in spec.md §4.1. Every mutation of the DSP object and shadow
// state flows through exactly one Worker, which runs tasks strictly in
// submission order on one dedicated goroutine.
//
// Grounded on the teacher's goroutine-owns-a-loop idiom (SessionManager's
// cleanupLoop/maxSessionTimeLoop in session.go): a long-running goroutine
// reading off a channel, generalised here from a fixed periodic loop into
// a general task queue with diagnostics and pause/drain semantics.
package worker

import (
	"log"
	"sync"
	"sync/atomic"
)

// Task is a unit of work submitted to the worker, tagged with a
// diagnostic name (typically the caller's function name).
type Task struct {
	Name string
	Run  func()
}

// Worker serialises Tasks onto one dedicated goroutine.
type Worker struct {
	tasks   chan Task
	paused  atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	// diagnostics
	submitted atomic.Int64
	executed  atomic.Int64
}

// New creates a Worker with the given task queue depth. It is not started
// until Start is called.
func New(queueDepth int) *Worker {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &Worker{
		tasks: make(chan Task, queueDepth),
		done:  make(chan struct{}),
	}
}

// Start launches the worker's dedicated goroutine. It is called once per
// Worker; Start does not detect a second call, which would launch a second
// consumer goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case t, ok := <-w.tasks:
			if !ok {
				return
			}
			w.runTask(t)
		case <-w.done:
			// Drain remaining queued tasks before exiting so Stop's
			// "drains outstanding tasks and joins" guarantee holds.
			for {
				select {
				case t := <-w.tasks:
					w.runTask(t)
				default:
					return
				}
			}
		}
	}
}

func (w *Worker) runTask(t Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker: task %q panicked: %v", t.Name, r)
		}
		w.executed.Add(1)
	}()
	t.Run()
}

// Submit enqueues a closure unconditionally and returns immediately after
// enqueue, not after execution. If the worker is paused the task is still
// accepted here — callers that must honour WORKER_BUSY semantics should
// check IsPaused() themselves before calling Submit, per spec.md §4.3
// step 1 ("If worker paused -> fail WORKER_BUSY synchronously, without
// enqueuing").
func (w *Worker) Submit(name string, run func()) {
	w.submitted.Add(1)
	w.tasks <- Task{Name: name, Run: run}
}

// IsPaused reports whether the worker currently refuses new façade work.
func (w *Worker) IsPaused() bool { return w.paused.Load() }

// Pause marks the worker as unable to accept further façade work. Already
// queued tasks continue to run; new façade commands should short-circuit
// to WORKER_BUSY instead of calling Submit.
func (w *Worker) Pause() { w.paused.Store(true) }

// Resume clears the paused flag.
func (w *Worker) Resume() { w.paused.Store(false) }

// Stop drains outstanding tasks and joins the worker goroutine.
func (w *Worker) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}
	w.paused.Store(true)
	close(w.done)
	w.wg.Wait()
}

// QueueDepth reports how many tasks are currently enqueued (not counting
// the one possibly in flight), used by internal/healthz.
func (w *Worker) QueueDepth() int { return len(w.tasks) }

// Stats returns lifetime submitted/executed task counters for diagnostics.
func (w *Worker) Stats() (submitted, executed int64) {
	return w.submitted.Load(), w.executed.Load()
}
