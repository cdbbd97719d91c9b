package chat

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vishalarun7/Multithreaded-Chat/internal/monitoring"
)

// task is one unit of work for the pool, typically handling a single
// received datagram.
type task func()

// workerPool runs datagram handlers on a fixed set of goroutines fed by a
// buffered queue. Reception order is preserved at the socket, handling order
// is not, and a full queue sheds load by dropping the datagram instead of
// spawning more goroutines.
type workerPool struct {
	workerCount  int
	taskQueue    chan task
	ctx          context.Context
	wg           sync.WaitGroup
	droppedTasks int64
	logger       zerolog.Logger
}

func newWorkerPool(workerCount, queueSize int, logger zerolog.Logger) *workerPool {
	return &workerPool{
		workerCount: workerCount,
		taskQueue:   make(chan task, queueSize),
		logger:      logger.With().Str("component", "worker_pool").Logger(),
	}
}

// Start launches the workers. Must be called once, before Submit.
func (wp *workerPool) Start(ctx context.Context) {
	wp.ctx = ctx
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

func (wp *workerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case t, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			if t != nil {
				wp.run(t)
			}
		case <-wp.ctx.Done():
			return
		}
	}
}

// run executes one task with panic recovery so a bad datagram can never take
// a worker down.
func (wp *workerPool) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error().
				Interface("panic_value", r).
				Str("stack_trace", string(debug.Stack())).
				Msg("Worker panic recovered")
		}
	}()
	t()
}

// Submit enqueues a task without blocking. When the queue is full the task
// is dropped and counted; on UDP a shed datagram and a lost one look the
// same to the client. Submitting after Stop panics, so the listener must be
// stopped first.
func (wp *workerPool) Submit(t task) {
	select {
	case wp.taskQueue <- t:
	default:
		atomic.AddInt64(&wp.droppedTasks, 1)
		monitoring.RecordDrop(monitoring.DropQueueFull)
	}
}

// Stop closes the queue and waits for the workers to drain the remaining
// tasks and exit.
func (wp *workerPool) Stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
}

func (wp *workerPool) DroppedTasks() int64 {
	return atomic.LoadInt64(&wp.droppedTasks)
}

func (wp *workerPool) QueueDepth() int {
	return len(wp.taskQueue)
}

func (wp *workerPool) QueueCapacity() int {
	return cap(wp.taskQueue)
}
