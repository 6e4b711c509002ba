package coordinator

import (
	"context"
	"errors"
)

// ErrClosed is returned by submit once the writer has started shutting
// down and will not accept further tasks.
var ErrClosed = errors.New("coordinator writer is closed")

// writerTask is one unit of work submitted to the single writer. done is
// nil for a fire-and-forget (async) submission.
type writerTask struct {
	fn   func() error
	done chan error
}

// submit enqueues fn onto the writer's FIFO queue. If async is false,
// submit blocks until fn has run and returns its error; the writer
// observes strict FIFO order regardless (spec.md §5).
func (m *Coordinator) submit(ctx context.Context, fn func() error, async bool) error {
	task := writerTask{fn: fn}
	if !async {
		task.done = make(chan error, 1)
	}

	select {
	case m.tasks <- task:
	case <-m.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	if task.done == nil {
		return nil
	}
	select {
	case err := <-task.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run services the writer queue until ctx is canceled, then drains
// whatever remains queued before returning. Grounded on the teacher's
// RouteModule.Run(ctx) errgroup-driven event loop
// (modules/route/controlplane/mod.go), adapted from a gRPC server loop
// to a task queue.
func (m *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case task, ok := <-m.tasks:
			if !ok {
				return nil
			}
			m.runTask(task)
		case <-ctx.Done():
			m.drain()
			return nil
		}
	}
}

func (m *Coordinator) runTask(task writerTask) {
	err := task.fn()
	if task.done != nil {
		task.done <- err
	}
}

// drain runs every task already queued at shutdown time to completion,
// per spec.md §5's "accepts a shutdown signal that drains the queue
// before exiting".
func (m *Coordinator) drain() {
	close(m.closed)
	for {
		select {
		case task := <-m.tasks:
			m.runTask(task)
		default:
			return
		}
	}
}
