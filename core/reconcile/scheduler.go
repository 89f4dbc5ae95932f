package reconcile

import (
	"context"
	"sync"
)

type task struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

// Scheduler runs tasks one at a time, in submission order, on a dedicated
// goroutine. Every tree mutation goes through it.
type Scheduler struct {
	tasks chan task
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewScheduler starts a scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		tasks: make(chan task),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Scheduler) loop() {
	defer close(s.done)
	for {
		select {
		case t := <-s.tasks:
			if err := t.ctx.Err(); err != nil {
				t.result <- err
				continue
			}
			t.result <- t.fn()
		case <-s.quit:
			return
		}
	}
}

// Do runs fn on the scheduler and waits for it. A task whose context is done
// before it starts is skipped; a started task always runs to completion.
// fn must not call Do.
func (s *Scheduler) Do(ctx context.Context, fn func() error) error {
	t := task{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case s.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrSchedulerClosed
	}
	return <-t.result
}

// Close stops the scheduler after the running task returns.
func (s *Scheduler) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}
