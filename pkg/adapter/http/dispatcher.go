package http

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
)

// ErrDispatcherStopped is returned by Submit after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher runs accepted connections on a fixed pool of workers.
//
// Submission is a send on an unbuffered channel, so Submit blocks while every
// worker is busy. There is no queue beyond the kernel listen backlog and no
// connection is ever rejected for load. Each worker runs one handler to
// completion before taking the next connection.
//
// Submit and Stop must be called from the same goroutine (the accept loop).
type Dispatcher struct {
	workers int
	handle  func(net.Conn)

	jobs chan net.Conn
	wg   sync.WaitGroup

	// quit is closed by Stop so that a blocked Submit gives up.
	quit chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	busy atomic.Int32

	// onBusyChange, if set, observes every change of the busy count.
	onBusyChange func(int32)
}

// NewDispatcher creates a pool of workers goroutines running handle. Workers
// are not started until Start. workers < 1 is treated as 1.
func NewDispatcher(workers int, handle func(net.Conn)) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		workers: workers,
		handle:  handle,
		jobs:    make(chan net.Conn),
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. Calling it again has no effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run()
		}
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for conn := range d.jobs {
		d.setBusy(d.busy.Add(1))
		d.handle(conn)
		d.setBusy(d.busy.Add(-1))
	}
}

func (d *Dispatcher) setBusy(n int32) {
	if d.onBusyChange != nil {
		d.onBusyChange(n)
	}
}

// Submit hands conn to the next free worker, blocking until one takes it.
//
// Returns ctx.Err() if ctx ends first, or ErrDispatcherStopped after Stop.
// On error the caller still owns conn.
func (d *Dispatcher) Submit(ctx context.Context, conn net.Conn) error {
	select {
	case <-d.quit:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.jobs <- conn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrDispatcherStopped
	}
}

// Stop stops accepting submissions and waits for every worker to finish its
// current connection.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
		close(d.jobs)
	})
	d.wg.Wait()
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Busy returns the number of workers currently running a handler.
func (d *Dispatcher) Busy() int32 {
	return d.busy.Load()
}
