package http

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server
}

func TestDispatcher_HandlesEveryConnectionOnce(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[net.Conn]int)

	d := NewDispatcher(5, func(c net.Conn) {
		mu.Lock()
		seen[c]++
		mu.Unlock()
	})
	d.Start()

	conns := make([]net.Conn, 50)
	for i := range conns {
		conns[i] = pipeConn(t)
		require.NoError(t, d.Submit(context.Background(), conns[i]))
	}
	d.Stop()

	require.Len(t, seen, 50)
	for _, c := range conns {
		assert.Equal(t, 1, seen[c])
	}
}

func TestDispatcher_SubmitBlocksWhenAllWorkersBusy(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(2, func(net.Conn) { <-release })
	d.Start()
	defer d.Stop()

	require.NoError(t, d.Submit(context.Background(), pipeConn(t)))
	require.NoError(t, d.Submit(context.Background(), pipeConn(t)))
	require.Eventually(t, func() bool { return d.Busy() == 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := d.Submit(ctx, pipeConn(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Once a worker frees up the blocked submission goes through.
	submitted := make(chan error, 1)
	go func() { submitted <- d.Submit(context.Background(), pipeConn(t)) }()

	select {
	case <-submitted:
		t.Fatal("Submit returned while every worker was busy")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-submitted:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Submit did not complete after workers were released")
	}
}

func TestDispatcher_ConcurrencyBoundedByWorkers(t *testing.T) {
	const workers = 4

	var current, peak atomic.Int32
	d := NewDispatcher(workers, func(net.Conn) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
	})
	d.Start()

	for i := 0; i < 20; i++ {
		require.NoError(t, d.Submit(context.Background(), pipeConn(t)))
	}
	d.Stop()

	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Equal(t, int32(0), d.Busy())
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	d := NewDispatcher(1, func(net.Conn) {})
	d.Start()
	d.Stop()
	d.Stop()

	err := d.Submit(context.Background(), pipeConn(t))
	assert.ErrorIs(t, err, ErrDispatcherStopped)
}

func TestDispatcher_BusyCallback(t *testing.T) {
	var mu sync.Mutex
	var observed []int32

	release := make(chan struct{})
	d := NewDispatcher(1, func(net.Conn) { <-release })
	d.onBusyChange = func(n int32) {
		mu.Lock()
		observed = append(observed, n)
		mu.Unlock()
	}
	d.Start()

	require.NoError(t, d.Submit(context.Background(), pipeConn(t)))
	close(release)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int32{1, 0}, observed)
}

func TestNewDispatcher_MinimumOneWorker(t *testing.T) {
	d := NewDispatcher(0, func(net.Conn) {})
	assert.Equal(t, 1, d.Workers())
}
