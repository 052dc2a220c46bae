package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/fileshover/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopResolver struct{}

func (nopResolver) Resolve(context.Context, string) (*store.FileHandle, error) {
	return nil, store.ErrNotFound
}

// fakeAdapter blocks in Serve until ctx is cancelled, Stop is called or
// failWith is set.
type fakeAdapter struct {
	protocol string
	port     int
	failWith error

	mu       sync.Mutex
	resolver store.Resolver
	stopped  bool
	stop     chan struct{}
	stopOnce sync.Once
}

func newFakeAdapter(protocol string, port int) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, port: port, stop: make(chan struct{})}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.failWith != nil {
		return f.failWith
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stop:
		return nil
	}
}

func (f *fakeAdapter) SetResolver(r store.Resolver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolver = r
}

func (f *fakeAdapter) Stop(context.Context) error {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stop) })
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func (f *fakeAdapter) wasStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func TestNew_NilResolverPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestAddAdapter_InjectsResolver(t *testing.T) {
	resolver := nopResolver{}
	srv := New(resolver)
	a := newFakeAdapter("HTTP", 7878)

	require.NoError(t, srv.AddAdapter(a))
	assert.Equal(t, resolver, a.resolver)
	assert.Len(t, srv.Adapters(), 1)
}

func TestAddAdapter_Conflicts(t *testing.T) {
	srv := New(nopResolver{})
	require.NoError(t, srv.AddAdapter(newFakeAdapter("HTTP", 7878)))

	err := srv.AddAdapter(newFakeAdapter("HTTP", 8080))
	assert.ErrorContains(t, err, "already registered")

	err = srv.AddAdapter(newFakeAdapter("OTHER", 7878))
	assert.ErrorContains(t, err, "port 7878 already in use")
}

func TestServe_NoAdapters(t *testing.T) {
	srv := New(nopResolver{})
	err := srv.Serve(context.Background())
	assert.ErrorContains(t, err, "no adapters registered")
}

func TestServe_CancelStopsAdapters(t *testing.T) {
	srv := New(nopResolver{})
	a := newFakeAdapter("HTTP", 7878)
	require.NoError(t, srv.AddAdapter(a))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.True(t, a.wasStopped())

	assert.ErrorIs(t, srv.Serve(context.Background()), ErrAlreadyServed)
	assert.Panics(t, func() { _ = srv.AddAdapter(newFakeAdapter("LATE", 1)) })
}

func TestServe_AdapterFailureStopsOthers(t *testing.T) {
	srv := New(nopResolver{})
	healthy := newFakeAdapter("HTTP", 7878)
	broken := newFakeAdapter("BROKEN", 9999)
	broken.failWith = errors.New("bind: address already in use")

	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "BROKEN adapter error")
		assert.ErrorContains(t, err, "address already in use")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after adapter failure")
	}
	assert.True(t, healthy.wasStopped())
}
