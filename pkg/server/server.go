package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/fileshover/internal/logger"
	"github.com/marmos91/fileshover/pkg/adapter"
	"github.com/marmos91/fileshover/pkg/metrics"
	"github.com/marmos91/fileshover/pkg/store"
)

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("server: Serve has already been called")

// Server runs the protocol adapters that publish one resolver, plus the
// optional metrics endpoint.
//
// Lifecycle:
//  1. New() with the resolver
//  2. AddAdapter() for each protocol
//  3. Serve() starts everything concurrently
//  4. Context cancellation stops adapters in reverse registration order
//
// Example:
//
//	srv := server.New(resolver)
//	_ = srv.AddAdapter(http.New(httpConfig, httpMetrics))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type Server struct {
	resolver store.Resolver

	// metricsServer is optional; nil when metrics are disabled
	metricsServer *metrics.Server

	// shutdownTimeout bounds stopping all adapters
	shutdownTimeout time.Duration

	adapters []adapter.Adapter

	// mu protects adapters and served
	mu     sync.Mutex
	served bool
}

// New creates a server around resolver. Panics if resolver is nil.
func New(resolver store.Resolver) *Server {
	if resolver == nil {
		panic("resolver cannot be nil")
	}

	return &Server{
		resolver:        resolver,
		shutdownTimeout: 30 * time.Second,
		adapters:        make([]adapter.Adapter, 0, 1),
	}
}

// SetMetricsServer attaches a metrics endpoint started alongside the adapters.
func (s *Server) SetMetricsServer(m *metrics.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsServer = m
}

// SetShutdownTimeout bounds how long Serve waits for adapters to stop.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownTimeout = d
}

// AddAdapter injects the resolver into a and registers it.
//
// Duplicate protocols and port conflicts are rejected. Panics if a is nil
// or Serve has already been called.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetResolver(s.resolver)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Adapters returns a copy of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Serve starts every adapter and blocks until ctx is cancelled or one of
// them fails. In both cases all adapters are stopped before returning.
//
// Returns ctx.Err() after a requested shutdown, the failing adapter's error
// otherwise.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	metricsServer := s.metricsServer
	shutdownTimeout := s.shutdownTimeout
	s.mu.Unlock()

	logger.Info("Starting file-shover with %d adapter(s)", len(adapters))

	errChan := make(chan adapterError, len(adapters)+1)
	var wg sync.WaitGroup

	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	defer cancelMetrics()
	if metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsServer.Start(metricsCtx); err != nil {
				logger.Error("Metrics server failed: %v", err)
				errChan <- adapterError{protocol: "metrics", err: err}
			}
		}()
	}

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			if err := a.Serve(ctx); err != nil {
				if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
					logger.Error("%s adapter failed: %v", protocol, err)
					errChan <- adapterError{protocol: protocol, err: err}
				} else {
					logger.Debug("%s adapter stopped after shutdown: %v", protocol, err)
				}
			} else {
				logger.Info("%s adapter stopped", protocol)
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("%s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	s.stopAllAdapters(adapters, shutdownTimeout)
	cancelMetrics()

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("file-shover stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters stops adapters in reverse registration order.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		} else {
			logger.Debug("%s adapter stop signal sent", adp.Protocol())
		}
	}
}
