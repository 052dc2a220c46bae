package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fileshover/internal/logger"
	"github.com/marmos91/fileshover/internal/ratelimiter"
	"github.com/marmos91/fileshover/pkg/metrics"
	"github.com/marmos91/fileshover/pkg/store"
)

// HTTPAdapter implements the adapter.Adapter interface for the static file
// protocol.
//
// Architecture:
// One goroutine runs the accept loop. Every accepted connection is handed
// to a Dispatcher, whose fixed pool of workers each run one HTTPConnection
// to completion. When all workers are busy the accept loop blocks in
// Submit, and further clients wait in the kernel backlog.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. Accepted connections drain through the workers (up to ShutdownTimeout)
//  4. After the timeout, in-flight requests are cancelled and remaining
//     connections are force-closed
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown uses sync.Once so Stop()
// may be called multiple times.
type HTTPAdapter struct {
	// config holds the server configuration (port, workers, timeouts)
	config HTTPConfig

	// listener is closed during shutdown to stop accepting new connections.
	// listenerMu guards it against a Stop that races ServeListener.
	listenerMu sync.Mutex
	listener   net.Listener

	// listenerReady is closed once listener is set
	listenerReady chan struct{}

	// resolver maps request paths to file content; shared by all workers
	resolver store.Resolver

	// metrics is never nil; a no-op implementation is used when disabled
	metrics metrics.HTTPMetrics

	// dispatcher owns the worker pool
	dispatcher *Dispatcher

	// limiter throttles the accept loop; nil when unlimited
	limiter *ratelimiter.RateLimiter

	// activeConns tracks accepted connections until they are closed,
	// including those still waiting for a worker
	activeConns sync.WaitGroup

	// shutdownOnce ensures shutdown is only initiated once
	shutdownOnce sync.Once

	// shutdown is closed by initiateShutdown(), monitored by Serve()
	shutdown chan struct{}

	// connCount tracks the current number of active connections
	connCount atomic.Int32

	// acceptCtx is cancelled when shutdown starts; it bounds rate limit
	// waits and submissions in the accept loop
	acceptCtx    context.Context
	cancelAccept context.CancelFunc

	// requestCtx is passed to every request and cancelled when the shutdown
	// timeout expires, so slow backend reads abort
	requestCtx     context.Context
	cancelRequests context.CancelFunc

	// activeConnections holds every open net.Conn for forced closure
	activeConnections sync.Map
}

// New creates a new HTTPAdapter with the specified configuration.
//
// The adapter is created in a stopped state. Call SetResolver() to inject
// the backend, then Serve() to start accepting connections.
//
// Parameters:
//   - config: Server configuration (port, workers, timeouts)
//   - httpMetrics: Optional metrics collector (nil for no metrics)
//
// Panics if config validation fails (programmer error; pkg/config validates
// user input before it gets here).
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	var limiter *ratelimiter.RateLimiter
	if config.RateLimit.RequestsPerSecond > 0 {
		limiter = ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
		logger.Debug("HTTP accept rate limit: %.2f/s burst=%d", limiter.Limit(), limiter.Burst())
	}

	acceptCtx, cancelAccept := context.WithCancel(context.Background())
	requestCtx, cancelRequests := context.WithCancel(context.Background())

	s := &HTTPAdapter{
		config:         config,
		listenerReady:  make(chan struct{}),
		metrics:        httpMetrics,
		limiter:        limiter,
		shutdown:       make(chan struct{}),
		acceptCtx:      acceptCtx,
		cancelAccept:   cancelAccept,
		requestCtx:     requestCtx,
		cancelRequests: cancelRequests,
	}
	s.dispatcher = NewDispatcher(config.Workers, s.serveConn)
	s.dispatcher.onBusyChange = httpMetrics.SetBusyWorkers
	return s
}

// SetResolver injects the path resolver shared by all workers.
//
// Called exactly once before Serve(), no synchronization needed.
func (s *HTTPAdapter) SetResolver(resolver store.Resolver) {
	s.resolver = resolver
	logger.Debug("HTTP resolver configured")
}

// Serve binds the configured port and runs the accept loop until the context
// is cancelled or Stop() is called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or shutdown timed out
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on port %d: %w", s.config.Port, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener runs the accept loop on an existing listener, which it takes
// ownership of and closes on shutdown.
func (s *HTTPAdapter) ServeListener(ctx context.Context, listener net.Listener) error {
	if s.resolver == nil {
		_ = listener.Close()
		return errors.New("HTTP adapter has no resolver")
	}

	s.listenerMu.Lock()
	s.listener = listener
	close(s.listenerReady)
	s.listenerMu.Unlock()

	// Stop may have run before the listener existed, in which case
	// initiateShutdown had nothing to close.
	select {
	case <-s.shutdown:
		logger.Info("HTTP adapter stopped before accepting connections")
		if err := listener.Close(); err != nil {
			logger.Debug("Error closing HTTP listener: %v", err)
		}
		s.cancelRequests()
		return nil
	default:
	}

	logger.Info("HTTP server listening on %s", listener.Addr())
	logger.Debug("HTTP config: workers=%d read_timeout=%v write_timeout=%v",
		s.config.Workers, s.config.ReadTimeout, s.config.WriteTimeout)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	s.dispatcher.Start()

	for {
		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return s.gracefulShutdown(nil)
			default:
				// Common causes: resource exhaustion (EMFILE), aborted handshakes
				logger.Debug("Error accepting HTTP connection: %v", err)
				continue
			}
		}

		s.trackConn(tcpConn)

		if s.limiter != nil {
			if err := s.limiter.Wait(s.acceptCtx); err != nil {
				logger.Debug("HTTP rate limit wait aborted: %v", err)
			}
		}

		if err := s.dispatcher.Submit(s.acceptCtx, tcpConn); err != nil {
			// Shutdown started while every worker was busy. The connection
			// was accepted, so it is still served during the drain.
			return s.gracefulShutdown(tcpConn)
		}
	}
}

func (s *HTTPAdapter) trackConn(conn net.Conn) {
	s.activeConns.Add(1)
	s.activeConnections.Store(conn, struct{}{})
	current := s.connCount.Add(1)

	s.metrics.RecordConnectionAccepted()
	s.metrics.SetActiveConnections(current)

	logger.Debug("HTTP connection accepted from %s (active: %d)", conn.RemoteAddr(), current)
}

func (s *HTTPAdapter) untrackConn(conn net.Conn) {
	s.activeConnections.Delete(conn)
	current := s.connCount.Add(-1)
	s.activeConns.Done()

	s.metrics.RecordConnectionClosed()
	s.metrics.SetActiveConnections(current)

	logger.Debug("HTTP connection closed from %s (active: %d)", conn.RemoteAddr(), current)
}

// serveConn is the dispatcher's handler. It runs on a worker goroutine.
func (s *HTTPAdapter) serveConn(conn net.Conn) {
	defer s.untrackConn(conn)
	NewHTTPConnection(s, conn).Serve(s.requestCtx)
}

// initiateShutdown closes the listener so Accept fails and the accept loop
// moves on to gracefulShutdown. Safe to call multiple times.
func (s *HTTPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")

		close(s.shutdown)
		s.cancelAccept()

		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing HTTP listener: %v", err)
			}
		}
	})
}

// gracefulShutdown lets accepted connections drain through the workers and
// force-closes whatever is left after ShutdownTimeout. pending, if not nil,
// is a connection accepted but not yet handed to a worker.
//
// Runs on the accept loop goroutine, which is the only caller of
// Dispatcher.Submit, so stopping the dispatcher here cannot race a send.
func (s *HTTPAdapter) gracefulShutdown(pending net.Conn) error {
	activeCount := s.connCount.Load()
	logger.Info("HTTP graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		activeCount, s.config.ShutdownTimeout)

	deadline := time.Now().Add(s.config.ShutdownTimeout)

	if pending != nil {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		err := s.dispatcher.Submit(ctx, pending)
		cancel()
		if err != nil {
			logger.Warn("HTTP connection from %s dropped during shutdown: %v", pending.RemoteAddr(), err)
			_ = pending.Close()
			s.untrackConn(pending)
		}
	}

	done := make(chan struct{})
	go func() {
		s.dispatcher.Stop()
		s.activeConns.Wait()
		close(done)
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-done:
		s.cancelRequests()
		logger.Info("HTTP graceful shutdown complete: all connections closed")
		return nil

	case <-timer.C:
		remaining := s.connCount.Load()
		logger.Warn("HTTP shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
			remaining, s.config.ShutdownTimeout)

		s.cancelRequests()
		s.forceCloseConnections()

		return fmt.Errorf("HTTP shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes every tracked socket so blocked reads and
// writes fail and the workers return.
func (s *HTTPAdapter) forceCloseConnections() {
	logger.Info("Force-closing active HTTP connections")

	closedCount := 0
	s.activeConnections.Range(func(key, _ any) bool {
		conn := key.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection to %s: %v", conn.RemoteAddr(), err)
		} else {
			closedCount++
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed %d connection(s)", closedCount)
	}
}

// Stop initiates graceful shutdown and waits for active connections to
// finish or for ctx to end.
//
// Returns ctx.Err() if ctx ends first; Serve keeps enforcing its own
// ShutdownTimeout in that case.
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("HTTP shutdown context cancelled: %d connection(s) still active: %v",
			remaining, ctx.Err())
		return ctx.Err()
	}
}

// logMetrics periodically logs load until ctx is cancelled.
func (s *HTTPAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("HTTP metrics: active_connections=%d busy_workers=%d/%d",
				s.connCount.Load(), s.dispatcher.Busy(), s.dispatcher.Workers())
		}
	}
}

// GetActiveConnections returns the number of accepted connections that have
// not been closed yet.
func (s *HTTPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// BusyWorkers returns the number of workers currently serving a connection.
func (s *HTTPAdapter) BusyWorkers() int32 {
	return s.dispatcher.Busy()
}

// Addr returns the listener address, blocking until Serve has bound it or
// ctx ends.
func (s *HTTPAdapter) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.listenerReady:
		return s.listenerAddr(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Port returns the bound TCP port once listening, otherwise the configured
// port.
func (s *HTTPAdapter) Port() int {
	select {
	case <-s.listenerReady:
		if tcpAddr, ok := s.listenerAddr().(*net.TCPAddr); ok {
			return tcpAddr.Port
		}
	default:
	}
	return s.config.Port
}

func (s *HTTPAdapter) listenerAddr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	return s.listener.Addr()
}

// Protocol returns "HTTP" for logging and metrics.
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}
