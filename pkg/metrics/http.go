package metrics

import "time"

// HTTPMetrics provides observability for the HTTP adapter.
//
// This interface is optional - if not provided to the HTTP adapter, a no-op
// implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	adapter := http.New(config, prometheus.NewHTTPMetrics())
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type HTTPMetrics interface {
	// RecordRequest records a completed request cycle.
	//
	// Parameters:
	//   - method: Request method, or "INVALID" when the request did not parse
	//   - status: Status code of the response that was sent
	//   - duration: Time from first read to last byte written
	RecordRequest(method string, status int, duration time.Duration)

	// RecordBytesSent records response bytes written to the socket.
	RecordBytesSent(bytes int64)

	// RecordWriteError counts responses that could not be written in full.
	RecordWriteError()

	// SetActiveConnections updates the number of accepted, not yet closed
	// connections (queued or being served).
	SetActiveConnections(count int32)

	// SetBusyWorkers updates the number of workers currently serving a
	// connection.
	SetBusyWorkers(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed by the shutdown
	// timeout.
	RecordConnectionForceClosed()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(string, int, time.Duration) {}
func (noopHTTPMetrics) RecordBytesSent(int64)                    {}
func (noopHTTPMetrics) RecordWriteError()                        {}
func (noopHTTPMetrics) SetActiveConnections(int32)               {}
func (noopHTTPMetrics) SetBusyWorkers(int32)                     {}
func (noopHTTPMetrics) RecordConnectionAccepted()                {}
func (noopHTTPMetrics) RecordConnectionClosed()                  {}
func (noopHTTPMetrics) RecordConnectionForceClosed()             {}
