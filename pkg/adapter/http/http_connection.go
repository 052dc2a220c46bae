package http

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/fileshover/internal/logger"
	proto "github.com/marmos91/fileshover/internal/protocol/http"
	"github.com/marmos91/fileshover/pkg/store"
)

// connState is the position of a connection in its single request cycle.
// Transitions are strictly forward.
type connState uint8

const (
	stateAwaitingRequest connState = iota
	stateResolving
	stateBuildingResponse
	stateWritingResponse
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateAwaitingRequest:
		return "awaiting_request"
	case stateResolving:
		return "resolving"
	case stateBuildingResponse:
		return "building_response"
	case stateWritingResponse:
		return "writing_response"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// invalidMethod labels metrics for requests that never parsed.
const invalidMethod = "INVALID"

// HTTPConnection serves exactly one request on one accepted connection and
// then closes it.
type HTTPConnection struct {
	server *HTTPAdapter
	conn   net.Conn
	id     string
	state  connState
}

// NewHTTPConnection wraps an accepted conn served by server. Each connection
// gets a random id used to correlate its log lines.
func NewHTTPConnection(server *HTTPAdapter, conn net.Conn) *HTTPConnection {
	return &HTTPConnection{
		server: server,
		conn:   conn,
		id:     uuid.NewString(),
		state:  stateAwaitingRequest,
	}
}

// State returns the current state. Used by tests.
func (c *HTTPConnection) State() connState {
	return c.state
}

func (c *HTTPConnection) advance(next connState) {
	if next <= c.state {
		// Never happens unless the cycle below is broken.
		logger.Error("[%s] illegal state transition %s -> %s", c.id, c.state, next)
		return
	}
	logger.Debug("[%s] %s -> %s", c.id, c.state, next)
	c.state = next
}

// Serve runs the request cycle: read one request, resolve it, write one
// response, shut the socket down. Every failure becomes a response or a log
// line; nothing is returned.
//
// A panic anywhere in the cycle is recovered so a single connection cannot
// take down its worker. If nothing was written yet the client still gets a
// 500, and the socket is closed either way.
func (c *HTTPConnection) Serve(ctx context.Context) {
	clientAddr := c.conn.RemoteAddr().String()
	start := time.Now()
	method := invalidMethod

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[%s] Panic in connection handler from %s: %v", c.id, clientAddr, r)
			if c.state < stateWritingResponse {
				c.writeFailure(method, start)
			}
		}
		c.close()
	}()

	logger.Debug("[%s] New connection from %s", c.id, clientAddr)

	req, err := c.readRequest()

	var resp *proto.Response
	if err != nil {
		logger.Debug("[%s] Bad request from %s: %v", c.id, clientAddr, err)
		c.advance(stateBuildingResponse)
		resp = proto.ErrorResponse(proto.StatusBadRequest)
	} else {
		method = req.Method.String()
		logger.Info("Request: %s %s", req.Method, req.Path)

		c.advance(stateResolving)
		handle, rerr := c.server.resolver.Resolve(ctx, req.Path)
		defer func() {
			if cerr := handle.Close(); cerr != nil {
				logger.Debug("[%s] Error closing file: %v", c.id, cerr)
			}
		}()

		c.advance(stateBuildingResponse)
		resp = c.buildResponse(req, handle, rerr)
	}

	c.advance(stateWritingResponse)
	n, err := c.writeResponse(resp)
	c.server.metrics.RecordBytesSent(n)
	if err != nil {
		c.server.metrics.RecordWriteError()
		logger.Warn("[%s] Failed to write response to %s after %d bytes: %v", c.id, clientAddr, n, err)
	}

	c.server.metrics.RecordRequest(method, resp.Status.Code(), time.Since(start))
	logger.Debug("[%s] %s %s (%d bytes, %v)", c.id, method, resp.Status, n, time.Since(start))
}

// writeFailure sends a 500 after a recovered panic. Only called before any
// response byte has been written.
func (c *HTTPConnection) writeFailure(method string, start time.Time) {
	c.advance(stateWritingResponse)
	resp := proto.ErrorResponse(proto.StatusInternalServerError)
	n, err := c.writeResponse(resp)
	c.server.metrics.RecordBytesSent(n)
	if err != nil {
		c.server.metrics.RecordWriteError()
		logger.Warn("[%s] Failed to write 500 after panic: %v", c.id, err)
	}
	c.server.metrics.RecordRequest(method, resp.Status.Code(), time.Since(start))
}

func (c *HTTPConnection) readRequest() (*proto.Request, error) {
	if timeout := c.server.config.ReadTimeout; timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			logger.Warn("[%s] Failed to set read deadline: %v", c.id, err)
		}
	}
	return proto.ReadRequest(c.conn)
}

// buildResponse maps the resolver outcome to a response.
//
//	handle        -> 200, streamed file
//	ErrNotFound   -> 404
//	anything else -> 500 (invalid path included)
func (c *HTTPConnection) buildResponse(req *proto.Request, handle *store.FileHandle, err error) *proto.Response {
	switch {
	case err == nil:
		resp := proto.NewResponse().
			SetStatus(proto.StatusOK).
			SetContentType(proto.ContentTypeFor(req.Path)).
			SetContentLength(handle.Size)
		if req.Method != proto.MethodHead {
			resp.SetBody(proto.StreamBody(handle.Reader, handle.Size))
		}
		return resp

	case errors.Is(err, store.ErrNotFound):
		logger.Info("File not found: %s", req.Path)
		return proto.ErrorResponse(proto.StatusNotFound)

	case errors.Is(err, store.ErrInvalidPath):
		logger.Warn("[%s] Rejected path %q: %v", c.id, req.Path, err)
		return proto.ErrorResponse(proto.StatusInternalServerError)

	default:
		logger.Error("[%s] Failed to resolve %q: %v", c.id, req.Path, err)
		return proto.ErrorResponse(proto.StatusInternalServerError)
	}
}

func (c *HTTPConnection) writeResponse(resp *proto.Response) (int64, error) {
	if timeout := c.server.config.WriteTimeout; timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			logger.Warn("[%s] Failed to set write deadline: %v", c.id, err)
		}
	}
	return resp.WriteTo(c.conn)
}

// closeWriter and closeReader are implemented by *net.TCPConn.
type closeWriter interface {
	CloseWrite() error
}

type closeReader interface {
	CloseRead() error
}

// close shuts the socket down in both directions and releases it.
func (c *HTTPConnection) close() {
	if c.state == stateClosed {
		return
	}
	c.state = stateClosed

	if cw, ok := c.conn.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
	if cr, ok := c.conn.(closeReader); ok {
		_ = cr.CloseRead()
	}
	if err := c.conn.Close(); err != nil {
		logger.Debug("[%s] Error closing connection: %v", c.id, err)
	}
}
