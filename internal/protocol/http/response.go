package http

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	// ServerName is the default Server header value.
	ServerName = "file-shover/1.0"

	HeaderServer        = "Server"
	HeaderConnection    = "Connection"
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"

	protocolVersion = "HTTP/1.1"
	crlf            = "\r\n"
)

// ErrResponseWritten is returned when WriteTo is called a second time.
var ErrResponseWritten = errors.New("response already written")

type bodyKind uint8

const (
	bodyNone bodyKind = iota
	bodyBytes
	bodyStream
)

// Body is either absent, an in-memory buffer, or a streamed reader of known
// length. The zero value is an absent body.
type Body struct {
	kind   bodyKind
	data   []byte
	stream io.Reader
	length int64
}

// BytesBody wraps an in-memory payload.
func BytesBody(b []byte) Body {
	return Body{kind: bodyBytes, data: b, length: int64(len(b))}
}

// StreamBody wraps a reader that will yield exactly length bytes. The
// encoder does not close r.
func StreamBody(r io.Reader, length int64) Body {
	return Body{kind: bodyStream, stream: r, length: length}
}

// Present reports whether the body carries any payload source.
func (b Body) Present() bool {
	return b.kind != bodyNone
}

// Len is the payload length in bytes, 0 for an absent body.
func (b Body) Len() int64 {
	return b.length
}

// Response is an outbound message built in place by its setters and written
// once with WriteTo.
type Response struct {
	Status  Status
	Headers map[string]string
	Body    Body

	written bool
}

// NewResponse returns a 200 response carrying the Server and
// Connection: close headers.
func NewResponse() *Response {
	return &Response{
		Status: StatusOK,
		Headers: map[string]string{
			HeaderServer:     ServerName,
			HeaderConnection: "close",
		},
	}
}

// ErrorResponse builds a response for status with a small HTML body that
// names the status.
func ErrorResponse(status Status) *Response {
	body := DefaultBody(status)
	return NewResponse().
		SetStatus(status).
		SetContentType("text/html").
		SetContentLength(int64(len(body))).
		SetBody(BytesBody(body))
}

// DefaultBody renders the generic HTML page used for error responses.
func DefaultBody(status Status) []byte {
	s := status.String()
	return []byte("<!DOCTYPE html>\n<html><head><title>" + s +
		"</title></head><body><h1>" + s + "</h1></body></html>\n")
}

// SetStatus sets the status line code.
func (r *Response) SetStatus(status Status) *Response {
	r.Status = status
	return r
}

// SetHeader inserts or overwrites a header, including the defaults.
func (r *Response) SetHeader(name, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
	return r
}

// SetContentType sets the Content-Type header.
func (r *Response) SetContentType(mimeType string) *Response {
	return r.SetHeader(HeaderContentType, mimeType)
}

// SetContentLength sets the Content-Length header to n bytes.
func (r *Response) SetContentLength(n int64) *Response {
	return r.SetHeader(HeaderContentLength, strconv.FormatInt(n, 10))
}

// SetServer overrides the default Server header.
func (r *Response) SetServer(name string) *Response {
	return r.SetHeader(HeaderServer, name)
}

// SetBody attaches the payload written after the header block. It does not
// touch Content-Length.
func (r *Response) SetBody(body Body) *Response {
	r.Body = body
	return r
}

// WriteTo serializes the response onto w in a single pass. Headers are
// written in sorted name order. The first write error aborts the rest and is
// returned; nothing is retried. A streamed body that ends early is reported
// as io.ErrUnexpectedEOF.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	if r.written {
		return 0, ErrResponseWritten
	}
	r.written = true

	status := r.Status
	if status == 0 {
		status = StatusOK
	}

	var head bytes.Buffer
	head.WriteString(protocolVersion)
	head.WriteByte(' ')
	head.WriteString(status.String())
	head.WriteString(crlf)

	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		head.WriteString(name)
		head.WriteString(": ")
		head.WriteString(r.Headers[name])
		head.WriteString(crlf)
	}
	head.WriteString(crlf)

	n, err := w.Write(head.Bytes())
	written := int64(n)
	if err != nil {
		return written, fmt.Errorf("write response head: %w", err)
	}

	switch r.Body.kind {
	case bodyBytes:
		n, err := w.Write(r.Body.data)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write response body: %w", err)
		}
	case bodyStream:
		n, err := io.CopyN(w, r.Body.stream, r.Body.length)
		written += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return written, fmt.Errorf("write response body: %w", err)
		}
	}

	return written, nil
}

// ResponseHead is the decoded status line and headers of a response.
type ResponseHead struct {
	Version string
	Status  Status
	Headers map[string]string
}

// ReadResponseHead decodes a status line and header block from br, leaving
// br positioned at the first body byte. It is the inverse of the head
// written by WriteTo and is used by clients and probes of this server.
func ReadResponseHead(br *bufio.Reader) (*ResponseHead, error) {
	line, err := readLine(br, true)
	if err != nil {
		return nil, err
	}

	version, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, invalidFormat("malformed status line")
	}
	codeText, _, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return nil, invalidFormat("malformed status code")
	}

	head := &ResponseHead{
		Version: version,
		Status:  Status(code),
		Headers: make(map[string]string),
	}

	for n := 0; ; n++ {
		line, err := readLine(br, false)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return head, nil
		}
		if n >= MaxHeaders {
			return nil, invalidFormat("too many headers")
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, invalidFormat("malformed header line")
		}
		head.Headers[name] = value
	}
}
