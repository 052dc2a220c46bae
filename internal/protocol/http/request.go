package http

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

const (
	// MaxLineLength bounds a single request or header line, CRLF included.
	MaxLineLength = 8 * 1024

	// MaxHeaders bounds the number of header lines in one request.
	MaxHeaders = 100
)

// Method is a request method accepted by the server.
type Method string

// Supported methods. Matching is case-sensitive.
const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// ParseMethod matches s case-sensitively against the supported methods.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodGet, MethodHead, MethodOptions:
		return Method(s), nil
	}
	return "", invalidFormat("unsupported method " + quote(s))
}

func (m Method) String() string {
	return string(m)
}

// Request is a parsed request head. It is never mutated after ReadRequest
// returns it.
type Request struct {
	Method Method

	// Path is the request target exactly as received. It is not safe to use
	// as a filesystem path until it has gone through a store.Resolver.
	Path string

	Version string

	// Headers holds header values keyed by the name as received. A repeated
	// name keeps its last value.
	Headers map[string]string
}

// Header returns the value of the named header. Lookup is case-sensitive.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[name]
	return v, ok
}

// ReadRequest decodes one request head from r.
//
// The request line must split on ASCII whitespace into exactly three tokens
// and its method must be GET, HEAD or OPTIONS. Each header line must contain
// ": "; the name is everything before its first occurrence. Reading stops at
// the first empty line and nothing after it is consumed by the parser, though
// the internal buffer may have read ahead.
//
// All failures are *RequestError. A partially parsed request is never
// returned.
func ReadRequest(r io.Reader) (*Request, error) {
	br := bufio.NewReaderSize(r, MaxLineLength)

	line, err := readLine(br, true)
	if err != nil {
		return nil, err
	}

	tokens := strings.FieldsFunc(line, isASCIISpace)
	if len(tokens) != 3 {
		return nil, invalidFormat("request line must have 3 tokens")
	}

	method, err := ParseMethod(tokens[0])
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method:  method,
		Path:    tokens[1],
		Version: tokens[2],
		Headers: make(map[string]string),
	}

	for n := 0; ; n++ {
		line, err := readLine(br, false)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		if n >= MaxHeaders {
			return nil, invalidFormat("too many headers")
		}

		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, invalidFormat("malformed header line")
		}
		req.Headers[name] = value
	}

	return req, nil
}

// readLine returns the next line without its terminator. Both CRLF and a
// bare LF are accepted as terminators.
func readLine(br *bufio.Reader, first bool) (string, error) {
	raw, err := br.ReadSlice('\n')
	if err != nil {
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			return "", invalidFormat("line too long")
		case errors.Is(err, io.EOF):
			if first && len(raw) == 0 {
				return "", ioError(io.EOF)
			}
			return "", ioError(io.ErrUnexpectedEOF)
		default:
			return "", ioError(err)
		}
	}

	raw = bytes.TrimSuffix(raw, []byte("\n"))
	raw = bytes.TrimSuffix(raw, []byte("\r"))
	return string(raw), nil
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func quote(s string) string {
	return "\"" + s + "\""
}
