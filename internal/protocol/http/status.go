package http

import "strconv"

// Status is an HTTP status code from the set this server can emit.
type Status int

const (
	StatusOK                  Status = 200
	StatusNotModified         Status = 304
	StatusBadRequest          Status = 400
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusMethodNotAllowed    Status = 405
	StatusInternalServerError Status = 500
)

// Reason returns the reason phrase, or "" for a code outside the supported set.
func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotModified:
		return "Not Modified"
	case StatusBadRequest:
		return "Bad Request"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return ""
	}
}

// Code returns the numeric status code.
func (s Status) Code() int {
	return int(s)
}

// String returns the status line text after the protocol version,
// e.g. "404 Not Found".
func (s Status) String() string {
	reason := s.Reason()
	if reason == "" {
		return strconv.Itoa(int(s))
	}
	return strconv.Itoa(int(s)) + " " + reason
}

// Valid reports whether s is one of the supported statuses.
func (s Status) Valid() bool {
	return s.Reason() != ""
}

// StatusFromCode parses the numeric code at the start of a status line.
func StatusFromCode(code int) (Status, bool) {
	s := Status(code)
	return s, s.Valid()
}
