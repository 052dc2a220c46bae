// Package http implements the subset of HTTP/1.1 spoken by the file server.
//
// Decoding:
//
//	request-line = method SP path SP version CRLF
//	*( header-name ": " header-value CRLF )
//	CRLF
//
// Only GET, HEAD and OPTIONS are accepted. Request bodies are never read:
// the server is read-only and closes the connection after one response, so
// any body bytes a client sends are simply left on the socket.
//
// Encoding:
//
//	"HTTP/1.1 " status-line CRLF
//	*( header-name ": " header-value CRLF )
//	CRLF
//	body-bytes
//
// Responses always carry Server and Connection: close unless the caller
// overwrites them. There is no chunked encoding; Content-Length is only
// written when the caller sets it.
package http
