package http

import (
	"path"
	"strings"
)

// DefaultContentType is used for unknown or missing extensions.
const DefaultContentType = "text/plain"

var contentTypes = map[string]string{
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "text/javascript",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"json": "application/json",
	"txt":  "text/plain",
	"wasm": "application/wasm",
}

// ContentTypeFor maps the extension of p to a content type. The match is
// case-sensitive, like the rest of the path handling.
func ContentTypeFor(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return DefaultContentType
	}
	if ct, ok := contentTypes[strings.TrimPrefix(ext, ".")]; ok {
		return ct
	}
	return DefaultContentType
}
