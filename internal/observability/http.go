package observability

import (
	"net"
	"net/http"
	"strings"
)

// Request metadata extractors used to tag websocket connections and audit
// events.

// RequestIDFromRequest returns the upstream-assigned request id, if any.
func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

// DeviceIDFromRequest returns the client-reported device id, if any.
func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

// IPFromRequest prefers the first X-Forwarded-For hop over the socket peer,
// since campus-chat normally sits behind the campus reverse proxy.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
