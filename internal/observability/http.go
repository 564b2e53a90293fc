package observability

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// RequestIDHeader is read from inbound requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// Request ids longer than this are replaced rather than propagated into events.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFromRequest returns the caller supplied request id, or "" when it is
// missing or unusable.
func RequestIDFromRequest(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if len(id) > maxRequestIDLen || strings.ContainsAny(id, "\r\n") {
		return ""
	}
	return id
}

// WithRequestID stores the request id on ctx so service-level events can carry it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// IPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
