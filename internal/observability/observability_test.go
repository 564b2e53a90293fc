package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	assert.Equal(t, "10.0.0.2", IPFromRequest(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", IPFromRequest(req))
}

func TestRequestIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestIDFromRequest(req))

	req.Header.Set(RequestIDHeader, " req-9 ")
	assert.Equal(t, "req-9", RequestIDFromRequest(req))

	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	assert.Empty(t, RequestIDFromRequest(req))
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestNewEventCarriesHeaders(t *testing.T) {
	event := NewEvent(EventMessageSent, map[string]string{"id": "1"}, BuildHeaders("req-1", "trace-1"))
	assert.Equal(t, "domain_event", event.EventType)
	assert.Equal(t, EventMessageSent, event.EventName)
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, "trace-1", event.TraceID)
	assert.NotEmpty(t, event.OccurredAt)

	assert.Empty(t, BuildHeaders("", ""))
}

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("/grpc.health.v1.Health/Check")
	assert.Equal(t, "grpc.health.v1.Health", service)
	assert.Equal(t, "Check", method)

	service, method = splitFullMethod("bogus")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "unknown", method)
}
