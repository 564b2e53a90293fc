package observability

import "time"

// Routing keys for domain events.
const (
	EventMessageSent    = "message.sent"
	EventMessageEdited  = "message.edited"
	EventMessageDeleted = "message.deleted"
	EventMessageRead    = "message.read"
	EventThreadRead     = "thread.read"
)

type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt string      `json:"occurred_at"`
	RequestID  string      `json:"request_id,omitempty"`
	TraceID    string      `json:"trace_id,omitempty"`
	Payload    interface{} `json:"payload"`
}

// NewEvent wraps payload in a domain event envelope.
func NewEvent(name string, payload interface{}, headers map[string]string) EventEnvelope {
	return EventEnvelope{
		EventType:  "domain_event",
		EventName:  name,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:  headers["x-request-id"],
		TraceID:    headers["trace_id"],
		Payload:    payload,
	}
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
