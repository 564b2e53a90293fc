package telemetry

import (
	"context"
	"log"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter records who changed which message. A nil emitter is a no-op.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level     string `json:"level"`
	Action    string `json:"action"`
	MessageID string `json:"message_id,omitempty"`
	PeerID    string `json:"peer_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	Outcome   string `json:"outcome"`
}

// AuditRecord is one audited action.
type AuditRecord struct {
	Level     string
	Action    string
	MessageID string
	PeerID    string
	IP        string
	Outcome   string
	RequestID string
	UserID    string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}

	log.Printf("audit emit: level=%s action=%s outcome=%s request_id=%s user_id=%s message_id=%s", rec.Level, rec.Action, rec.Outcome, rec.RequestID, rec.UserID, rec.MessageID)
	var userID *string
	if rec.UserID != "" {
		userID = &rec.UserID
	}
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level:     rec.Level,
			Action:    rec.Action,
			MessageID: rec.MessageID,
			PeerID:    rec.PeerID,
			IP:        rec.IP,
			Outcome:   rec.Outcome,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
