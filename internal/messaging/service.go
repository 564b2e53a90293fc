// Package messaging implements the direct-messaging operations on top of a
// message store: sending, thread browsing, conversation lists, read tracking,
// owner-only edits and deletes, and thread search.
package messaging

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"messaging-service/internal/conversations"
	"messaging-service/internal/errs"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/ownership"
	"messaging-service/internal/repositories"
	"messaging-service/internal/search"
	"messaging-service/internal/thread"
)

const (
	DefaultLimit    = 50
	MaxLimit        = 200
	HistoryPageSize = 20
)

// Publisher delivers domain events. rabbitmq.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Service is safe for concurrent use; it holds no state besides its collaborators.
type Service struct {
	messages     repositories.MessageRepository
	participants repositories.ParticipantRepository
	ownership    ownership.Validator
	publisher    Publisher
	tracer       trace.Tracer
}

// NewService builds a Service. participants and publisher may be nil.
func NewService(messages repositories.MessageRepository, participants repositories.ParticipantRepository, validator ownership.Validator, publisher Publisher) *Service {
	return &Service{
		messages:     messages,
		participants: participants,
		ownership:    validator,
		publisher:    publisher,
		tracer:       otel.Tracer("messaging-service/internal/messaging"),
	}
}

// SendMessage validates and stores a message from SenderID to RecipientID.
func (s *Service) SendMessage(ctx context.Context, in SendInput) (msg models.Message, err error) {
	ctx, done := s.begin(ctx, "send_message", attribute.String("sender_id", in.SenderID), attribute.String("recipient_id", in.RecipientID))
	defer func() { done(err) }()

	draft, err := in.message()
	if err != nil {
		return models.Message{}, err
	}
	msg, err = s.messages.Create(ctx, draft)
	if err != nil {
		return models.Message{}, err
	}
	s.publish(ctx, observability.EventMessageSent, msg)
	return msg, nil
}

// GetThread returns one page of the thread between a and b, oldest first.
func (s *Service) GetThread(ctx context.Context, a, b string, q ThreadQuery) (msgs []models.Message, err error) {
	ctx, done := s.begin(ctx, "get_thread", attribute.Int("limit", q.Limit), attribute.Int("page", q.Page))
	defer func() { done(err) }()

	p, err := threadBetween(a, b)
	if err != nil {
		return nil, err
	}
	return s.messages.ListThread(ctx, p, q.page())
}

// GetChatHistory returns a fixed-size page of the thread between a and b.
func (s *Service) GetChatHistory(ctx context.Context, a, b string, page int) ([]models.Message, error) {
	return s.GetThread(ctx, a, b, ThreadQuery{Limit: HistoryPageSize, Page: page})
}

// ListConversations returns one summary per partner of userID, most recent first.
func (s *Service) ListConversations(ctx context.Context, userID string) (out []models.ConversationSummary, err error) {
	ctx, done := s.begin(ctx, "list_conversations", attribute.String("user_id", userID))
	defer func() { done(err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errs.InvalidQuery("user id is required")
	}

	agg := conversations.New(userID)
	err = s.messages.StreamParticipantMessages(ctx, userID, func(m models.Message) error {
		agg.Add(m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out = agg.Summaries()
	if s.participants != nil && agg.Len() > 0 {
		directory, err := s.participants.BulkParticipants(ctx, agg.PartnerIDs())
		if err != nil {
			log.Printf("conversation enrichment skipped user_id=%s: %v", userID, err)
		} else {
			conversations.Enrich(out, directory)
		}
	}
	return out, nil
}

// MarkMessageRead flags a single message as read.
func (s *Service) MarkMessageRead(ctx context.Context, id string) (msg models.Message, err error) {
	ctx, done := s.begin(ctx, "mark_message_read", attribute.String("message_id", id))
	defer func() { done(err) }()

	if strings.TrimSpace(id) == "" {
		return models.Message{}, errs.ErrNotFound
	}
	msg, err = s.messages.MarkRead(ctx, id)
	if err != nil {
		return models.Message{}, err
	}
	s.publish(ctx, observability.EventMessageRead, msg)
	return msg, nil
}

// MarkThreadRead flags every unread message from peer to me as read.
func (s *Service) MarkThreadRead(ctx context.Context, me, peer string) (res models.ThreadReadResult, err error) {
	ctx, done := s.begin(ctx, "mark_thread_read")
	defer func() { done(err) }()

	p, err := threadBetween(me, peer)
	if err != nil {
		return models.ThreadReadResult{}, err
	}
	res, err = s.messages.MarkThreadRead(ctx, p.A, p.B)
	if err != nil {
		return models.ThreadReadResult{}, err
	}
	observability.AddThreadReadModified(res.ModifiedCount)
	if res.ModifiedCount > 0 {
		s.publish(ctx, observability.EventThreadRead, threadReadEvent{RecipientID: p.A, SenderID: p.B, ThreadReadResult: res})
	}
	return res, nil
}

// GetUnreadCount counts unread messages from peer to me.
func (s *Service) GetUnreadCount(ctx context.Context, me, peer string) (count int, err error) {
	ctx, done := s.begin(ctx, "get_unread_count")
	defer func() { done(err) }()

	p, err := threadBetween(me, peer)
	if err != nil {
		return 0, err
	}
	return s.messages.CountUnread(ctx, p.A, p.B)
}

// EditMessage replaces the body of a message owned by actorID.
func (s *Service) EditMessage(ctx context.Context, id, actorID, body string) (msg models.Message, err error) {
	ctx, done := s.begin(ctx, "edit_message", attribute.String("message_id", id))
	defer func() { done(err) }()

	current, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return models.Message{}, err
	}
	if err := s.ownership.Assert(current, actorID); err != nil {
		return models.Message{}, err
	}
	if strings.TrimSpace(body) == "" {
		if current.Attachment == nil {
			return models.Message{}, errs.InvalidMessage("body is required")
		}
		body = ""
	}

	msg, err = s.messages.UpdateBody(ctx, id, body)
	if err != nil {
		return models.Message{}, err
	}
	s.publish(ctx, observability.EventMessageEdited, msg)
	return msg, nil
}

// DeleteMessage permanently removes a message owned by actorID.
func (s *Service) DeleteMessage(ctx context.Context, id, actorID string) (res DeleteResult, err error) {
	ctx, done := s.begin(ctx, "delete_message", attribute.String("message_id", id))
	defer func() { done(err) }()

	current, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.ownership.Assert(current, actorID); err != nil {
		return DeleteResult{}, err
	}
	if err := s.messages.DeleteByID(ctx, id); err != nil {
		return DeleteResult{}, err
	}
	s.publish(ctx, observability.EventMessageDeleted, current)
	return DeleteResult{ID: current.ID}, nil
}

// SearchThread returns the messages between me and peer whose body contains
// keyword, ignoring case, oldest first.
func (s *Service) SearchThread(ctx context.Context, me, peer, keyword string) (msgs []models.Message, err error) {
	ctx, done := s.begin(ctx, "search_thread")
	defer func() { done(err) }()

	p, err := threadBetween(me, peer)
	if err != nil {
		return nil, err
	}
	keyword, err = search.Normalize(keyword)
	if err != nil {
		return nil, err
	}
	return s.messages.SearchThread(ctx, p, keyword)
}

type threadReadEvent struct {
	RecipientID string `json:"recipient_id"`
	SenderID    string `json:"sender_id"`
	models.ThreadReadResult
}

func threadBetween(me, peer string) (thread.Predicate, error) {
	p := thread.Between(strings.TrimSpace(me), strings.TrimSpace(peer))
	if !p.Valid() {
		return thread.Predicate{}, errs.InvalidQuery("two distinct participant ids are required")
	}
	return p, nil
}

func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "messaging."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		observability.ObserveOperation(op, outcome(err), started)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func outcome(err error) string {
	var domain errs.Error
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &domain):
		return strings.ReplaceAll(string(domain), " ", "_")
	default:
		return "error"
	}
}

func (s *Service) publish(ctx context.Context, name string, payload any) {
	if s.publisher == nil {
		return
	}
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	headers := observability.BuildHeaders(observability.RequestIDFromContext(ctx), traceID)
	if err := s.publisher.Publish(ctx, name, observability.NewEvent(name, payload, headers)); err != nil {
		observability.IncAMQPPublishError()
		log.Printf("event publish failed event=%s: %v", name, err)
	}
}
