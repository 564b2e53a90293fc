package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"messaging-service/internal/errs"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/search"
	"messaging-service/internal/thread"
)

// MemoryStore is an in-memory MessageRepository with the same observable
// behavior as the SQL store. Each insert is a microsecond after the previous one.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	clock  time.Time
	rows   map[string]models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		rows:  map[string]models.Message{},
	}
}

func (s *MemoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Microsecond)
	return s.clock
}

func (s *MemoryStore) Create(_ context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg.ID = strconv.FormatInt(s.nextID, 10)
	msg.Read = false
	msg.CreatedAt = s.tick()
	msg.UpdatedAt = msg.CreatedAt
	if msg.Attachment != nil {
		att := *msg.Attachment
		msg.Attachment = &att
	}
	s.rows[msg.ID] = msg
	return msg, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.rows[id]
	if !ok {
		return models.Message{}, errs.ErrNotFound
	}
	return msg, nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *MemoryStore) UpdateBody(_ context.Context, id string, body string) (models.Message, error) {
	return s.update(id, func(m *models.Message) { m.Body = body })
}

func (s *MemoryStore) MarkRead(_ context.Context, id string) (models.Message, error) {
	return s.update(id, func(m *models.Message) { m.Read = true })
}

func (s *MemoryStore) update(id string, fn func(*models.Message)) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.rows[id]
	if !ok {
		return models.Message{}, errs.ErrNotFound
	}
	fn(&msg)
	msg.UpdatedAt = s.tick()
	s.rows[id] = msg
	return msg, nil
}

func (s *MemoryStore) MarkThreadRead(_ context.Context, recipientID string, senderID string) (models.ThreadReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res models.ThreadReadResult
	for id, msg := range s.rows {
		if msg.RecipientID != recipientID || msg.SenderID != senderID || msg.Read {
			continue
		}
		res.MatchedCount++
		res.ModifiedCount++
		msg.Read = true
		s.rows[id] = msg
	}
	return res, nil
}

func (s *MemoryStore) CountUnread(_ context.Context, recipientID string, senderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, msg := range s.rows {
		if msg.RecipientID == recipientID && msg.SenderID == senderID && !msg.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListThread(_ context.Context, p thread.Predicate, page models.Page) ([]models.Message, error) {
	msgs := s.ordered(func(m models.Message) bool {
		return p.Matches(m) && (page.Before == nil || m.CreatedAt.Before(*page.Before))
	})
	if page.Offset >= len(msgs) {
		return []models.Message{}, nil
	}
	msgs = msgs[page.Offset:]
	if page.Limit > 0 && len(msgs) > page.Limit {
		msgs = msgs[:page.Limit]
	}
	return msgs, nil
}

func (s *MemoryStore) SearchThread(_ context.Context, p thread.Predicate, keyword string) ([]models.Message, error) {
	return s.ordered(func(m models.Message) bool {
		return p.Matches(m) && search.Matches(m.Body, keyword)
	}), nil
}

func (s *MemoryStore) StreamParticipantMessages(_ context.Context, userID string, fn func(models.Message) error) error {
	msgs := s.ordered(func(m models.Message) bool {
		return m.SenderID == userID || m.RecipientID == userID
	})
	for _, msg := range msgs {
		if err := fn(msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) ordered(keep func(models.Message) bool) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Message{}
	for _, msg := range s.rows {
		if keep(msg) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		a, _ := strconv.ParseInt(out[i].ID, 10, 64)
		b, _ := strconv.ParseInt(out[j].ID, 10, 64)
		return a < b
	})
	return out
}

var _ repositories.MessageRepository = (*MemoryStore)(nil)
