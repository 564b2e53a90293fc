package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/thread"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) GetByID(ctx context.Context, id string) (models.Message, error) {
	args := m.Called(ctx, id)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageRepositoryMock) UpdateBody(ctx context.Context, id string, body string) (models.Message, error) {
	args := m.Called(ctx, id, body)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, id string) (models.Message, error) {
	args := m.Called(ctx, id)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) MarkThreadRead(ctx context.Context, recipientID string, senderID string) (models.ThreadReadResult, error) {
	args := m.Called(ctx, recipientID, senderID)
	var out models.ThreadReadResult
	if val := args.Get(0); val != nil {
		out = val.(models.ThreadReadResult)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, recipientID string, senderID string) (int, error) {
	args := m.Called(ctx, recipientID, senderID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) ListThread(ctx context.Context, p thread.Predicate, page models.Page) ([]models.Message, error) {
	args := m.Called(ctx, p, page)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) SearchThread(ctx context.Context, p thread.Predicate, keyword string) ([]models.Message, error) {
	args := m.Called(ctx, p, keyword)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

// StreamParticipantMessages feeds the messages configured as the first return
// value to fn.
func (m *MessageRepositoryMock) StreamParticipantMessages(ctx context.Context, userID string, fn func(models.Message) error) error {
	args := m.Called(ctx, userID, fn)
	if val := args.Get(0); val != nil {
		for _, msg := range val.([]models.Message) {
			if err := fn(msg); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

type ParticipantRepositoryMock struct {
	mock.Mock
}

func (m *ParticipantRepositoryMock) BulkParticipants(ctx context.Context, ids []string) (map[string]models.Participant, error) {
	args := m.Called(ctx, ids)
	var out map[string]models.Participant
	if val := args.Get(0); val != nil {
		out = val.(map[string]models.Participant)
	}
	return out, args.Error(1)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ParticipantRepository = (*ParticipantRepositoryMock)(nil)
