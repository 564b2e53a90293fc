package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/errs"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/ownership"
	"messaging-service/internal/thread"
)

func newMemoryService() (*Service, *mocks.MemoryStore) {
	store := mocks.NewMemoryStore()
	return NewService(store, nil, ownership.Validator{}, nil), store
}

func send(t *testing.T, svc *Service, from, to, body string) models.Message {
	t.Helper()
	msg, err := svc.SendMessage(context.Background(), SendInput{SenderID: from, RecipientID: to, Body: body})
	require.NoError(t, err)
	return msg
}

func bodies(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestSendThenGetThread(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	send(t, svc, "A", "B", "hi")
	send(t, svc, "B", "A", "yo")
	send(t, svc, "A", "C", "elsewhere")

	ab, err := svc.GetThread(ctx, "A", "B", ThreadQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "yo"}, bodies(ab))

	ba, err := svc.GetThread(ctx, "B", "A", ThreadQuery{})
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	for i := 1; i < len(ab); i++ {
		assert.True(t, ab[i-1].CreatedAt.Before(ab[i].CreatedAt))
	}
}

func TestGetThreadPaging(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()
	var sent []models.Message
	for i := 0; i < 5; i++ {
		sent = append(sent, send(t, svc, "A", "B", fmt.Sprintf("m%d", i)))
	}

	page2, err := svc.GetThread(ctx, "A", "B", ThreadQuery{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3"}, bodies(page2))

	before := sent[3].CreatedAt
	older, err := svc.GetThread(ctx, "A", "B", ThreadQuery{Before: &before})
	require.NoError(t, err)
	assert.Equal(t, []string{"m0", "m1", "m2"}, bodies(older))

	history, err := svc.GetChatHistory(ctx, "A", "B", 1)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestThreadQueryClamps(t *testing.T) {
	assert.Equal(t, models.Page{Limit: DefaultLimit}, ThreadQuery{}.page())
	assert.Equal(t, models.Page{Limit: MaxLimit, Offset: MaxLimit}, ThreadQuery{Limit: 5000, Page: 2}.page())
	assert.Equal(t, models.Page{Limit: 10}, ThreadQuery{Limit: 10, Page: -3}.page())
}

func TestGetThreadRejectsInvalidPair(t *testing.T) {
	svc, _ := newMemoryService()

	_, err := svc.GetThread(context.Background(), "A", "A", ThreadQuery{})
	assert.ErrorIs(t, err, errs.ErrInvalidQuery)
	_, err = svc.GetThread(context.Background(), "", "B", ThreadQuery{})
	assert.ErrorIs(t, err, errs.ErrInvalidQuery)
}

func TestSendMessageValidation(t *testing.T) {
	svc, store := newMemoryService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   SendInput
	}{
		{"missing sender", SendInput{RecipientID: "B", Body: "x"}},
		{"missing recipient", SendInput{SenderID: "A", Body: "x"}},
		{"self", SendInput{SenderID: "A", RecipientID: "A", Body: "x"}},
		{"empty", SendInput{SenderID: "A", RecipientID: "B", Body: "   "}},
		{"relative url", SendInput{SenderID: "A", RecipientID: "B", Attachment: &AttachmentInput{URL: "/files/a.png"}}},
		{"ftp url", SendInput{SenderID: "A", RecipientID: "B", Attachment: &AttachmentInput{URL: "ftp://x.example.com/a"}}},
		{"bad type", SendInput{SenderID: "A", RecipientID: "B", Attachment: &AttachmentInput{URL: "https://x.example.com/a", Type: "spreadsheet"}}},
		{"type without url", SendInput{SenderID: "A", RecipientID: "B", Attachment: &AttachmentInput{Type: models.FileTypePDF}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, tc.in)
			assert.ErrorIs(t, err, errs.ErrInvalidMessage)
		})
	}

	count, err := store.CountUnread(ctx, "B", "A")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSendAttachmentOnly(t *testing.T) {
	svc, _ := newMemoryService()

	msg, err := svc.SendMessage(context.Background(), SendInput{
		SenderID:    "A",
		RecipientID: "B",
		Attachment:  &AttachmentInput{URL: "https://cdn.example.com/clip.mp4", MimeType: "video/mp4"},
	})
	require.NoError(t, err)
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, models.FileTypeVideo, msg.Attachment.Type)
	assert.Empty(t, msg.Body)
	assert.False(t, msg.Read)
}

func TestListConversations(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	send(t, svc, "A", "B", "hi")
	send(t, svc, "B", "A", "yo")
	send(t, svc, "C", "A", "hello")
	send(t, svc, "C", "A", "anyone?")
	send(t, svc, "B", "C", "not mine")

	list, err := svc.ListConversations(ctx, "A")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "C", list[0].PartnerID)
	assert.Equal(t, "anyone?", list[0].LastMessage)
	assert.Equal(t, 2, list[0].UnreadCount)
	assert.Equal(t, "B", list[1].PartnerID)
	assert.Equal(t, "yo", list[1].LastMessage)

	for _, summary := range list {
		assert.NotEqual(t, "A", summary.PartnerID)
		unread, err := svc.GetUnreadCount(ctx, "A", summary.PartnerID)
		require.NoError(t, err)
		assert.Equal(t, unread, summary.UnreadCount)
	}
}

func TestListConversationsDropsDeletedThreads(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	msg := send(t, svc, "A", "B", "oops")
	_, err := svc.DeleteMessage(ctx, msg.ID, "A")
	require.NoError(t, err)

	list, err := svc.ListConversations(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListConversationsEnrichment(t *testing.T) {
	store := mocks.NewMemoryStore()
	participants := new(mocks.ParticipantRepositoryMock)
	svc := NewService(store, participants, ownership.Validator{}, nil)
	ctx := context.Background()

	send(t, svc, "A", "B", "one")
	send(t, svc, "A", "C", "two")

	participants.On("BulkParticipants", mock.Anything, mock.MatchedBy(func(ids []string) bool {
		return assert.ElementsMatch(t, []string{"B", "C"}, ids)
	})).Return(map[string]models.Participant{"C": {ID: "C", Username: "carol"}}, nil).Once()

	list, err := svc.ListConversations(ctx, "A")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].Partner)
	assert.Equal(t, "carol", list[0].Partner.Username)
	assert.Nil(t, list[1].Partner)
	participants.AssertExpectations(t)
}

func TestListConversationsIgnoresDirectoryFailure(t *testing.T) {
	store := mocks.NewMemoryStore()
	participants := new(mocks.ParticipantRepositoryMock)
	svc := NewService(store, participants, ownership.Validator{}, nil)

	send(t, svc, "A", "B", "one")
	participants.On("BulkParticipants", mock.Anything, []string{"B"}).Return(nil, assert.AnError).Once()

	list, err := svc.ListConversations(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Partner)
}

func TestListConversationsSkipsDirectoryWhenEmpty(t *testing.T) {
	participants := new(mocks.ParticipantRepositoryMock)
	svc := NewService(mocks.NewMemoryStore(), participants, ownership.Validator{}, nil)

	list, err := svc.ListConversations(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, list)
	participants.AssertNotCalled(t, "BulkParticipants", mock.Anything, mock.Anything)
}

func TestMarkThreadReadIdempotent(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		send(t, svc, "B", "A", "ping")
	}
	send(t, svc, "A", "B", "reply")

	unread, err := svc.GetUnreadCount(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	first, err := svc.MarkThreadRead(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, models.ThreadReadResult{MatchedCount: 3, ModifiedCount: 3}, first)

	second, err := svc.MarkThreadRead(ctx, "A", "B")
	require.NoError(t, err)
	assert.Zero(t, second.ModifiedCount)

	unread, err = svc.GetUnreadCount(ctx, "A", "B")
	require.NoError(t, err)
	assert.Zero(t, unread)

	theirs, err := svc.GetUnreadCount(ctx, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, 1, theirs)
}

func TestMarkMessageRead(t *testing.T) {
	svc, _ := newMemoryService()
	msg := send(t, svc, "B", "A", "read me")

	read, err := svc.MarkMessageRead(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	_, err = svc.MarkMessageRead(context.Background(), "999")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEditMessage(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()
	msg := send(t, svc, "A", "B", "tpyo")

	_, err := svc.EditMessage(ctx, msg.ID, "B", "hijack")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = svc.EditMessage(ctx, msg.ID, "", "anonymous")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = svc.EditMessage(ctx, msg.ID, "A", "  ")
	assert.ErrorIs(t, err, errs.ErrInvalidMessage)

	edited, err := svc.EditMessage(ctx, msg.ID, "A", "typo")
	require.NoError(t, err)
	assert.Equal(t, "typo", edited.Body)
	assert.Equal(t, msg.SenderID, edited.SenderID)
	assert.Equal(t, msg.RecipientID, edited.RecipientID)
	assert.Equal(t, msg.CreatedAt, edited.CreatedAt)

	_, err = svc.EditMessage(ctx, "404", "A", "x")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEditMessageAnonymousDegradedMode(t *testing.T) {
	store := mocks.NewMemoryStore()
	svc := NewService(store, nil, ownership.Validator{AllowAnonymous: true}, nil)
	msg := send(t, svc, "A", "B", "before")

	edited, err := svc.EditMessage(context.Background(), msg.ID, "", "after")
	require.NoError(t, err)
	assert.Equal(t, "after", edited.Body)

	_, err = svc.EditMessage(context.Background(), msg.ID, "B", "nope")
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestDeleteMessage(t *testing.T) {
	svc, store := newMemoryService()
	ctx := context.Background()
	msg := send(t, svc, "A", "B", "bye")

	_, err := svc.DeleteMessage(ctx, msg.ID, "B")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	res, err := svc.DeleteMessage(ctx, msg.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{ID: msg.ID}, res)

	_, err = store.GetByID(ctx, msg.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.DeleteMessage(ctx, msg.ID, "A")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSearchThread(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	send(t, svc, "A", "B", "yo there")
	send(t, svc, "B", "A", "nothing")
	send(t, svc, "B", "A", "100% sure")
	send(t, svc, "A", "C", "yo elsewhere")

	found, err := svc.SearchThread(ctx, "A", "B", "YO")
	require.NoError(t, err)
	assert.Equal(t, []string{"yo there"}, bodies(found))

	literal, err := svc.SearchThread(ctx, "B", "A", "0%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% sure"}, bodies(literal))

	_, err = svc.SearchThread(ctx, "A", "B", "")
	assert.ErrorIs(t, err, errs.ErrInvalidQuery)
}

func TestSearchThreadKeepsSurroundingWhitespace(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()

	send(t, svc, "A", "B", "yoyo")
	send(t, svc, "A", "B", "hey yo")
	send(t, svc, "B", "A", "nospaces")

	found, err := svc.SearchThread(ctx, "A", "B", " yo")
	require.NoError(t, err)
	assert.Equal(t, []string{"hey yo"}, bodies(found))

	spaced, err := svc.SearchThread(ctx, "B", "A", " ")
	require.NoError(t, err)
	assert.Equal(t, []string{"hey yo"}, bodies(spaced))
}

func TestInfrastructureErrorsPassThrough(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	svc := NewService(repo, nil, ownership.Validator{}, nil)
	ctx := context.Background()
	infra := errs.Infra("messages.list_thread", context.DeadlineExceeded)

	repo.On("ListThread", mock.Anything, thread.Between("A", "B"), models.Page{Limit: DefaultLimit}).Return(nil, infra).Once()
	repo.On("StreamParticipantMessages", mock.Anything, "A", mock.Anything).Return(nil, infra).Once()

	_, err := svc.GetThread(ctx, "A", "B", ThreadQuery{})
	assert.True(t, errs.IsRetryable(err))

	_, err = svc.ListConversations(ctx, "A")
	var infraErr *errs.InfrastructureError
	assert.True(t, errors.As(err, &infraErr))
	repo.AssertExpectations(t)
}

func TestSendMessagePublishesEvent(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	publisher := new(mocks.PublisherMock)
	svc := NewService(repo, nil, ownership.Validator{}, publisher)
	ctx := observability.WithRequestID(context.Background(), "req-7")
	stored := models.Message{ID: "1", SenderID: "A", RecipientID: "B", Body: "hi", CreatedAt: time.Now()}

	repo.On("Create", mock.Anything, models.Message{SenderID: "A", RecipientID: "B", Body: "hi"}).Return(stored, nil).Once()
	publisher.ExpectEvent(observability.EventMessageSent, func(event observability.EventEnvelope) bool {
		return event.RequestID == "req-7" && event.Payload == stored
	}).Return(assert.AnError)

	msg, err := svc.SendMessage(ctx, SendInput{SenderID: "A", RecipientID: "B", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, stored, msg)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestMarkThreadReadSkipsEventWhenNothingChanged(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	publisher := new(mocks.PublisherMock)
	svc := NewService(repo, nil, ownership.Validator{}, publisher)

	repo.On("MarkThreadRead", mock.Anything, "A", "B").Return(models.ThreadReadResult{}, nil).Once()

	_, err := svc.MarkThreadRead(context.Background(), "A", "B")
	require.NoError(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkThreadReadPublishesEvent(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	publisher := new(mocks.PublisherMock)
	svc := NewService(repo, nil, ownership.Validator{}, publisher)
	result := models.ThreadReadResult{MatchedCount: 3, ModifiedCount: 2}

	repo.On("MarkThreadRead", mock.Anything, "A", "B").Return(result, nil).Once()
	publisher.ExpectEvent(observability.EventThreadRead, func(event observability.EventEnvelope) bool {
		payload, ok := event.Payload.(threadReadEvent)
		return ok && payload.RecipientID == "A" && payload.SenderID == "B" && payload.ModifiedCount == 2
	}).Return(nil)

	got, err := svc.MarkThreadRead(context.Background(), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, result, got)
	publisher.AssertExpectations(t)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "message_not_found", outcome(errs.ErrNotFound))
	assert.Equal(t, "invalid_query", outcome(errs.InvalidQuery("x")))
	assert.Equal(t, "error", outcome(errs.Infra("op", assert.AnError)))
}
