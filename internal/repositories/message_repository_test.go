package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/errs"
	"messaging-service/internal/models"
	"messaging-service/internal/thread"
)

var columns = []string{"id", "sender_id", "recipient_id", "body", "attachment_url", "attachment_type", "read", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*MessageRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMessageRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateMessage(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages (sender_id, recipient_id, body, attachment_url, attachment_type)")).
		WithArgs("a", "b", "see file", "https://cdn.example.com/f.pdf", "pdf").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(7), "a", "b", "see file", "https://cdn.example.com/f.pdf", "pdf", false, now, now))

	msg, err := repo.Create(context.Background(), models.Message{
		SenderID:    "a",
		RecipientID: "b",
		Body:        "see file",
		Attachment:  &models.Attachment{URL: "https://cdn.example.com/f.pdf", Type: models.FileTypePDF},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", msg.ID)
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, models.FileTypePDF, msg.Attachment.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMessageDriverErrorIsInfrastructure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO messages").WillReturnError(errors.New("connection reset"))

	_, err := repo.Create(context.Background(), models.Message{SenderID: "a", RecipientID: "b", Body: "hi"})
	var infra *errs.InfrastructureError
	assert.True(t, errors.As(err, &infra))
	assert.True(t, errs.IsRetryable(err))
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM messages WHERE id=").WithArgs(int64(42)).WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByID(context.Background(), "42")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDRejectsMalformedID(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.GetByID(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM messages WHERE id=").WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM messages WHERE id=").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DeleteByID(context.Background(), "3"))
	assert.ErrorIs(t, repo.DeleteByID(context.Background(), "4"), errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBodyNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE messages SET body=$2")).WithArgs(int64(9), "edited").WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.UpdateBody(context.Background(), "9", "edited")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkThreadRead(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("WITH matched AS").WithArgs("me", "peer").
		WillReturnRows(sqlmock.NewRows([]string{"matched", "modified"}).AddRow(int64(3), int64(3)))

	res, err := repo.MarkThreadRead(context.Background(), "me", "peer")
	require.NoError(t, err)
	assert.Equal(t, models.ThreadReadResult{MatchedCount: 3, ModifiedCount: 3}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE recipient_id=$1 AND sender_id=$2 AND read = FALSE")).
		WithArgs("me", "peer").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountUnread(context.Background(), "me", "peer")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListThreadWithBefore(t *testing.T) {
	repo, mock := newMockRepo(t)
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := before.Add(-2 * time.Minute)
	t2 := before.Add(-time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("AND created_at < $3 ORDER BY created_at ASC, id ASC LIMIT $4 OFFSET $5")).
		WithArgs("a", "b", before, 50, 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "a", "b", "hi", nil, nil, true, t1, t1).
			AddRow(int64(2), "b", "a", "yo", nil, nil, false, t2, t2))

	msgs, err := repo.ListThread(context.Background(), thread.Between("a", "b"), models.Page{Limit: 50, Before: &before})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Nil(t, msgs[0].Attachment)
	assert.Equal(t, "yo", msgs[1].Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchThreadEscapesKeyword(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`AND body ILIKE $3 ESCAPE '\'`)).
		WithArgs("a", "b", `%100\%%`).
		WillReturnRows(sqlmock.NewRows(columns))

	msgs, err := repo.SearchThread(context.Background(), thread.Between("a", "b"), "100%")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamParticipantMessages(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sender_id=$1 OR recipient_id=$1")).WithArgs("a").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "a", "b", "one", nil, nil, false, now, now).
			AddRow(int64(2), "c", "a", "two", nil, nil, false, now, now))

	var seen []string
	err := repo.StreamParticipantMessages(context.Background(), "a", func(m models.Message) error {
		seen = append(seen, m.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamParticipantMessagesStopsOnCallbackError(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery("WHERE sender_id").WillReturnRows(sqlmock.NewRows(columns).
		AddRow(int64(1), "a", "b", "one", nil, nil, false, now, now).
		AddRow(int64(2), "a", "b", "two", nil, nil, false, now, now))

	stop := errors.New("stop")
	calls := 0
	err := repo.StreamParticipantMessages(context.Background(), "a", func(models.Message) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestBulkParticipants(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewParticipantRepo(sqlx.NewDb(db, "postgres"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM participants WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullname", "username", "email", "avatar", "roles"}).
			AddRow("t1", "Tina Teacher", "tina", "tina@example.com", "", "{educator,student}"))

	got, err := repo.BulkParticipants(context.Background(), []string{"t1", "gone"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tina", got["t1"].Username)
	assert.Equal(t, []string{"educator", "student"}, got["t1"].Roles)

	empty, err := repo.BulkParticipants(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
