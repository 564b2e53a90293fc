package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/errs"
	"messaging-service/internal/models"
	"messaging-service/internal/search"
	"messaging-service/internal/thread"
)

// MessageRepository is the message store. Every thread-scoped read goes through a
// thread.Predicate so both directions are always covered.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	GetByID(ctx context.Context, id string) (models.Message, error)
	DeleteByID(ctx context.Context, id string) error
	UpdateBody(ctx context.Context, id string, body string) (models.Message, error)
	MarkRead(ctx context.Context, id string) (models.Message, error)
	MarkThreadRead(ctx context.Context, recipientID string, senderID string) (models.ThreadReadResult, error)
	CountUnread(ctx context.Context, recipientID string, senderID string) (int, error)
	ListThread(ctx context.Context, p thread.Predicate, page models.Page) ([]models.Message, error)
	SearchThread(ctx context.Context, p thread.Predicate, keyword string) ([]models.Message, error)
	StreamParticipantMessages(ctx context.Context, userID string, fn func(models.Message) error) error
}

const messageColumns = `id, sender_id, recipient_id, body, attachment_url, attachment_type, read, created_at, updated_at`

type messageRow struct {
	ID             int64          `db:"id"`
	SenderID       string         `db:"sender_id"`
	RecipientID    string         `db:"recipient_id"`
	Body           string         `db:"body"`
	AttachmentURL  sql.NullString `db:"attachment_url"`
	AttachmentType sql.NullString `db:"attachment_type"`
	Read           bool           `db:"read"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r messageRow) toModel() models.Message {
	msg := models.Message{
		ID:          strconv.FormatInt(r.ID, 10),
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Body:        r.Body,
		Read:        r.Read,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.AttachmentURL.Valid && r.AttachmentURL.String != "" {
		msg.Attachment = &models.Attachment{URL: r.AttachmentURL.String, Type: models.FileType(r.AttachmentType.String)}
	}
	return msg
}

// MessageRepo is a sqlx-backed repository on Postgres.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a message in a single statement.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	var url, fileType sql.NullString
	if msg.Attachment != nil {
		url = sql.NullString{String: msg.Attachment.URL, Valid: true}
		fileType = sql.NullString{String: string(msg.Attachment.Type), Valid: true}
	}

	var row messageRow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, recipient_id, body, attachment_url, attachment_type)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+messageColumns,
		msg.SenderID, msg.RecipientID, msg.Body, url, fileType).StructScan(&row)
	if err != nil {
		return models.Message{}, errs.Infra("messages.create", err)
	}
	return row.toModel(), nil
}

// GetByID retrieves a single message.
func (r *MessageRepo) GetByID(ctx context.Context, id string) (models.Message, error) {
	key, ok := parseID(id)
	if !ok {
		return models.Message{}, errs.ErrNotFound
	}
	var row messageRow
	err := r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Message{}, errs.Infra("messages.get", err)
	}
	return row.toModel(), nil
}

// DeleteByID removes a message permanently.
func (r *MessageRepo) DeleteByID(ctx context.Context, id string) error {
	key, ok := parseID(id)
	if !ok {
		return errs.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, key)
	if err != nil {
		return errs.Infra("messages.delete", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return errs.Infra("messages.delete", err)
	}
	if count == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdateBody replaces the text of a message and returns the stored result.
func (r *MessageRepo) UpdateBody(ctx context.Context, id string, body string) (models.Message, error) {
	key, ok := parseID(id)
	if !ok {
		return models.Message{}, errs.ErrNotFound
	}
	var row messageRow
	err := r.db.GetContext(ctx, &row, `UPDATE messages SET body=$2, updated_at=clock_timestamp() WHERE id=$1 RETURNING `+messageColumns, key, body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Message{}, errs.Infra("messages.update_body", err)
	}
	return row.toModel(), nil
}

// MarkRead flags a single message as read.
func (r *MessageRepo) MarkRead(ctx context.Context, id string) (models.Message, error) {
	key, ok := parseID(id)
	if !ok {
		return models.Message{}, errs.ErrNotFound
	}
	var row messageRow
	err := r.db.GetContext(ctx, &row, `UPDATE messages SET read = TRUE, updated_at=clock_timestamp() WHERE id=$1 RETURNING `+messageColumns, key)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Message{}, errs.Infra("messages.mark_read", err)
	}
	return row.toModel(), nil
}

// MarkThreadRead flags every unread message from senderID to recipientID in one
// statement. Rows committed after the statement's snapshot are left untouched.
func (r *MessageRepo) MarkThreadRead(ctx context.Context, recipientID string, senderID string) (models.ThreadReadResult, error) {
	query := `WITH matched AS (
            SELECT id FROM messages WHERE recipient_id=$1 AND sender_id=$2 AND read = FALSE
        ), updated AS (
            UPDATE messages m SET read = TRUE, updated_at = clock_timestamp()
            FROM matched WHERE m.id = matched.id AND m.read = FALSE
            RETURNING m.id
        )
        SELECT (SELECT COUNT(*) FROM matched) AS matched, (SELECT COUNT(*) FROM updated) AS modified`
	var out struct {
		Matched  int64 `db:"matched"`
		Modified int64 `db:"modified"`
	}
	if err := r.db.GetContext(ctx, &out, query, recipientID, senderID); err != nil {
		return models.ThreadReadResult{}, errs.Infra("messages.mark_thread_read", err)
	}
	return models.ThreadReadResult{MatchedCount: out.Matched, ModifiedCount: out.Modified}, nil
}

// CountUnread counts unread messages from senderID to recipientID.
func (r *MessageRepo) CountUnread(ctx context.Context, recipientID string, senderID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE recipient_id=$1 AND sender_id=$2 AND read = FALSE`, recipientID, senderID)
	if err != nil {
		return 0, errs.Infra("messages.count_unread", err)
	}
	return count, nil
}

// ListThread returns one page of the thread ordered by creation.
func (r *MessageRepo) ListThread(ctx context.Context, p thread.Predicate, page models.Page) ([]models.Message, error) {
	clause, args := p.SQL(1)
	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + clause
	if page.Before != nil {
		args = append(args, *page.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return r.selectMessages(ctx, "messages.list_thread", query, args...)
}

// SearchThread returns thread messages whose body contains keyword, ignoring case.
func (r *MessageRepo) SearchThread(ctx context.Context, p thread.Predicate, keyword string) ([]models.Message, error) {
	clause, args := p.SQL(1)
	args = append(args, search.LikePattern(keyword))
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE %s AND body ILIKE $%d ESCAPE '%s' ORDER BY created_at ASC, id ASC`,
		messageColumns, clause, len(args), search.LikeEscape)

	return r.selectMessages(ctx, "messages.search_thread", query, args...)
}

// StreamParticipantMessages calls fn for every message the user sent or received.
// Iteration stops at the first error returned by fn.
func (r *MessageRepo) StreamParticipantMessages(ctx context.Context, userID string, fn func(models.Message) error) error {
	rows, err := r.db.QueryxContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE sender_id=$1 OR recipient_id=$1`, userID)
	if err != nil {
		return errs.Infra("messages.stream_participant", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row messageRow
		if err := rows.StructScan(&row); err != nil {
			return errs.Infra("messages.stream_participant", err)
		}
		if err := fn(row.toModel()); err != nil {
			return err
		}
	}
	return errs.Infra("messages.stream_participant", rows.Err())
}

func (r *MessageRepo) selectMessages(ctx context.Context, op, query string, args ...any) ([]models.Message, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errs.Infra(op, err)
	}
	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toModel())
	}
	return msgs, nil
}

func parseID(id string) (int64, bool) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 {
		return 0, false
	}
	return key, true
}
