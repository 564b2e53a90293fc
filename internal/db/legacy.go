package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// LegacyReport summarizes a legacy pairing backfill.
type LegacyReport struct {
	Scanned  int
	Migrated int
	Skipped  int
}

type legacyRow struct {
	ID          int64          `db:"id"`
	FromStudent sql.NullString `db:"from_student"`
	ToTeacher   sql.NullString `db:"to_teacher"`
	FromTeacher sql.NullString `db:"from_teacher"`
	ToStudent   sql.NullString `db:"to_student"`
	Message     string         `db:"message"`
	FileURL     string         `db:"file_url"`
	FileType    string         `db:"file_type"`
	Read        bool           `db:"read"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r legacyRow) pairing() models.LegacyPairing {
	return models.LegacyPairing{
		FromStudent: r.FromStudent.String,
		ToTeacher:   r.ToTeacher.String,
		FromTeacher: r.FromTeacher.String,
		ToStudent:   r.ToStudent.String,
	}
}

// legacyMessage converts a role-qualified record into a unified message.
func legacyMessage(p models.LegacyPairing, body, fileURL, fileType string, read bool, createdAt time.Time) (models.Message, error) {
	sender, recipient, err := p.Normalize()
	if err != nil {
		return models.Message{}, err
	}
	if sender == recipient {
		return models.Message{}, fmt.Errorf("legacy message addressed to its sender %s", sender)
	}

	msg := models.Message{SenderID: sender, RecipientID: recipient, Body: body, Read: read, CreatedAt: createdAt}
	if fileURL != "" {
		t := models.FileType(fileType)
		if !t.Valid() {
			t = models.FileTypeOther
		}
		msg.Attachment = &models.Attachment{URL: fileURL, Type: t}
	}
	if msg.Body == "" && msg.Attachment == nil {
		return models.Message{}, fmt.Errorf("legacy message has neither text nor attachment")
	}
	return msg, nil
}

// MigrateLegacyPairing copies un-migrated legacy_messages rows into messages,
// keeping their creation time. Rows whose pairing is ambiguous or incomplete are
// left in place and counted as skipped.
func MigrateLegacyPairing(ctx context.Context, db *sqlx.DB) (LegacyReport, error) {
	var report LegacyReport

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin legacy backfill: %w", err)
	}
	defer tx.Rollback()

	var rows []legacyRow
	err = tx.SelectContext(ctx, &rows, `SELECT id, from_student, to_teacher, from_teacher, to_student, message, file_url, file_type, read, created_at
        FROM legacy_messages WHERE migrated_at IS NULL ORDER BY id FOR UPDATE`)
	if err != nil {
		return report, fmt.Errorf("load legacy messages: %w", err)
	}

	for _, row := range rows {
		report.Scanned++
		msg, err := legacyMessage(row.pairing(), row.Message, row.FileURL, row.FileType, row.Read, row.CreatedAt)
		if err != nil {
			log.Printf("legacy message skipped id=%d: %v", row.ID, err)
			report.Skipped++
			continue
		}

		var url, fileType sql.NullString
		if msg.Attachment != nil {
			url = sql.NullString{String: msg.Attachment.URL, Valid: true}
			fileType = sql.NullString{String: string(msg.Attachment.Type), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO messages (sender_id, recipient_id, body, attachment_url, attachment_type, read, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
			msg.SenderID, msg.RecipientID, msg.Body, url, fileType, msg.Read, msg.CreatedAt); err != nil {
			return report, fmt.Errorf("insert legacy message %d: %w", row.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE legacy_messages SET migrated_at = NOW() WHERE id=$1`, row.ID); err != nil {
			return report, fmt.Errorf("mark legacy message %d: %w", row.ID, err)
		}
		report.Migrated++
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit legacy backfill: %w", err)
	}
	log.Printf("legacy backfill done scanned=%d migrated=%d skipped=%d", report.Scanned, report.Migrated, report.Skipped)
	return report, nil
}
