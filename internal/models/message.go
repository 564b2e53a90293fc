package models

import "time"

// Message is a direct message between exactly two participants.
type Message struct {
	ID          string      `json:"id"`
	SenderID    string      `json:"sender_id"`
	RecipientID string      `json:"recipient_id"`
	Body        string      `json:"body"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	Read        bool        `json:"read"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PartnerOf returns the other side of the message as seen by userID.
func (m Message) PartnerOf(userID string) string {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

// ThreadReadResult reports the outcome of marking a thread read.
type ThreadReadResult struct {
	MatchedCount  int64 `json:"matched_count"`
	ModifiedCount int64 `json:"modified_count"`
}

// Page describes a window over a thread ordered by created_at ascending.
// Before, when set, is an exclusive upper bound on created_at.
type Page struct {
	Limit  int
	Offset int
	Before *time.Time
}
