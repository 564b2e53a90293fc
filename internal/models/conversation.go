package models

import "time"

// ConversationSummary is one row of a participant's conversation list.
type ConversationSummary struct {
	PartnerID     string       `json:"partner_id"`
	Partner       *Participant `json:"partner"`
	LastMessage   string       `json:"last_message"`
	LastMessageID string       `json:"last_message_id"`
	LastMessageAt time.Time    `json:"last_message_at"`
	UnreadCount   int          `json:"unread_count"`
}

// Participant is the directory entry used to enrich conversation summaries.
type Participant struct {
	ID       string   `db:"id" json:"id"`
	Fullname string   `db:"fullname" json:"fullname"`
	Username string   `db:"username" json:"username"`
	Email    string   `db:"email" json:"email"`
	Avatar   string   `db:"avatar" json:"avatar,omitempty"`
	Roles    []string `db:"-" json:"roles,omitempty"`
}
