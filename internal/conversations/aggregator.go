// Package conversations builds a participant's conversation list from the message
// stream: one summary per partner carrying the latest message and the unread count.
package conversations

import (
	"sort"
	"strconv"

	"messaging-service/internal/models"
)

// Aggregator groups messages by partner for a single participant. Feed it every
// message where the participant is sender or recipient, in any order.
type Aggregator struct {
	userID string
	groups map[string]*group
}

type group struct {
	latest models.Message
	unread int
}

// New returns an empty aggregator for userID.
func New(userID string) *Aggregator {
	return &Aggregator{userID: userID, groups: make(map[string]*group)}
}

// Add folds one message into the aggregate. Messages that do not involve the
// participant, or that the participant addressed to itself, are ignored.
func (a *Aggregator) Add(m models.Message) {
	if m.SenderID != a.userID && m.RecipientID != a.userID {
		return
	}
	partner := m.PartnerOf(a.userID)
	if partner == a.userID || partner == "" {
		return
	}

	g, ok := a.groups[partner]
	if !ok {
		g = &group{latest: m}
		a.groups[partner] = g
	} else if newer(m, g.latest) {
		g.latest = m
	}
	if m.RecipientID == a.userID && !m.Read {
		g.unread++
	}
}

// Len returns the number of distinct partners seen so far.
func (a *Aggregator) Len() int {
	return len(a.groups)
}

// PartnerIDs returns the distinct partners in no particular order.
func (a *Aggregator) PartnerIDs() []string {
	ids := make([]string, 0, len(a.groups))
	for id := range a.groups {
		ids = append(ids, id)
	}
	return ids
}

// Summaries returns one summary per partner, most recently active first.
func (a *Aggregator) Summaries() []models.ConversationSummary {
	out := make([]models.ConversationSummary, 0, len(a.groups))
	for partner, g := range a.groups {
		out = append(out, models.ConversationSummary{
			PartnerID:     partner,
			LastMessage:   g.latest.Body,
			LastMessageID: g.latest.ID,
			LastMessageAt: g.latest.CreatedAt,
			UnreadCount:   g.unread,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return CompareIDs(out[i].LastMessageID, out[j].LastMessageID) > 0
	})
	return out
}

// Enrich attaches directory entries to summaries. Partners missing from the
// directory keep a nil Partner.
func Enrich(summaries []models.ConversationSummary, directory map[string]models.Participant) {
	for i := range summaries {
		if p, ok := directory[summaries[i].PartnerID]; ok {
			summaries[i].Partner = &p
		}
	}
}

// newer reports whether m supersedes current as the latest message of a group.
func newer(m, current models.Message) bool {
	if !m.CreatedAt.Equal(current.CreatedAt) {
		return m.CreatedAt.After(current.CreatedAt)
	}
	return CompareIDs(m.ID, current.ID) > 0
}

// CompareIDs orders message ids by insertion. Numeric ids compare numerically,
// anything else (ObjectID hex) compares lexically.
func CompareIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
