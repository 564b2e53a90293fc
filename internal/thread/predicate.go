// Package thread resolves the pairing between two participants independent of
// who sent which message.
package thread

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"messaging-service/internal/models"
)

// Predicate selects every message exchanged between A and B in either direction.
type Predicate struct {
	A string
	B string
}

// Between builds the thread predicate for two participants. Argument order does not
// change the selected set.
func Between(a, b string) Predicate {
	return Predicate{A: a, B: b}
}

// Valid reports whether both sides are present and distinct.
func (p Predicate) Valid() bool {
	return p.A != "" && p.B != "" && p.A != p.B
}

// Equal reports whether two predicates select the same thread.
func (p Predicate) Equal(other Predicate) bool {
	return (p.A == other.A && p.B == other.B) || (p.A == other.B && p.B == other.A)
}

// Matches evaluates the predicate against a single message.
func (p Predicate) Matches(m models.Message) bool {
	return (m.SenderID == p.A && m.RecipientID == p.B) ||
		(m.SenderID == p.B && m.RecipientID == p.A)
}

// SQL renders the predicate with positional placeholders starting at $argOffset and
// returns the clause with its arguments.
func (p Predicate) SQL(argOffset int) (string, []any) {
	a, b := argOffset, argOffset+1
	clause := fmt.Sprintf("((sender_id = $%d AND recipient_id = $%d) OR (sender_id = $%d AND recipient_id = $%d))", a, b, b, a)
	return clause, []any{p.A, p.B}
}

// Filter renders the predicate as a MongoDB filter document.
func (p Predicate) Filter() bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{"sender_id": p.A, "recipient_id": p.B},
			bson.M{"sender_id": p.B, "recipient_id": p.A},
		},
	}
}
