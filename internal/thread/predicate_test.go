package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"messaging-service/internal/models"
)

func TestPredicateIsSymmetric(t *testing.T) {
	ab := Between("a", "b")
	ba := Between("b", "a")
	assert.True(t, ab.Equal(ba))
	assert.False(t, ab.Equal(Between("a", "c")))

	msgs := []models.Message{
		{ID: "1", SenderID: "a", RecipientID: "b"},
		{ID: "2", SenderID: "b", RecipientID: "a"},
		{ID: "3", SenderID: "a", RecipientID: "c"},
		{ID: "4", SenderID: "c", RecipientID: "b"},
	}
	var fromAB, fromBA []string
	for _, m := range msgs {
		if ab.Matches(m) {
			fromAB = append(fromAB, m.ID)
		}
		if ba.Matches(m) {
			fromBA = append(fromBA, m.ID)
		}
	}
	assert.Equal(t, []string{"1", "2"}, fromAB)
	assert.Equal(t, fromAB, fromBA)
}

func TestPredicateValid(t *testing.T) {
	assert.True(t, Between("a", "b").Valid())
	assert.False(t, Between("a", "a").Valid())
	assert.False(t, Between("", "b").Valid())
	assert.False(t, Between("a", "").Valid())
}

func TestPredicateSQL(t *testing.T) {
	clause, args := Between("u1", "u2").SQL(1)
	assert.Equal(t, "((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))", clause)
	assert.Equal(t, []any{"u1", "u2"}, args)

	clause, _ = Between("u1", "u2").SQL(3)
	assert.Equal(t, "((sender_id = $3 AND recipient_id = $4) OR (sender_id = $4 AND recipient_id = $3))", clause)
}

func TestPredicateFilter(t *testing.T) {
	filter := Between("u1", "u2").Filter()
	or, ok := filter["$or"].(bson.A)
	assert.True(t, ok)
	assert.Len(t, or, 2)
	assert.Equal(t, bson.M{"sender_id": "u1", "recipient_id": "u2"}, or[0])
	assert.Equal(t, bson.M{"sender_id": "u2", "recipient_id": "u1"}, or[1])
}
