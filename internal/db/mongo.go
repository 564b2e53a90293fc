package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"messaging-service/internal/models"
)

const messagesCollection = "messages"

// ConnectMongo dials MongoDB, verifies the connection and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(30 * time.Second).
		SetConnectTimeout(30 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	if err := EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	log.Printf("mongo connected database=%s", database)
	return client, db, nil
}

// EnsureIndexes creates the thread, unread and recency indexes on messages.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(messagesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "recipient_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}

type legacyDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	FromStudent primitive.ObjectID `bson:"fromStudent,omitempty"`
	ToTeacher   primitive.ObjectID `bson:"toTeacher,omitempty"`
	FromTeacher primitive.ObjectID `bson:"fromTeacher,omitempty"`
	ToStudent   primitive.ObjectID `bson:"toStudent,omitempty"`
	FromUser    primitive.ObjectID `bson:"fromUser,omitempty"`
	ToUser      primitive.ObjectID `bson:"toUser,omitempty"`
	Message     string             `bson:"message"`
	FileURL     string             `bson:"fileUrl"`
	FileType    string             `bson:"fileType"`
	Read        bool               `bson:"read"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

func (d legacyDoc) toMessage() (models.Message, error) {
	p := models.LegacyPairing{
		FromStudent: hexOrEmpty(d.FromStudent),
		ToTeacher:   hexOrEmpty(d.ToTeacher),
		FromTeacher: hexOrEmpty(d.FromTeacher),
		ToStudent:   hexOrEmpty(d.ToStudent),
	}
	if p == (models.LegacyPairing{}) && !d.FromUser.IsZero() {
		// fromUser/toUser already names the direction.
		p = models.LegacyPairing{FromStudent: hexOrEmpty(d.FromUser), ToTeacher: hexOrEmpty(d.ToUser)}
	}
	return legacyMessage(p, d.Message, d.FileURL, d.FileType, d.Read, d.CreatedAt)
}

var legacyFilter = bson.M{
	"sender_id": bson.M{"$exists": false},
	"$or": bson.A{
		bson.M{"fromStudent": bson.M{"$exists": true}},
		bson.M{"fromTeacher": bson.M{"$exists": true}},
		bson.M{"toStudent": bson.M{"$exists": true}},
		bson.M{"toTeacher": bson.M{"$exists": true}},
		bson.M{"fromUser": bson.M{"$exists": true}},
	},
}

// MigrateLegacyMongo rewrites legacy documents in place into the unified
// sender/recipient shape. Documents that cannot be normalized are left untouched.
func MigrateLegacyMongo(ctx context.Context, db *mongo.Database) (LegacyReport, error) {
	var report LegacyReport
	coll := db.Collection(messagesCollection)

	cursor, err := coll.Find(ctx, legacyFilter)
	if err != nil {
		return report, fmt.Errorf("load legacy messages: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		report.Scanned++
		var doc legacyDoc
		if err := cursor.Decode(&doc); err != nil {
			return report, fmt.Errorf("decode legacy message: %w", err)
		}
		msg, err := doc.toMessage()
		if err != nil {
			log.Printf("legacy message skipped id=%s: %v", doc.ID.Hex(), err)
			report.Skipped++
			continue
		}

		set := bson.M{
			"sender_id":    msg.SenderID,
			"recipient_id": msg.RecipientID,
			"body":         msg.Body,
			"read":         msg.Read,
			"created_at":   msg.CreatedAt,
			"updated_at":   msg.CreatedAt,
		}
		if msg.Attachment != nil {
			set["file_url"] = msg.Attachment.URL
			set["file_type"] = string(msg.Attachment.Type)
		}
		unset := bson.M{"fromStudent": "", "toTeacher": "", "fromTeacher": "", "toStudent": "", "fromUser": "", "toUser": "", "message": "", "fileUrl": "", "fileType": "", "createdAt": "", "updatedAt": ""}
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": set, "$unset": unset}); err != nil {
			return report, fmt.Errorf("rewrite legacy message %s: %w", doc.ID.Hex(), err)
		}
		report.Migrated++
	}
	if err := cursor.Err(); err != nil {
		return report, fmt.Errorf("iterate legacy messages: %w", err)
	}

	log.Printf("legacy backfill done scanned=%d migrated=%d skipped=%d", report.Scanned, report.Migrated, report.Skipped)
	return report, nil
}
