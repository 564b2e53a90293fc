package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"messaging-service/internal/errs"
	"messaging-service/internal/models"
	"messaging-service/internal/search"
	"messaging-service/internal/thread"
)

// MessagesCollection is the collection holding direct messages.
const MessagesCollection = "messages"

type messageDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SenderID    string             `bson:"sender_id"`
	RecipientID string             `bson:"recipient_id"`
	Body        string             `bson:"body"`
	FileURL     string             `bson:"file_url,omitempty"`
	FileType    string             `bson:"file_type,omitempty"`
	Read        bool               `bson:"read"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d messageDoc) toModel() models.Message {
	msg := models.Message{
		ID:          d.ID.Hex(),
		SenderID:    d.SenderID,
		RecipientID: d.RecipientID,
		Body:        d.Body,
		Read:        d.Read,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.FileURL != "" {
		msg.Attachment = &models.Attachment{URL: d.FileURL, Type: models.FileType(d.FileType)}
	}
	return msg
}

var threadOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// MongoMessageRepo stores messages in a MongoDB collection.
type MongoMessageRepo struct {
	coll *mongo.Collection
}

// NewMongoMessageRepo constructs a MongoMessageRepo on db.
func NewMongoMessageRepo(db *mongo.Database) *MongoMessageRepo {
	return &MongoMessageRepo{coll: db.Collection(MessagesCollection)}
}

// Create inserts a message with a single InsertOne.
func (r *MongoMessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := messageDoc{
		ID:          primitive.NewObjectID(),
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Body:        msg.Body,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if msg.Attachment != nil {
		doc.FileURL = msg.Attachment.URL
		doc.FileType = string(msg.Attachment.Type)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return models.Message{}, errs.Infra("messages.create", err)
	}
	return doc.toModel(), nil
}

// GetByID retrieves a single message.
func (r *MongoMessageRepo) GetByID(ctx context.Context, id string) (models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Message{}, errs.ErrNotFound
	}
	var doc messageDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Message{}, errs.Infra("messages.get", err)
	}
	return doc.toModel(), nil
}

// DeleteByID removes a message permanently.
func (r *MongoMessageRepo) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errs.Infra("messages.delete", err)
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdateBody replaces the text of a message and returns the stored result.
func (r *MongoMessageRepo) UpdateBody(ctx context.Context, id string, body string) (models.Message, error) {
	return r.findAndSet(ctx, "messages.update_body", id, bson.M{"body": body})
}

// MarkRead flags a single message as read.
func (r *MongoMessageRepo) MarkRead(ctx context.Context, id string) (models.Message, error) {
	return r.findAndSet(ctx, "messages.mark_read", id, bson.M{"read": true})
}

func (r *MongoMessageRepo) findAndSet(ctx context.Context, op, id string, set bson.M) (models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Message{}, errs.ErrNotFound
	}
	set["updated_at"] = time.Now().UTC()

	var doc messageDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Message{}, errs.Infra(op, err)
	}
	return doc.toModel(), nil
}

// MarkThreadRead flags every unread message from senderID to recipientID.
func (r *MongoMessageRepo) MarkThreadRead(ctx context.Context, recipientID string, senderID string) (models.ThreadReadResult, error) {
	filter := bson.M{"recipient_id": recipientID, "sender_id": senderID, "read": false}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return models.ThreadReadResult{}, errs.Infra("messages.mark_thread_read", err)
	}
	return models.ThreadReadResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

// CountUnread counts unread messages from senderID to recipientID.
func (r *MongoMessageRepo) CountUnread(ctx context.Context, recipientID string, senderID string) (int, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "sender_id": senderID, "read": false})
	if err != nil {
		return 0, errs.Infra("messages.count_unread", err)
	}
	return int(count), nil
}

// ListThread returns one page of the thread ordered by creation.
func (r *MongoMessageRepo) ListThread(ctx context.Context, p thread.Predicate, page models.Page) ([]models.Message, error) {
	filter := p.Filter()
	if page.Before != nil {
		filter["created_at"] = bson.M{"$lt": *page.Before}
	}
	opts := options.Find().
		SetSort(threadOrder).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))
	return r.find(ctx, "messages.list_thread", filter, opts)
}

// SearchThread returns thread messages whose body contains keyword, ignoring case.
func (r *MongoMessageRepo) SearchThread(ctx context.Context, p thread.Predicate, keyword string) ([]models.Message, error) {
	filter := p.Filter()
	filter["body"] = bson.M{"$regex": search.RegexPattern(keyword), "$options": "i"}
	return r.find(ctx, "messages.search_thread", filter, options.Find().SetSort(threadOrder))
}

// StreamParticipantMessages calls fn for every message the user sent or received.
func (r *MongoMessageRepo) StreamParticipantMessages(ctx context.Context, userID string, fn func(models.Message) error) error {
	filter := bson.M{"$or": bson.A{bson.M{"sender_id": userID}, bson.M{"recipient_id": userID}}}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return errs.Infra("messages.stream_participant", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return errs.Infra("messages.stream_participant", err)
		}
		if err := fn(doc.toModel()); err != nil {
			return err
		}
	}
	return errs.Infra("messages.stream_participant", cursor.Err())
}

func (r *MongoMessageRepo) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]models.Message, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Infra(op, err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errs.Infra(op, err)
	}
	msgs := make([]models.Message, 0, len(docs))
	for _, doc := range docs {
		msgs = append(msgs, doc.toModel())
	}
	return msgs, nil
}

// MongoParticipantRepo reads participants from the "participants" collection.
type MongoParticipantRepo struct {
	coll *mongo.Collection
}

// NewMongoParticipantRepo constructs a MongoParticipantRepo on db.
func NewMongoParticipantRepo(db *mongo.Database) *MongoParticipantRepo {
	return &MongoParticipantRepo{coll: db.Collection("participants")}
}

type participantDoc struct {
	ID       string   `bson:"_id"`
	Fullname string   `bson:"fullname"`
	Username string   `bson:"username"`
	Email    string   `bson:"email"`
	Avatar   string   `bson:"avatar"`
	Roles    []string `bson:"roles"`
}

// BulkParticipants fetches the known participants among ids.
func (r *MongoParticipantRepo) BulkParticipants(ctx context.Context, ids []string) (map[string]models.Participant, error) {
	out := make(map[string]models.Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errs.Infra("participants.bulk", err)
	}
	defer cursor.Close(ctx)

	var docs []participantDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errs.Infra("participants.bulk", err)
	}
	for _, d := range docs {
		out[d.ID] = models.Participant{ID: d.ID, Fullname: d.Fullname, Username: d.Username, Email: d.Email, Avatar: d.Avatar, Roles: d.Roles}
	}
	return out, nil
}

var (
	_ MessageRepository     = (*MessageRepo)(nil)
	_ MessageRepository     = (*MongoMessageRepo)(nil)
	_ ParticipantRepository = (*ParticipantRepo)(nil)
	_ ParticipantRepository = (*MongoParticipantRepo)(nil)
)
