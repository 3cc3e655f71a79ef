// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "messages"

var (
	ErrNotFound      = errors.New("Message not found")
	ErrNoRecipient   = errors.New("to or toUnit required")
	ErrTwoRecipients = errors.New("message cannot be addressed to both a user and a unit")
	ErrEmpty         = errors.New("text or attachments required")
	ErrBadAttachment = errors.New("attachment type must be image, file or other")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func validAttachment(a models.Attachment) bool {
	switch a.Type {
	case models.AttachmentImage, models.AttachmentFile, models.AttachmentOther:
		return strings.TrimSpace(a.URL) != ""
	}
	return false
}

// Create stores a message. Text must already be sanitized.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	switch {
	case m.To == nil && m.ToUnit == nil:
		return models.Message{}, ErrNoRecipient
	case m.To != nil && m.ToUnit != nil:
		return models.Message{}, ErrTwoRecipients
	}
	if strings.TrimSpace(m.Text) == "" && len(m.Attachments) == 0 {
		return models.Message{}, ErrEmpty
	}
	for _, a := range m.Attachments {
		if !validAttachment(a) {
			return models.Message{}, ErrBadAttachment
		}
	}
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now().UTC()
	m.ReadBy = []primitive.ObjectID{m.From}
	m.ArchivedFor = []primitive.ObjectID{}
	m.DeletedFor = []primitive.ObjectID{}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var m models.Message
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) page(ctx context.Context, q bson.M, p paging.Params) ([]models.Message, int64, error) {
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, p.FindOptions(paging.Newest))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Inbox lists messages sent to the user directly or to any of units,
// excluding ones the user archived or deleted.
func (s *Store) Inbox(ctx context.Context, user primitive.ObjectID, units []primitive.ObjectID, p paging.Params) ([]models.Message, int64, error) {
	or := bson.A{bson.M{"to": user}}
	if len(units) > 0 {
		or = append(or, bson.M{"to_unit": bson.M{"$in": units}})
	}
	q := bson.M{
		"$or":          or,
		"archived_for": bson.M{"$ne": user},
		"deleted_for":  bson.M{"$ne": user},
	}
	return s.page(ctx, q, p)
}

// Conversation lists direct messages between two users in both directions.
func (s *Store) Conversation(ctx context.Context, me, other primitive.ObjectID, p paging.Params) ([]models.Message, int64, error) {
	q := bson.M{
		"$or": bson.A{
			bson.M{"from": me, "to": other},
			bson.M{"from": other, "to": me},
		},
		"deleted_for": bson.M{"$ne": me},
	}
	return s.page(ctx, q, p)
}

// Unit lists messages addressed to a unit.
func (s *Store) Unit(ctx context.Context, unit, viewer primitive.ObjectID, p paging.Params) ([]models.Message, int64, error) {
	return s.page(ctx, bson.M{"to_unit": unit, "deleted_for": bson.M{"$ne": viewer}}, p)
}

func (s *Store) addToSet(ctx context.Context, id primitive.ObjectID, field string, user primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{field: user}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkRead(ctx context.Context, id, user primitive.ObjectID) error {
	return s.addToSet(ctx, id, "read_by", user)
}

func (s *Store) Archive(ctx context.Context, id, user primitive.ObjectID) error {
	return s.addToSet(ctx, id, "archived_for", user)
}

// DeleteFor hides the message from one user only.
func (s *Store) DeleteFor(ctx context.Context, id, user primitive.ObjectID) error {
	return s.addToSet(ctx, id, "deleted_for", user)
}

func (s *Store) SetDelivered(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"delivered": true}})
	return err
}

// CountUnread counts inbox messages the user has not read.
func (s *Store) CountUnread(ctx context.Context, user primitive.ObjectID, units []primitive.ObjectID) (int64, error) {
	or := bson.A{bson.M{"to": user}}
	if len(units) > 0 {
		or = append(or, bson.M{"to_unit": bson.M{"$in": units}})
	}
	return s.c.CountDocuments(ctx, bson.M{
		"$or":         or,
		"read_by":     bson.M{"$ne": user},
		"deleted_for": bson.M{"$ne": user},
	})
}
