// internal/app/store/support/supportstore.go
package supportstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "support_tickets"

var (
	ErrNotFound       = errors.New("Ticket not found")
	ErrBadCategory    = errors.New("invalid category")
	ErrBadStatus      = errors.New("invalid status")
	ErrEmailRequired  = errors.New("valid email required")
	ErrDescriptionReq = errors.New("description required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create opens a ticket in status "open".
func (s *Store) Create(ctx context.Context, t models.SupportTicket) (models.SupportTicket, error) {
	t.Email = normalize.Email(t.Email)
	if !normalize.ValidEmail(t.Email) {
		return models.SupportTicket{}, ErrEmailRequired
	}
	if !slices.Contains(models.SupportCategories, t.Category) {
		return models.SupportTicket{}, ErrBadCategory
	}
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" {
		return models.SupportTicket{}, ErrDescriptionReq
	}
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Status = "open"
	t.CreatedAt, t.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.SupportTicket{}, err
	}
	return t, nil
}

func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.SupportTicket, error) {
	if !slices.Contains(models.SupportStatuses, status) {
		return nil, ErrBadStatus
	}
	var t models.SupportTicket
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns tickets, optionally of one status and category, newest first.
func (s *Store) List(ctx context.Context, status, category string, p paging.Params) ([]models.SupportTicket, int64, error) {
	q := bson.M{}
	if status != "" {
		q["status"] = status
	}
	if category != "" {
		q["category"] = category
	}
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, p.FindOptions(paging.Newest))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.SupportTicket{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
