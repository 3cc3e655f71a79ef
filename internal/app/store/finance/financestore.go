// internal/app/store/finance/financestore.go
package financestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	Collection         = "finance"
	CategoryCollection = "finance_categories"
)

var (
	ErrNotFound          = errors.New("Finance record not found")
	ErrCategoryNotFound  = errors.New("Category not found")
	ErrCategoryExists    = errors.New("Category already exists")
	ErrBadType           = errors.New("type must be income or expense")
	ErrBadAmount         = errors.New("amount must be positive")
	errCategoryNameEmpty = errors.New("name required")
)

// Store holds finance lines and their categories.
type Store struct {
	c    *mongo.Collection
	cats *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection), cats: db.Collection(CategoryCollection)}
}

func validate(f *models.Finance) error {
	if !models.ValidFinanceType(f.Type) {
		return ErrBadType
	}
	if f.Amount <= 0 {
		return ErrBadAmount
	}
	return nil
}

func (s *Store) Create(ctx context.Context, f models.Finance) (models.Finance, error) {
	if err := validate(&f); err != nil {
		return models.Finance{}, err
	}
	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	if f.Date.IsZero() {
		f.Date = now
	}
	f.CreatedAt, f.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return models.Finance{}, err
	}
	return f, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Finance, error) {
	var f models.Finance
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Update holds the editable fields of a finance line.
type Update struct {
	Type        *string
	Amount      *float64
	CategoryID  *primitive.ObjectID
	Source      *string
	Description *string
	Date        *time.Time
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Finance, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Type != nil {
		if !models.ValidFinanceType(*upd.Type) {
			return nil, ErrBadType
		}
		set["type"] = *upd.Type
	}
	if upd.Amount != nil {
		if *upd.Amount <= 0 {
			return nil, ErrBadAmount
		}
		set["amount"] = *upd.Amount
	}
	if upd.CategoryID != nil {
		set["category_id"] = *upd.CategoryID
	}
	if upd.Source != nil {
		set["source"] = strings.TrimSpace(*upd.Source)
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Date != nil {
		set["date"] = upd.Date.UTC()
	}
	var f models.Finance
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&f)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Query narrows List and Summary on top of a scope predicate.
type Query struct {
	Type string
	From *time.Time
	To   *time.Time
}

func (q Query) apply(base bson.M) bson.M {
	out := bson.M{}
	for k, v := range base {
		out[k] = v
	}
	if q.Type != "" {
		out["type"] = q.Type
	}
	if q.From != nil || q.To != nil {
		rng := bson.M{}
		if q.From != nil {
			rng["$gte"] = q.From.UTC()
		}
		if q.To != nil {
			rng["$lte"] = q.To.UTC()
		}
		out["date"] = rng
	}
	return out
}

func (s *Store) List(ctx context.Context, scope bson.M, q Query, p paging.Params) ([]models.Finance, int64, error) {
	filter := q.apply(scope)
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, p.FindOptions(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Finance{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Summary is income and expense totals over a filter.
type Summary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
	Count   int64   `json:"count"`
}

func (s *Store) Summary(ctx context.Context, scope bson.M, q Query) (Summary, error) {
	q.Type = ""
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: q.apply(scope)}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$type",
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Summary{}, err
	}
	defer cur.Close(ctx)

	var sum Summary
	for cur.Next(ctx) {
		var row struct {
			Type  string  `bson:"_id"`
			Total float64 `bson:"total"`
			Count int64   `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return Summary{}, err
		}
		switch row.Type {
		case models.FinanceIncome:
			sum.Income = row.Total
		case models.FinanceExpense:
			sum.Expense = row.Total
		}
		sum.Count += row.Count
	}
	if err := cur.Err(); err != nil {
		return Summary{}, err
	}
	sum.Balance = sum.Income - sum.Expense
	return sum, nil
}

// CreateCategory adds a category. Names are unique per (unit, type),
// compared lowercased.
func (s *Store) CreateCategory(ctx context.Context, c models.FinanceCategory) (models.FinanceCategory, error) {
	if !models.ValidFinanceType(c.Type) {
		return models.FinanceCategory{}, ErrBadType
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.FinanceCategory{}, errCategoryNameEmpty
	}
	c.ID = primitive.NewObjectID()
	c.NameLower = strings.ToLower(c.Name)
	c.CreatedAt = time.Now().UTC()
	if _, err := s.cats.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.FinanceCategory{}, ErrCategoryExists
		}
		return models.FinanceCategory{}, err
	}
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id primitive.ObjectID) (*models.FinanceCategory, error) {
	var c models.FinanceCategory
	if err := s.cats.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

// RenameCategory changes a category's name within its unit and type.
func (s *Store) RenameCategory(ctx context.Context, id primitive.ObjectID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errCategoryNameEmpty
	}
	res, err := s.cats.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": name, "name_lower": strings.ToLower(name)}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrCategoryExists
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.cats.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// ListCategories returns a unit's categories, optionally of one type.
func (s *Store) ListCategories(ctx context.Context, unit primitive.ObjectID, typ string) ([]models.FinanceCategory, error) {
	q := bson.M{"unit_id": unit}
	if typ != "" {
		q["type"] = typ
	}
	cur, err := s.cats.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name_lower", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.FinanceCategory{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByUnit removes a unit's finance lines and categories.
func (s *Store) DeleteByUnit(ctx context.Context, unit primitive.ObjectID) error {
	if _, err := s.c.DeleteMany(ctx, bson.M{"unit_id": unit}); err != nil {
		return err
	}
	_, err := s.cats.DeleteMany(ctx, bson.M{"unit_id": unit})
	return err
}

// IsValidation reports whether err is an input error from a category write.
func IsValidation(err error) bool {
	return errors.Is(err, errCategoryNameEmpty)
}
