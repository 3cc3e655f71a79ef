package userstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const Collection = "users"

// Unique index names, used to tell duplicate-key errors apart.
const (
	PhoneIndex = "uniq_users_phone"
	EmailIndex = "uniq_users_email_ci"
)

var (
	ErrNotFound = errors.New("User not found")
	// ErrDuplicatePhone is returned when a phone number is already registered.
	ErrDuplicatePhone = errors.New("Phone number already registered")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("Email already registered")
	errPhoneRequired  = errors.New("phone required")
	errNameRequired   = errors.New("first_name and surname required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func translateDup(err error) error {
	if !wafflemongo.IsDup(err) {
		return err
	}
	if strings.Contains(err.Error(), EmailIndex) {
		return ErrDuplicateEmail
	}
	return ErrDuplicatePhone
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, pw string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// IsValidation reports whether err came from Create rejecting its input.
func IsValidation(err error) bool {
	return errors.Is(err, errPhoneRequired) || errors.Is(err, errNameRequired)
}

// Create normalizes and inserts a user. Password is the plaintext password;
// it is hashed before storage. A zero ID is assigned a fresh one.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.FirstName = normalize.Name(u.FirstName)
	u.MiddleName = normalize.Name(u.MiddleName)
	u.Surname = normalize.Name(u.Surname)
	if u.FirstName == "" || u.Surname == "" {
		return models.User{}, errNameRequired
	}
	u.Phone = normalize.Phone(u.Phone)
	if u.Phone == "" {
		return models.User{}, errPhoneRequired
	}
	u.Email = normalize.Email(u.Email)
	u.EmailCI = text.Fold(u.Email)
	u.FullNameCI = text.Fold(u.FullName())
	if password != "" {
		h, err := HashPassword(password)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = h
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, translateDup(err)
	}
	return u, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user document. Roles are not populated; use Fetcher.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"phone": normalize.Phone(phone)})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email_ci": text.Fold(normalize.Email(email))})
}

// PhoneExists reports whether phone is registered.
func (s *Store) PhoneExists(ctx context.Context, phone string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"phone": normalize.Phone(phone)})
	return n > 0, err
}

// ProfileUpdate holds the self-editable fields. Nil fields are left alone.
type ProfileUpdate struct {
	Title      *string
	FirstName  *string
	MiddleName *string
	Surname    *string
	Email      *string
	Profile    *models.Profile
}

func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = strings.TrimSpace(*upd.Title)
	}
	if upd.FirstName != nil {
		cur.FirstName = normalize.Name(*upd.FirstName)
		set["first_name"] = cur.FirstName
	}
	if upd.MiddleName != nil {
		cur.MiddleName = normalize.Name(*upd.MiddleName)
		set["middle_name"] = cur.MiddleName
	}
	if upd.Surname != nil {
		cur.Surname = normalize.Name(*upd.Surname)
		set["surname"] = cur.Surname
	}
	if cur.FirstName == "" || cur.Surname == "" {
		return nil, errNameRequired
	}
	set["full_name_ci"] = text.Fold(cur.FullName())
	if upd.Email != nil {
		e := normalize.Email(*upd.Email)
		set["email"] = e
		set["email_ci"] = text.Fold(e)
	}
	if upd.Profile != nil {
		set["profile"] = *upd.Profile
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return nil, translateDup(err)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translateDup(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword hashes and stores a new password.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	h, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.set(ctx, id, bson.M{"password_hash": h})
}

func (s *Store) SetActiveRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return s.set(ctx, id, bson.M{"active_role": role})
}

// Approve marks a pending account approved and, for SuperAdmin
// registrations, clears the pending flag.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"approved": true, "super_admin_pending": false})
}

// PromoteSuperAdmin turns an account into an approved, multi-church
// SuperAdmin. Used for the bootstrap operator account.
func (s *Store) PromoteSuperAdmin(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{
		"multi":                  true,
		"approved":               true,
		"super_admin_pending":    false,
		"registration_completed": true,
		"active_role":            models.RoleSuperAdmin,
	})
}

// SetChurch changes the primary church, used by the SuperAdmin church switch.
func (s *Store) SetChurch(ctx context.Context, id primitive.ObjectID, church primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"church_id": church})
}

// AddChurch records an additional church a SuperAdmin administers.
func (s *Store) AddChurch(ctx context.Context, id primitive.ObjectID, church primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"church_ids": church},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// MarkVerified flags every account with the email as verified.
func (s *Store) MarkVerified(ctx context.Context, email string) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"email_ci": text.Fold(normalize.Email(email))},
		bson.M{"$set": bson.M{"is_verified": true, "updated_at": time.Now().UTC()}})
	return err
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

// Filter narrows List. IDs, when non-nil, restricts to those users.
type Filter struct {
	IDs               []primitive.ObjectID
	Search            string
	Approved          *bool
	SuperAdminPending *bool
	ChurchID          *primitive.ObjectID
}

func (f Filter) bson() bson.M {
	q := bson.M{}
	if f.IDs != nil {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q["full_name_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(s))}
	}
	if f.Approved != nil {
		q["approved"] = *f.Approved
	}
	if f.SuperAdminPending != nil {
		q["super_admin_pending"] = *f.SuperAdminPending
	}
	if f.ChurchID != nil {
		q["church_id"] = *f.ChurchID
	}
	return q
}

// List returns one page of users sorted by name plus the total.
func (s *Store) List(ctx context.Context, f Filter, p paging.Params) ([]models.User, int64, error) {
	q := f.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, p.FindOptions(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the number of users matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.bson())
}

// Many loads users by id, keyed by id. Unknown ids are absent.
func (s *Store) Many(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// IDsInChurch returns the ids of users attached to church, either as their
// primary church or through church_ids.
func (s *Store) IDsInChurch(ctx context.Context, church primitive.ObjectID) ([]primitive.ObjectID, error) {
	vals, err := s.c.Distinct(ctx, "_id", bson.M{"$or": bson.A{
		bson.M{"church_id": church},
		bson.M{"church_ids": church},
	}})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}
