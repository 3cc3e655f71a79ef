// internal/app/store/mailotps/store.go
package mailotpstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the length of the emailed code.
	CodeLength = 6
	// DefaultExpiry is how long a code is valid.
	DefaultExpiry = 10 * time.Minute
	// DefaultResendInterval is the minimum gap between two codes for one address.
	DefaultResendInterval = 45 * time.Second
	// DefaultMaxAttempts bounds wrong guesses against one code.
	DefaultMaxAttempts = 5
	// BcryptCost for hashing codes.
	BcryptCost = 10
	Collection = "mail_otps"
)

var (
	ErrNotFound        = errors.New("OTP not found or expired")
	ErrInvalidCode     = errors.New("Invalid OTP")
	ErrTooManyAttempts = errors.New("Too many attempts")
	ErrResendTooSoon   = errors.New("Please wait before requesting another code")
)

// OTP is a pending email verification. Documents expire through a TTL index
// on expires_at.
type OTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	CodeHash  string             `bson:"code_hash"`
	Attempts  int                `bson:"attempts"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// Options tunes expiry and throttling. Zero fields take the defaults.
type Options struct {
	Expiry         time.Duration
	ResendInterval time.Duration
	MaxAttempts    int
}

type Store struct {
	c    *mongo.Collection
	opts Options
}

func New(db *mongo.Database, opts Options) *Store {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.ResendInterval <= 0 {
		opts.ResendInterval = DefaultResendInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Store{c: db.Collection(Collection), opts: opts}
}

func (s *Store) Expiry() time.Duration { return s.opts.Expiry }

// Issued is a freshly created OTP. Code is the plain text to email.
type Issued struct {
	ID   primitive.ObjectID
	Code string
}

// Create replaces any pending OTP for email with a new one. A previous code
// younger than the resend interval yields ErrResendTooSoon.
func (s *Store) Create(ctx context.Context, email string) (*Issued, error) {
	email = normalize.Email(email)
	now := time.Now().UTC()

	var prev OTP
	err := s.c.FindOne(ctx, bson.M{"email": email, "expires_at": bson.M{"$gt": now}}).Decode(&prev)
	if err == nil && now.Sub(prev.CreatedAt) < s.opts.ResendInterval {
		return nil, ErrResendTooSoon
	}
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return nil, err
	}
	o := OTP{
		ID:        primitive.NewObjectID(),
		Email:     email,
		CodeHash:  string(hash),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.Expiry),
	}
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return nil, fmt.Errorf("insert otp: %w", err)
	}
	return &Issued{ID: o.ID, Code: code}, nil
}

// Delete removes one OTP. Used to roll back when delivery fails.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Verify checks code against the pending OTP for email. A wrong code
// increments attempts; a correct one deletes the record.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	email = normalize.Email(email)
	var o OTP
	err := s.c.FindOne(ctx, bson.M{"email": email, "expires_at": bson.M{"$gt": time.Now().UTC()}}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if o.Attempts >= s.opts.MaxAttempts {
		return ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(o.CodeHash), []byte(code)) != nil {
		if _, err := s.c.UpdateOne(ctx, bson.M{"_id": o.ID}, bson.M{"$inc": bson.M{"attempts": 1}}); err != nil {
			return err
		}
		return ErrInvalidCode
	}
	_, err = s.c.DeleteOne(ctx, bson.M{"_id": o.ID})
	return err
}

// PurgeExpired removes expired records ahead of the TTL monitor.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
