package accesscodestore_test

import (
	"testing"
	"time"

	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssueAndConsume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := accesscodestore.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	unit := primitive.NewObjectID()
	ac, err := store.Issue(ctx, models.RoleMember, &unit, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(ac.Code) != 6 {
		t.Errorf("code = %q, want 6 digits", ac.Code)
	}
	if d := time.Until(ac.ExpiresAt); d < 5*time.Hour || d > 6*time.Hour {
		t.Errorf("expires in %v, want about 6h", d)
	}

	if _, err := store.Validate(ctx, ac.Code); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	user := primitive.NewObjectID()
	got, err := store.Consume(ctx, ac.Code, user)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !got.Used || got.UsedBy == nil || *got.UsedBy != user {
		t.Errorf("consumed code = %+v", got)
	}

	if _, err := store.Consume(ctx, ac.Code, primitive.NewObjectID()); err != accesscodestore.ErrUsed {
		t.Errorf("second Consume err = %v, want ErrUsed", err)
	}
	if _, err := store.Validate(ctx, ac.Code); err != accesscodestore.ErrUsed {
		t.Errorf("Validate after use err = %v, want ErrUsed", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := accesscodestore.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Validate(ctx, "999999"); err != accesscodestore.ErrInvalid {
		t.Errorf("unknown code err = %v, want ErrInvalid", err)
	}

	ac, err := store.Issue(ctx, models.RoleSuperAdmin, nil, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	_, err = db.Collection(accesscodestore.Collection).UpdateOne(ctx,
		bson.M{"_id": ac.ID}, bson.M{"$set": bson.M{"expires_at": time.Now().Add(-time.Minute)}})
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := store.Validate(ctx, ac.Code); err != accesscodestore.ErrExpired {
		t.Errorf("expired code err = %v, want ErrExpired", err)
	}
	if _, err := store.Consume(ctx, ac.Code, primitive.NewObjectID()); err != accesscodestore.ErrExpired {
		t.Errorf("Consume expired err = %v, want ErrExpired", err)
	}
}

func TestRelease(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := accesscodestore.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ac, _ := store.Issue(ctx, models.RoleMember, nil, primitive.NewObjectID())
	if _, err := store.Consume(ctx, ac.Code, primitive.NewObjectID()); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := store.Release(ctx, ac.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := store.Validate(ctx, ac.Code); err != nil {
		t.Errorf("Validate after release err = %v", err)
	}
}
