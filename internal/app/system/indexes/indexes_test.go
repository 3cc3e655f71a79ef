package indexes_test

import (
	"testing"

	"github.com/dalemusser/churchhub/internal/app/system/indexes"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		coll  string
		names []string
	}{
		{"users", []string{indexes.UsersPhone, indexes.UsersEmail}},
		{"memberships", []string{indexes.MembershipsKey, indexes.MembershipsLeader, "idx_memberships_unit_role"}},
		{"units", []string{"uniq_units_nameci", indexes.UnitsAttendance}},
		{"churches", []string{"uniq_churches_slug", "uniq_churches_org_nameci"}},
		{"mail_otps", []string{"idx_mail_otps_expires_ttl"}},
		{"finance_categories", []string{indexes.FinanceCategoryKey}},
		{"souls", []string{"idx_souls_unit_created", "idx_souls_addedby_created"}},
	}
	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			got := indexNames(t, db, tt.coll)
			for _, name := range tt.names {
				if !got[name] {
					t.Errorf("expected index %q on %s", name, tt.coll)
				}
			}
		})
	}
}

// The partial unique index admits any number of members per unit but only
// one leader.
func TestEnsureAll_LeaderIndexEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	c := db.Collection("memberships")
	unit := primitive.NewObjectID()
	doc := func(role string) bson.M {
		user := primitive.NewObjectID()
		return bson.M{"user_id": user, "role": role, "unit_id": unit, "key": role + "|" + unit.Hex()}
	}

	for i := 0; i < 2; i++ {
		if _, err := c.InsertOne(ctx, doc("Member")); err != nil {
			t.Fatalf("member insert %d failed: %v", i, err)
		}
	}
	if _, err := c.InsertOne(ctx, doc("UnitLeader")); err != nil {
		t.Fatalf("first leader insert failed: %v", err)
	}
	if _, err := c.InsertOne(ctx, doc("UnitLeader")); !mongo.IsDuplicateKeyError(err) {
		t.Errorf("second leader insert err = %v, want duplicate key", err)
	}
}
