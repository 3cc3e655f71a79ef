package unitstore_test

import (
	"testing"
	"time"

	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := unitstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := primitive.NewObjectID()
	u, err := store.Create(ctx, models.Unit{Name: " Youth Choir ", ChurchID: &church, MinistryName: "Youth"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.Name != "Youth Choir" || u.NameCI == "" || u.MinistryNameCI != "youth" {
		t.Errorf("unexpected normalisation: %+v", u)
	}
	if u.EnabledReportCards == nil {
		t.Error("EnabledReportCards should default to empty")
	}
	if _, err := store.Create(ctx, models.Unit{Name: "youth choir"}); err != unitstore.ErrDuplicateName {
		t.Errorf("duplicate name err = %v, want ErrDuplicateName", err)
	}
}

func TestStore_OneAttendanceUnitPerChurch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := unitstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := primitive.NewObjectID()
	a, _ := store.Create(ctx, models.Unit{Name: "Ushers", ChurchID: &church})
	b, _ := store.Create(ctx, models.Unit{Name: "Protocol", ChurchID: &church})
	other := primitive.NewObjectID()
	c, _ := store.Create(ctx, models.Unit{Name: "Elsewhere", ChurchID: &other})

	if err := store.SetAttendanceTaking(ctx, a.ID, true); err != nil {
		t.Fatalf("first attendance unit: %v", err)
	}
	if err := store.SetAttendanceTaking(ctx, b.ID, true); err != unitstore.ErrAttendanceUnitExists {
		t.Errorf("second attendance unit err = %v, want ErrAttendanceUnitExists", err)
	}
	if err := store.SetAttendanceTaking(ctx, c.ID, true); err != nil {
		t.Errorf("attendance unit in another church: %v", err)
	}
	if err := store.SetAttendanceTaking(ctx, a.ID, false); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if err := store.SetAttendanceTaking(ctx, b.ID, true); err != nil {
		t.Errorf("attendance unit after unset: %v", err)
	}
}

func TestStore_ListAndIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := unitstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := primitive.NewObjectID()
	y1, _ := store.Create(ctx, models.Unit{Name: "Youth Band", ChurchID: &church, MinistryName: "Youth"})
	y2, _ := store.Create(ctx, models.Unit{Name: "Youth Drama", ChurchID: &church, MinistryName: "YOUTH"})
	store.Create(ctx, models.Unit{Name: "Men Prayer", ChurchID: &church, MinistryName: "Men"})

	ids, err := store.IDs(ctx, unitstore.Filter{ChurchID: &church, Ministry: "youth"})
	if err != nil {
		t.Fatalf("IDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("IDs = %d, want 2", len(ids))
	}
	found := map[primitive.ObjectID]bool{ids[0]: true, ids[1]: true}
	if !found[y1.ID] || !found[y2.ID] {
		t.Error("IDs missed a youth unit")
	}

	units, total, err := store.List(ctx, unitstore.Filter{ChurchID: &church, Search: "youth"}, paging.Params{Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(units) != 1 || units[0].ID != y1.ID {
		t.Errorf("List total=%d len=%d", total, len(units))
	}

	n, _ := store.CountInChurch(ctx, church)
	if n != 3 {
		t.Errorf("CountInChurch = %d, want 3", n)
	}
}

func TestCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := unitstore.New(db)
	cache := unitstore.NewCache(store, 32, time.Minute)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.Create(ctx, models.Unit{Name: "Media"})
	got, err := cache.Get(ctx, u.ID)
	if err != nil || got.Name != "Media" {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	name := "Media Team"
	if err := store.Update(ctx, u.ID, unitstore.Update{Name: &name}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	stale, _ := cache.Get(ctx, u.ID)
	if stale.Name != "Media" {
		t.Errorf("expected cached value before invalidation, got %q", stale.Name)
	}
	cache.Invalidate(u.ID)
	fresh, _ := cache.Get(ctx, u.ID)
	if fresh.Name != "Media Team" {
		t.Errorf("after Invalidate name = %q", fresh.Name)
	}

	m, err := cache.Many(ctx, []primitive.ObjectID{u.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Many failed: %v", err)
	}
	if len(m) != 1 {
		t.Errorf("Many = %d entries, want 1", len(m))
	}
	if _, err := cache.Get(ctx, primitive.NewObjectID()); err != unitstore.ErrNotFound {
		t.Errorf("unknown unit err = %v, want ErrNotFound", err)
	}
}
