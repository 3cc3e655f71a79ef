package churchstore_test

import (
	"sync"
	"testing"

	churchstore "github.com/dalemusser/churchhub/internal/app/store/churches"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := churchstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := primitive.NewObjectID()
	c, err := store.Create(ctx, models.Church{
		OrganizationID: org,
		Name:           "  Grace Assembly ",
		Ministries:     []models.Ministry{{Name: "Youth"}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.Name != "Grace Assembly" || c.Slug != "grace-assembly" {
		t.Errorf("name=%q slug=%q", c.Name, c.Slug)
	}
	if len(c.Ministries) != 1 || c.Ministries[0].ID.IsZero() {
		t.Errorf("ministries not initialised: %+v", c.Ministries)
	}

	got, err := store.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if _, ok := got.FindMinistry("youth"); !ok {
		t.Error("FindMinistry(youth) = false")
	}

	if _, err := store.Create(ctx, models.Church{OrganizationID: org, Name: "grace assembly", Slug: "other"}); err != churchstore.ErrDuplicateChurch {
		t.Errorf("duplicate name err = %v, want ErrDuplicateChurch", err)
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); err != churchstore.ErrNotFound {
		t.Errorf("GetByID unknown err = %v, want ErrNotFound", err)
	}
}

func TestStore_AddMinistry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := churchstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := store.Create(ctx, models.Church{OrganizationID: primitive.NewObjectID(), Name: "Hope"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	m, err := store.AddMinistry(ctx, c.ID, "Men", "men's fellowship")
	if err != nil {
		t.Fatalf("AddMinistry failed: %v", err)
	}
	if _, err := store.AddMinistry(ctx, c.ID, " MEN ", ""); err != churchstore.ErrMinistryExists {
		t.Errorf("duplicate ministry err = %v, want ErrMinistryExists", err)
	}
	if _, err := store.AddMinistry(ctx, primitive.NewObjectID(), "Men", ""); err != churchstore.ErrNotFound {
		t.Errorf("unknown church err = %v, want ErrNotFound", err)
	}

	ok, _ := store.HasMinistry(ctx, c.ID, "men")
	if !ok {
		t.Error("HasMinistry(men) = false")
	}

	if err := store.RemoveMinistry(ctx, c.ID, m.ID); err != nil {
		t.Fatalf("RemoveMinistry failed: %v", err)
	}
	if err := store.RemoveMinistry(ctx, c.ID, m.ID); err != churchstore.ErrMinistryNotFound {
		t.Errorf("second remove err = %v, want ErrMinistryNotFound", err)
	}
}

func TestStore_AddMinistry_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := churchstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := store.Create(ctx, models.Church{OrganizationID: primitive.NewObjectID(), Name: "Zion"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AddMinistry(ctx, c.ID, "Choir", ""); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("concurrent adds succeeded %d times, want 1", wins)
	}
	got, _ := store.GetByID(ctx, c.ID)
	if len(got.Ministries) != 1 {
		t.Errorf("ministries = %d, want 1", len(got.Ministries))
	}
}

func TestStore_UpdateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := churchstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := primitive.NewObjectID()
	b, _ := store.Create(ctx, models.Church{OrganizationID: org, Name: "Bethel"})
	a, _ := store.Create(ctx, models.Church{OrganizationID: org, Name: "Antioch"})

	addr := "12 Church Rd"
	if err := store.Update(ctx, b.ID, churchstore.Update{Address: &addr}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	all, err := store.List(ctx, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID {
		t.Errorf("List not sorted by name: %+v", all)
	}
	some, _ := store.List(ctx, []primitive.ObjectID{b.ID})
	if len(some) != 1 || some[0].Address != addr {
		t.Errorf("List(ids) = %+v", some)
	}
	none, _ := store.List(ctx, []primitive.ObjectID{})
	if len(none) != 0 {
		t.Errorf("List(empty) = %d churches, want 0", len(none))
	}
}
