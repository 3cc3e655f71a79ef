package pagestore_test

import (
	"testing"

	pagestore "github.com/dalemusser/churchhub/internal/app/store/pages"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
)

func TestStore_Upsert_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := pagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Upsert(ctx, models.LegalPage{
		Type:     models.LegalTerms,
		Title:    "Terms of Use",
		Sections: []models.LegalSection{{Heading: "Intro", Body: "<p>Welcome</p>"}},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	saved, err := store.GetByType(ctx, models.LegalTerms)
	if err != nil {
		t.Fatalf("GetByType failed: %v", err)
	}
	if saved.Title != "Terms of Use" {
		t.Errorf("expected title 'Terms of Use', got %q", saved.Title)
	}
	if len(saved.Sections) != 1 || saved.Sections[0].Heading != "Intro" {
		t.Errorf("unexpected sections %+v", saved.Sections)
	}
	if saved.LastUpdated.IsZero() {
		t.Error("expected LastUpdated to be set")
	}
}

func TestStore_Upsert_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := pagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.Upsert(ctx, models.LegalPage{Type: models.LegalPrivacy, Title: "Privacy"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := store.Upsert(ctx, models.LegalPage{Type: models.LegalPrivacy, Title: "Privacy Policy"})
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("upsert created a second page: %s != %s", first.ID.Hex(), second.ID.Hex())
	}
	if second.Title != "Privacy Policy" {
		t.Errorf("title = %q", second.Title)
	}
}

func TestStore_BadType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := pagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Upsert(ctx, models.LegalPage{Type: "cookies"}); err != pagestore.ErrBadType {
		t.Errorf("Upsert err = %v, want ErrBadType", err)
	}
	if _, err := store.GetByType(ctx, models.LegalTerms); err != pagestore.ErrNotFound {
		t.Errorf("GetByType on empty err = %v, want ErrNotFound", err)
	}
}
