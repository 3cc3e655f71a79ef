package financestore_test

import (
	"testing"
	"time"

	financestore "github.com/dalemusser/churchhub/internal/app/store/finance"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := financestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	unit := primitive.NewObjectID()
	if _, err := store.Create(ctx, models.Finance{UnitID: unit, Type: "gift", Amount: 10}); err != financestore.ErrBadType {
		t.Errorf("bad type err = %v, want ErrBadType", err)
	}
	if _, err := store.Create(ctx, models.Finance{UnitID: unit, Type: models.FinanceIncome, Amount: 0}); err != financestore.ErrBadAmount {
		t.Errorf("zero amount err = %v, want ErrBadAmount", err)
	}
	f, err := store.Create(ctx, models.Finance{UnitID: unit, Type: models.FinanceIncome, Amount: 25})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if f.Date.IsZero() {
		t.Error("Date should default to now")
	}
}

func TestStore_ListAndSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := financestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	unit := primitive.NewObjectID()
	other := primitive.NewObjectID()
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	for _, f := range []models.Finance{
		{UnitID: unit, Type: models.FinanceIncome, Amount: 100, Date: jan},
		{UnitID: unit, Type: models.FinanceIncome, Amount: 50, Date: feb},
		{UnitID: unit, Type: models.FinanceExpense, Amount: 30, Date: feb},
		{UnitID: other, Type: models.FinanceIncome, Amount: 999, Date: feb},
	} {
		if _, err := store.Create(ctx, f); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	scope := bson.M{"unit_id": unit}
	items, total, err := store.List(ctx, scope, financestore.Query{}, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("total=%d len=%d, want 3", total, len(items))
	}

	sum, err := store.Summary(ctx, scope, financestore.Query{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Income != 150 || sum.Expense != 30 || sum.Balance != 120 || sum.Count != 3 {
		t.Errorf("Summary = %+v", sum)
	}

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	sum, _ = store.Summary(ctx, scope, financestore.Query{From: &from})
	if sum.Income != 50 || sum.Balance != 20 {
		t.Errorf("Summary from Feb = %+v", sum)
	}

	_, total, _ = store.List(ctx, scope, financestore.Query{Type: models.FinanceExpense}, paging.Params{Page: 1, Limit: 10})
	if total != 1 {
		t.Errorf("expense total = %d, want 1", total)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := financestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f, _ := store.Create(ctx, models.Finance{UnitID: primitive.NewObjectID(), Type: models.FinanceIncome, Amount: 5})
	amount := 7.5
	got, err := store.Update(ctx, f.ID, financestore.Update{Amount: &amount})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Amount != 7.5 {
		t.Errorf("Amount = %v", got.Amount)
	}
	neg := -1.0
	if _, err := store.Update(ctx, f.ID, financestore.Update{Amount: &neg}); err != financestore.ErrBadAmount {
		t.Errorf("negative amount err = %v, want ErrBadAmount", err)
	}
	if err := store.Delete(ctx, f.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, f.ID); err != financestore.ErrNotFound {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
}

func TestStore_Categories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := financestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	unit := primitive.NewObjectID()
	c, err := store.CreateCategory(ctx, models.FinanceCategory{UnitID: unit, Type: models.FinanceIncome, Name: "Tithes"})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if _, err := store.CreateCategory(ctx, models.FinanceCategory{UnitID: unit, Type: models.FinanceIncome, Name: "TITHES"}); err != financestore.ErrCategoryExists {
		t.Errorf("duplicate category err = %v, want ErrCategoryExists", err)
	}
	// Same name under the other type is allowed.
	if _, err := store.CreateCategory(ctx, models.FinanceCategory{UnitID: unit, Type: models.FinanceExpense, Name: "Tithes"}); err != nil {
		t.Errorf("same name other type: %v", err)
	}

	cats, err := store.ListCategories(ctx, unit, models.FinanceIncome)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(cats) != 1 || cats[0].ID != c.ID {
		t.Errorf("ListCategories = %+v", cats)
	}

	if err := store.RenameCategory(ctx, c.ID, "Offerings"); err != nil {
		t.Fatalf("RenameCategory failed: %v", err)
	}
	got, _ := store.GetCategory(ctx, c.ID)
	if got.Name != "Offerings" || got.NameLower != "offerings" {
		t.Errorf("renamed category = %+v", got)
	}
	if err := store.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if _, err := store.GetCategory(ctx, c.ID); err != financestore.ErrCategoryNotFound {
		t.Errorf("GetCategory after delete err = %v", err)
	}
}
