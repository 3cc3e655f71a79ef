package userstore_test

import (
	"testing"

	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newUser(phone, email string) models.User {
	return models.User{
		FirstName: " grace ",
		Surname:   "Okafor",
		Phone:     phone,
		Email:     email,
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newUser("0803 123 4567", "Grace@Example.com"), "s3cret-pass")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Phone != "+2348031234567" {
		t.Errorf("Phone = %q, want +2348031234567", created.Phone)
	}
	if created.Email != "grace@example.com" {
		t.Errorf("Email = %q", created.Email)
	}
	if created.FirstName != "grace" {
		t.Errorf("FirstName = %q, want trimmed", created.FirstName)
	}
	if created.PasswordHash == "" || created.PasswordHash == "s3cret-pass" {
		t.Error("password not hashed")
	}
	if !userstore.CheckPassword(created.PasswordHash, "s3cret-pass") {
		t.Error("CheckPassword rejected the right password")
	}
	if userstore.CheckPassword(created.PasswordHash, "wrong") {
		t.Error("CheckPassword accepted a wrong password")
	}

	byPhone, err := store.GetByPhone(ctx, "+234 803 123 4567")
	if err != nil {
		t.Fatalf("GetByPhone failed: %v", err)
	}
	if byPhone.ID != created.ID {
		t.Error("GetByPhone returned another user")
	}
	byEmail, err := store.GetByEmail(ctx, "GRACE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Error("GetByEmail returned another user")
	}
}

func TestStore_Create_Duplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, newUser("08031112222", "a@example.com"), "pw123456"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, newUser("+2348031112222", "b@example.com"), "pw123456"); err != userstore.ErrDuplicatePhone {
		t.Errorf("duplicate phone err = %v, want ErrDuplicatePhone", err)
	}
	if _, err := store.Create(ctx, newUser("08039998888", "A@example.com"), "pw123456"); err != userstore.ErrDuplicateEmail {
		t.Errorf("duplicate email err = %v, want ErrDuplicateEmail", err)
	}
	// Users without email do not collide with each other.
	if _, err := store.Create(ctx, newUser("08030000001", ""), "pw123456"); err != nil {
		t.Errorf("first emailless user: %v", err)
	}
	if _, err := store.Create(ctx, newUser("08030000002", ""), "pw123456"); err != nil {
		t.Errorf("second emailless user: %v", err)
	}
}

func TestStore_Create_RequiresNameAndPhone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{FirstName: "A", Surname: "B"}, ""); err == nil {
		t.Error("expected error for missing phone")
	}
	if _, err := store.Create(ctx, models.User{FirstName: "  ", Surname: "B", Phone: "0803"}, ""); err == nil {
		t.Error("expected error for blank first name")
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, newUser("08035550000", ""), "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	name := "Mercy"
	occupation := "Teacher"
	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{
		FirstName: &name,
		Profile:   &models.Profile{Occupation: occupation},
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if got.FirstName != "Mercy" || got.Profile.Occupation != occupation {
		t.Errorf("profile not updated: %+v", got)
	}

	blank := " "
	if _, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{Surname: &blank}); err == nil {
		t.Error("expected error when clearing surname")
	}
}

func TestStore_SetPasswordAndApprove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.Create(ctx, models.User{FirstName: "A", Surname: "B", Phone: "08030001111", SuperAdminPending: true}, "old-pass")
	if err := store.SetPassword(ctx, u.ID, "new-pass-1"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if err := store.Approve(ctx, u.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if !userstore.CheckPassword(got.PasswordHash, "new-pass-1") {
		t.Error("new password not stored")
	}
	if !got.Approved || got.SuperAdminPending {
		t.Errorf("Approve: approved=%v pending=%v", got.Approved, got.SuperAdminPending)
	}
	if err := store.Approve(ctx, primitive.NewObjectID()); err != userstore.ErrNotFound {
		t.Errorf("Approve unknown err = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := primitive.NewObjectID()
	fixtures.CreateUser(ctx, "Zed", "Last", &church)
	fixtures.CreateUser(ctx, "Amy", "First", &church)
	fixtures.CreateUser(ctx, "Bob", "Elsewhere", nil)

	users, total, err := store.List(ctx, userstore.Filter{ChurchID: &church}, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("total=%d len=%d, want 2", total, len(users))
	}
	if users[0].FirstName != "Amy" {
		t.Errorf("first = %q, want Amy (sorted by name)", users[0].FirstName)
	}

	_, total, _ = store.List(ctx, userstore.Filter{Search: "zed"}, paging.Params{Page: 1, Limit: 10})
	if total != 1 {
		t.Errorf("search total = %d, want 1", total)
	}
}

func TestFetcher_PopulatesRoles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := userstore.New(db)
	memberships := membershipstore.New(db)
	cache := unitstore.NewCache(unitstore.New(db), 32, 0)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := primitive.NewObjectID()
	unit := fixtures.CreateUnit(ctx, "Youth Choir", &church, "Youth")
	u := fixtures.CreateUser(ctx, "Ada", "Obi", &church)
	if _, err := memberships.Add(ctx, models.Membership{UserID: u.ID, Role: models.RoleUnitLeader, UnitID: &unit.ID}); err != nil {
		t.Fatalf("Add leader: %v", err)
	}
	if _, err := memberships.Add(ctx, models.Membership{UserID: u.ID, Role: models.RoleMinistryAdmin, ChurchID: &church, MinistryName: "Youth"}); err != nil {
		t.Fatalf("Add ministry admin: %v", err)
	}

	f := userstore.NewFetcher(users, memberships, cache)
	got, err := f.FetchWithRoles(ctx, u.ID)
	if err != nil {
		t.Fatalf("FetchWithRoles failed: %v", err)
	}
	if len(got.Roles) != 2 {
		t.Fatalf("Roles = %d, want 2", len(got.Roles))
	}
	lead := got.Roles[0]
	if lead.Role != models.RoleUnitLeader || lead.UnitChurchID == nil || *lead.UnitChurchID != church || lead.UnitMinistry != "Youth" {
		t.Errorf("leader entry not enriched from unit: %+v", lead)
	}
	if !got.LeadsUnit(unit.ID) {
		t.Error("LeadsUnit should be true")
	}

	if _, err := f.FetchWithRoles(ctx, primitive.NewObjectID()); err != auth.ErrUserNotFound {
		t.Errorf("unknown user err = %v, want auth.ErrUserNotFound", err)
	}
}
