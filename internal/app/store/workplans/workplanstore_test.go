package workplanstore_test

import (
	"testing"
	"time"

	workplanstore "github.com/dalemusser/churchhub/internal/app/store/workplans"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newPlan(title string, start, end time.Time) models.WorkPlan {
	return models.WorkPlan{
		Title:     title,
		OwnerID:   primitive.NewObjectID(),
		UnitID:    primitive.NewObjectID(),
		StartDate: start,
		EndDate:   end,
		Plans: []models.Plan{{
			Title:      "Outreach",
			Activities: []models.Activity{{Title: "Visit"}, {Title: "Follow up"}},
		}},
	}
}

func TestCreate_StartsDraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workplanstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w, err := store.Create(ctx, newPlan("Q1", time.Now(), time.Now().Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if w.Status != models.PlanDraft {
		t.Errorf("status = %q, want draft", w.Status)
	}
	for _, a := range w.Plans[0].Activities {
		if a.ID.IsZero() || a.Status != models.ActivityNotStarted {
			t.Errorf("activity not normalized: %+v", a)
		}
	}

	_, err = store.Create(ctx, newPlan("bad", time.Now(), time.Now().Add(-time.Hour)))
	if err != workplanstore.ErrBadDates {
		t.Errorf("bad dates err = %v", err)
	}
}

func TestSave_RecomputesProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workplanstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w, err := store.Create(ctx, newPlan("Q1", time.Now(), time.Now().Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.SetActivityProgress(w.Plans[0].Activities[0].ID, 100, "", time.Now()); err != nil {
		t.Fatalf("SetActivityProgress: %v", err)
	}
	if err := store.Save(ctx, &w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ProgressPercent != 50 {
		t.Errorf("progress = %v, want 50", got.ProgressPercent)
	}
}

// A copy read before another write cannot overwrite that write.
func TestSave_RejectsStaleCopy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workplanstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w, err := store.Create(ctx, newPlan("Q1", time.Now(), time.Now().Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.Submit(w.OwnerID, time.Now()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := store.Save(ctx, &w); err != nil {
		t.Fatalf("Save submitted: %v", err)
	}

	reviewer, _ := store.Get(ctx, w.ID)
	owner, _ := store.Get(ctx, w.ID)

	if err := reviewer.Approve(primitive.NewObjectID(), nil, time.Now()); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := store.Save(ctx, reviewer); err != nil {
		t.Fatalf("Save approved: %v", err)
	}

	if err := owner.SetActivityProgress(owner.Plans[0].Activities[0].ID, 40, "", time.Now()); err != nil {
		t.Fatalf("SetActivityProgress: %v", err)
	}
	if err := store.Save(ctx, owner); err != workplanstore.ErrStale {
		t.Fatalf("stale save err = %v, want ErrStale", err)
	}

	got, _ := store.Get(ctx, w.ID)
	if got.Status != models.PlanApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
	if got.Version != reviewer.Version {
		t.Errorf("version = %d, want %d", got.Version, reviewer.Version)
	}

	// a fresh read saves fine
	if err := got.SetActivityProgress(got.Plans[0].Activities[0].ID, 40, "", time.Now()); err != nil {
		t.Fatalf("SetActivityProgress: %v", err)
	}
	if err := store.Save(ctx, got); err != nil {
		t.Errorf("fresh save: %v", err)
	}

	gone := newPlan("gone", time.Now(), time.Now().Add(time.Hour))
	gone.ID = primitive.NewObjectID()
	if err := store.Save(ctx, &gone); err != workplanstore.ErrNotFound {
		t.Errorf("missing plan err = %v, want ErrNotFound", err)
	}
}

func TestSave_UnversionedDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workplanstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := primitive.NewObjectID()
	_, err := db.Collection(workplanstore.Collection).InsertOne(ctx, bson.M{
		"_id": id, "title": "Legacy", "status": models.PlanDraft, "plans": bson.A{}, "version_history": bson.A{},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	w, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	w.Notes = "migrated"
	if err := store.Save(ctx, w); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := store.Get(ctx, id)
	if got.Version != 1 || got.Notes != "migrated" {
		t.Errorf("version = %d notes = %q", got.Version, got.Notes)
	}
}

// An overdue pending plan becomes ignored and an overdue draft becomes
// rejected; plans with a success rate are untouched.
func TestAutoStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workplanstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	past := time.Now().Add(-72 * time.Hour)
	ended := time.Now().Add(-time.Hour)

	draft, _ := store.Create(ctx, newPlan("draft", past, ended))
	pending, _ := store.Create(ctx, newPlan("pending", past, ended))
	_ = pending.Submit(pending.OwnerID, time.Now())
	_ = store.Save(ctx, &pending)
	future, _ := store.Create(ctx, newPlan("future", past, time.Now().Add(time.Hour)))
	rated, _ := store.Create(ctx, newPlan("rated", past, ended))
	_ = rated.SetSuccessRate(80, rated.OwnerID, time.Now())
	_ = store.Save(ctx, &rated)

	n, err := store.AutoStatus(ctx, time.Now(), zap.NewNop())
	if err != nil {
		t.Fatalf("AutoStatus failed: %v", err)
	}
	if n != 2 {
		t.Errorf("changed = %d, want 2", n)
	}

	check := func(id primitive.ObjectID, want string) {
		t.Helper()
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status != want {
			t.Errorf("%s status = %q, want %q", got.Title, got.Status, want)
		}
	}
	check(draft.ID, models.PlanRejected)
	check(pending.ID, models.PlanIgnored)
	check(future.ID, models.PlanDraft)
	check(rated.ID, models.PlanCompleted)

	got, _ := store.Get(ctx, draft.ID)
	if got.RejectionReason != models.AutoRejectReason {
		t.Errorf("reason = %q", got.RejectionReason)
	}

	// second pass is a no-op
	if n, _ := store.AutoStatus(ctx, time.Now(), nil); n != 0 {
		t.Errorf("second pass changed %d", n)
	}

	_, total, err := store.List(ctx, bson.M{}, models.PlanIgnored, paging.Params{Page: 1, Limit: 10})
	if err != nil || total != 1 {
		t.Errorf("List ignored total = %d, err = %v", total, err)
	}
}
