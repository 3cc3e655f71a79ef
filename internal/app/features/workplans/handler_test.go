package workplans_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/features/workplans"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	router chi.Router
	fix    *testutil.Fixtures
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := workplans.NewHandler(db, unitstore.NewCache(unitstore.New(db), 64, time.Minute), nil, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/workplans", workplans.Routes(h))
	return &env{router: r, fix: testutil.NewFixtures(t, db)}
}

func (e *env) do(t *testing.T, method, target string, u *models.User, body any) *testutil.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewAuthenticatedRequest(t, method, target, u, body)
	} else {
		req = testutil.WithUser(testutil.NewRequest(method, target), u)
	}
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type itemResp struct {
	Item models.WorkPlan `json:"item"`
}

func (e *env) create(t *testing.T, u *models.User, body map[string]any) models.WorkPlan {
	t.Helper()
	rec := e.do(t, "POST", "/workplans", u, body)
	rec.AssertStatus(t, http.StatusCreated)
	var out itemResp
	rec.Decode(t, &out)
	return out.Item
}

func future() string { return time.Now().AddDate(0, 1, 0).Format("2006-01-02") }

func samplePlan(unit models.Unit) map[string]any {
	return map[string]any{
		"unit_id":    unit.ID.Hex(),
		"title":      "Outreach 2026",
		"start_date": time.Now().Format("2006-01-02"),
		"end_date":   future(),
		"plans": []map[string]any{
			{"title": "Visits", "activities": []map[string]any{
				{"title": "Hospital", "estimated_hours": 3},
				{"title": "Homes", "estimated_hours": 1},
			}},
		},
	}
}

func TestLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Evangelism", nil, "")
	owner := testutil.Member(unit)
	admin := testutil.SuperAdmin()

	plan := e.create(t, owner, samplePlan(unit))
	if plan.Status != models.PlanDraft {
		t.Fatalf("status = %q, want draft", plan.Status)
	}
	path := "/workplans/" + plan.ID.Hex()

	// owner cannot review, admin cannot approve a draft
	e.do(t, "POST", path+"/approve", owner, nil).AssertStatus(t, http.StatusForbidden)
	e.do(t, "POST", path+"/approve", admin, nil).AssertStatus(t, http.StatusConflict)

	e.do(t, "POST", path+"/submit", owner, nil).AssertStatus(t, http.StatusOK)

	rec := e.do(t, "POST", path+"/reject", admin, map[string]any{})
	rec.AssertStatus(t, http.StatusOK)
	var out itemResp
	rec.Decode(t, &out)
	if out.Item.Status != models.PlanRejected || out.Item.RejectionReason != "No reason provided" {
		t.Errorf("after reject = %q %q", out.Item.Status, out.Item.RejectionReason)
	}

	e.do(t, "PUT", path, owner, map[string]any{"title": "Outreach, revised"}).AssertStatus(t, http.StatusOK)
	e.do(t, "POST", path+"/submit", owner, nil).AssertStatus(t, http.StatusOK)

	rec = e.do(t, "POST", path+"/review/approve", admin, map[string]any{"rating": 4, "comment": "Good"})
	rec.AssertStatus(t, http.StatusOK)
	rec.Decode(t, &out)
	if out.Item.Status != models.PlanApproved || out.Item.ReviewRating == nil || *out.Item.ReviewRating != 4 {
		t.Errorf("after approve = %+v", out.Item)
	}
	if len(out.Item.ReviewComments) != 1 {
		t.Errorf("review comments = %d, want 1", len(out.Item.ReviewComments))
	}

	rec = e.do(t, "PUT", path, owner, map[string]any{"title": "Too late"})
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "Only draft, pending, rejected or ignored plans can be edited")
	e.do(t, "DELETE", path, owner, nil).AssertStatus(t, http.StatusConflict)

	e.do(t, "POST", path+"/success-rate", admin, map[string]any{"success_rate": 140}).AssertStatus(t, http.StatusBadRequest)
	rec = e.do(t, "POST", path+"/success-rate", admin, map[string]any{"success_rate": 85})
	rec.AssertStatus(t, http.StatusOK)
	rec.Decode(t, &out)
	if out.Item.Status != models.PlanCompleted {
		t.Errorf("status = %q, want completed", out.Item.Status)
	}
}

func TestActivityProgress(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Evangelism", nil, "")
	owner := testutil.Member(unit)

	plan := e.create(t, owner, samplePlan(unit))
	path := "/workplans/" + plan.ID.Hex()
	hospital := plan.Plans[0].Activities[0].ID.Hex()

	e.do(t, "POST", path+"/activity-progress", testutil.Member(unit), map[string]any{
		"activity_id": hospital, "progress_percent": 50,
	}).AssertStatus(t, http.StatusForbidden)

	e.do(t, "POST", path+"/activity-progress", owner, map[string]any{
		"activity_id": hospital, "progress_percent": 101,
	}).AssertStatus(t, http.StatusBadRequest)

	rec := e.do(t, "POST", path+"/activity-progress", owner, map[string]any{
		"activity_id": hospital, "progress_percent": 100, "completion_summary": "Visited ward 3",
	})
	rec.AssertStatus(t, http.StatusOK)
	var out itemResp
	rec.Decode(t, &out)
	act := out.Item.Plans[0].Activities[0]
	if act.Status != models.ActivityCompleted || act.DateOfCompletion == nil {
		t.Errorf("activity = %+v", act)
	}
	// hours-weighted: 3h at 100%, 1h at 0%
	if out.Item.ProgressPercent != 75 {
		t.Errorf("progress = %v, want 75", out.Item.ProgressPercent)
	}

	e.do(t, "POST", path+"/activity-progress", testutil.Leader(unit), map[string]any{
		"activity_id": plan.Plans[0].Activities[1].ID.Hex(), "progress_percent": 40,
	}).AssertStatus(t, http.StatusOK)

	e.do(t, "POST", path+"/activity-progress", owner, map[string]any{
		"activity_id": primitive.NewObjectID().Hex(), "progress_percent": 10,
	}).AssertStatus(t, http.StatusNotFound)
}

func TestActivityReview(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Evangelism", nil, "")
	owner := testutil.Member(unit)
	admin := testutil.SuperAdmin()

	plan := e.create(t, owner, samplePlan(unit))
	path := "/workplans/" + plan.ID.Hex()
	act := plan.Plans[0].Activities[1].ID.Hex()

	e.do(t, "POST", path+"/review/activity", admin, map[string]any{
		"activity_id": act, "status": "maybe",
	}).AssertStatus(t, http.StatusBadRequest)

	rec := e.do(t, "POST", path+"/review/activity", admin, map[string]any{
		"activity_id": act, "status": "reject", "rating": 2, "comment": "Needs detail",
	})
	rec.AssertStatus(t, http.StatusOK)
	var out itemResp
	rec.Decode(t, &out)
	a := out.Item.Plans[0].Activities[1]
	if a.ReviewStatus != models.ReviewRejected || a.ReviewRejectionReason != "No reason provided" || len(a.ReviewComments) != 1 {
		t.Errorf("activity review = %+v", a)
	}
	if out.Item.Status != models.PlanDraft {
		t.Errorf("plan status changed to %q", out.Item.Status)
	}

	e.do(t, "POST", path+"/review/activity/comment", admin, map[string]any{
		"activity_id": act, "message": "See notes",
	}).AssertStatus(t, http.StatusOK)
	e.do(t, "POST", path+"/review/comment", admin, map[string]any{"message": ""}).AssertStatus(t, http.StatusBadRequest)
	e.do(t, "POST", path+"/review/comment", owner, map[string]any{"message": "self review"}).AssertStatus(t, http.StatusForbidden)
}

func TestAutoStatusOnRead(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Evangelism", nil, "")
	owner := testutil.Member(unit)

	body := samplePlan(unit)
	body["start_date"] = "2020-01-01"
	body["end_date"] = "2020-02-01"
	plan := e.create(t, owner, body)
	path := "/workplans/" + plan.ID.Hex()

	rec := e.do(t, "GET", path, owner, nil)
	rec.AssertStatus(t, http.StatusOK)
	var out itemResp
	rec.Decode(t, &out)
	if out.Item.Status != models.PlanRejected || out.Item.RejectionReason != models.AutoRejectReason {
		t.Errorf("overdue draft = %q %q", out.Item.Status, out.Item.RejectionReason)
	}

	// resubmitting an overdue plan leaves it pending until the next read
	e.do(t, "POST", path+"/submit", owner, nil).AssertStatus(t, http.StatusOK)
	rec = e.do(t, "GET", path, owner, nil)
	rec.Decode(t, &out)
	if out.Item.Status != models.PlanIgnored {
		t.Errorf("overdue pending = %q, want ignored", out.Item.Status)
	}
}

func TestListAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Evangelism", nil, "")
	owner := testutil.Member(unit)
	admin := testutil.SuperAdmin()

	a := e.create(t, owner, samplePlan(unit))
	b := samplePlan(unit)
	b["title"] = "Choir tour"
	e.create(t, owner, b)
	e.do(t, "POST", "/workplans/"+a.ID.Hex()+"/submit", owner, nil).AssertStatus(t, http.StatusOK)

	var list struct {
		Items []models.WorkPlan `json:"items"`
		Total int64             `json:"total"`
	}
	rec := e.do(t, "GET", "/workplans?status=pending", admin, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.Decode(t, &list)
	if list.Total != 1 || list.Items[0].ID != a.ID {
		t.Errorf("pending list = %+v", list)
	}

	rec = e.do(t, "GET", "/workplans?q=choir", admin, nil)
	rec.Decode(t, &list)
	if list.Total != 1 || list.Items[0].Title != "Choir tour" {
		t.Errorf("search list = %+v", list)
	}

	e.do(t, "GET", "/workplans?status=bogus", admin, nil).AssertStatus(t, http.StatusBadRequest)

	other := e.fix.CreateUnit(ctx, "Choir", nil, "")
	e.do(t, "DELETE", "/workplans/"+a.ID.Hex(), testutil.Leader(other), nil).AssertStatus(t, http.StatusForbidden)
	e.do(t, "DELETE", "/workplans/"+a.ID.Hex(), owner, nil).AssertStatus(t, http.StatusOK)
	e.do(t, "GET", "/workplans/"+a.ID.Hex(), owner, nil).AssertStatus(t, http.StatusNotFound)
}
