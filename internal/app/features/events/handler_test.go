package events_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/features/events"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	router chi.Router
	fix    *testutil.Fixtures
	sent   *testutil.Notifications
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sent := &testutil.Notifications{}
	h := events.NewHandler(db, unitstore.NewCache(unitstore.New(db), 64, time.Minute), sent, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/events", events.Routes(h))
	return &env{router: r, fix: testutil.NewFixtures(t, db), sent: sent}
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

func soon(d time.Duration) string { return time.Now().Add(d).UTC().Format(time.RFC3339) }

func TestUnitEventPushOnlyWithReminder(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Choir", nil, "")
	leader := e.fix.CreateUser(ctx, "Lead", "Er", nil)
	e.fix.AddMembership(ctx, &leader, models.RoleUnitLeader, &unit, nil, "")
	member := e.fix.CreateUser(ctx, "Mem", "Ber", nil)
	e.fix.AddMembership(ctx, &member, models.RoleMember, &unit, nil, "")

	e.do(t, "POST", "/events", &leader, map[string]any{"title": "Rehearsal", "date": soon(time.Hour), "unit_id": unit.ID.Hex()}).
		AssertStatus(t, http.StatusCreated)
	if n := len(e.sent.Sent()); n != 0 {
		t.Fatalf("pushes = %d, want 0 without reminder", n)
	}

	e.do(t, "POST", "/events", &leader, map[string]any{"title": "Concert", "date": soon(2 * time.Hour), "unit_id": unit.ID.Hex(), "reminder": true}).
		AssertStatus(t, http.StatusCreated)
	sent := e.sent.Sent()
	if len(sent) != 1 || len(sent[0].UserIDs) != 2 {
		t.Fatalf("pushes = %+v, want one to both unit users", sent)
	}

	e.do(t, "POST", "/events", &member, map[string]any{"title": "Party", "date": soon(time.Hour), "unit_id": unit.ID.Hex()}).
		AssertStatus(t, http.StatusForbidden)
}

func TestChurchWideEventAlwaysPushes(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := e.fix.CreateOrganization(ctx, "Org")
	church := e.fix.CreateChurch(ctx, org.ID, "Grace")
	e.fix.CreateUser(ctx, "A", "One", &church.ID)
	e.fix.CreateUser(ctx, "B", "Two", &church.ID)

	rec := e.do(t, "POST", "/events", testutil.SuperAdmin(), map[string]any{
		"title": "Harvest", "date": soon(24 * time.Hour), "church_id": church.ID.Hex(),
	})
	rec.AssertStatus(t, http.StatusCreated)
	sent := e.sent.Sent()
	if len(sent) != 1 || len(sent[0].UserIDs) != 2 {
		t.Fatalf("pushes = %+v, want one to the church's two users", sent)
	}

	unit := e.fix.CreateUnit(ctx, "Choir", &church.ID, "")
	e.do(t, "POST", "/events", testutil.Leader(unit), map[string]any{
		"title": "Takeover", "date": soon(time.Hour), "church_id": church.ID.Hex(),
	}).AssertStatus(t, http.StatusForbidden)
}

func TestListUpcomingAndVisibility(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	choir := e.fix.CreateUnit(ctx, "Choir", nil, "")
	ushers := e.fix.CreateUnit(ctx, "Ushers", nil, "")
	admin := testutil.SuperAdmin()

	for i, unit := range []models.Unit{choir, choir, ushers} {
		e.do(t, "POST", "/events", admin, map[string]any{
			"title": "Meet", "date": soon(time.Duration(i+1) * time.Hour), "unit_id": unit.ID.Hex(),
		}).AssertStatus(t, http.StatusCreated)
	}
	e.do(t, "POST", "/events", admin, map[string]any{"title": "Old", "date": soon(-48 * time.Hour), "unit_id": choir.ID.Hex()}).
		AssertStatus(t, http.StatusCreated)

	rec := e.do(t, "GET", "/events", testutil.Member(choir), nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":3`)

	rec = e.do(t, "GET", "/events/upcoming?limit=1", testutil.Member(choir), nil)
	rec.AssertStatus(t, http.StatusOK)
	var out struct {
		Items []models.Event `json:"items"`
	}
	rec.Decode(t, &out)
	if len(out.Items) != 1 || out.Items[0].UnitID == nil || *out.Items[0].UnitID != choir.ID {
		t.Errorf("upcoming = %+v", out.Items)
	}
}

func TestUpdateDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Choir", nil, "")
	leader := testutil.Leader(unit)

	rec := e.do(t, "POST", "/events", leader, map[string]any{"title": "Rehearsal", "date": soon(time.Hour), "unit_id": unit.ID.Hex()})
	rec.AssertStatus(t, http.StatusCreated)
	var out struct {
		Item models.Event `json:"item"`
	}
	rec.Decode(t, &out)
	target := "/events/" + out.Item.ID.Hex()

	e.do(t, "PUT", target, testutil.Member(unit), map[string]any{"venue": "Hall"}).AssertStatus(t, http.StatusForbidden)
	rec = e.do(t, "PUT", target, leader, map[string]any{"venue": "Hall"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"venue":"Hall"`)
	e.do(t, "PUT", target, leader, map[string]any{"title": " "}).AssertStatus(t, http.StatusBadRequest)
	e.do(t, "DELETE", target, leader, nil).AssertStatus(t, http.StatusOK)
	e.do(t, "DELETE", target, leader, nil).AssertStatus(t, http.StatusNotFound)
}
