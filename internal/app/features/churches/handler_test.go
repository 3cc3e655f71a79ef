package churches_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/churchhub/internal/app/features/churches"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*churches.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return churches.NewHandler(db, nil, zap.NewNop()), testutil.NewFixtures(t, db)
}

func TestCreate_DefaultsToFirstOrganization(t *testing.T) {
	h, fix := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fix.CreateOrganization(ctx, "Mission")

	rec := testutil.NewRecorder()
	h.HandleCreate(rec, testutil.NewAuthenticatedRequest(t, "POST", "/churches", testutil.SuperAdmin(), map[string]any{
		"name":       "Grace Chapel",
		"ministries": []string{"Youth", "youth", "Choir"},
	}))
	rec.AssertStatus(t, http.StatusCreated)

	var out struct {
		Item models.Church `json:"item"`
	}
	rec.Decode(t, &out)
	if out.Item.OrganizationID != org.ID {
		t.Errorf("organization = %v, want %v", out.Item.OrganizationID, org.ID)
	}
	if len(out.Item.Ministries) != 2 {
		t.Errorf("ministries = %d, want 2 (duplicate folded)", len(out.Item.Ministries))
	}

	rec = testutil.NewRecorder()
	h.HandleCreate(rec, testutil.NewAuthenticatedRequest(t, "POST", "/churches", testutil.SuperAdmin(), map[string]any{"name": "Grace Chapel"}))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestMinistries(t *testing.T) {
	h, fix := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	church := fix.CreateChurch(ctx, fix.CreateOrganization(ctx, "Org").ID, "Grace", "Youth")
	admin := testutil.SuperAdmin()

	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(t, "POST", "/ministries", admin, map[string]string{"name": "YOUTH"})
	h.HandleAddMinistry(rec, testutil.WithChiURLParam(req, "id", church.ID.Hex()))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "Ministry already exists")

	rec = testutil.NewRecorder()
	req = testutil.NewAuthenticatedRequest(t, "POST", "/ministries", admin, map[string]string{"name": "Ushering"})
	h.HandleAddMinistry(rec, testutil.WithChiURLParam(req, "id", church.ID.Hex()))
	rec.AssertStatus(t, http.StatusCreated)

	var out struct {
		Item models.Ministry `json:"item"`
	}
	rec.Decode(t, &out)

	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(testutil.WithUser(testutil.NewRequest("DELETE", "/ministries"), admin), "id", church.ID.Hex())
	h.HandleRemoveMinistry(rec, testutil.WithChiURLParam(req, "ministryId", out.Item.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
}

func TestDelete_RequiresNoUnits(t *testing.T) {
	h, fix := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	church := fix.CreateChurch(ctx, fix.CreateOrganization(ctx, "Org").ID, "Grace")
	unit := fix.CreateUnit(ctx, "Choir", &church.ID, "")

	req := testutil.WithChiURLParam(testutil.WithUser(testutil.NewRequest("DELETE", "/churches"), testutil.SuperAdmin()), "id", church.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusConflict)

	if err := h.Units.Delete(ctx, unit.ID); err != nil {
		t.Fatalf("Delete unit: %v", err)
	}
	rec = testutil.NewRecorder()
	h.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusOK)
}

func TestServeChurch_Visibility(t *testing.T) {
	h, fix := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := fix.CreateOrganization(ctx, "Org")
	mine := fix.CreateChurch(ctx, org.ID, "Mine")
	other := fix.CreateChurch(ctx, org.ID, "Other")
	member := testutil.Member(fix.CreateUnit(ctx, "Choir", &mine.ID, ""))

	rec := testutil.NewRecorder()
	h.ServeChurch(rec, testutil.WithChiURLParam(testutil.WithUser(testutil.NewRequest("GET", "/"), member), "id", mine.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.ServeChurch(rec, testutil.WithChiURLParam(testutil.WithUser(testutil.NewRequest("GET", "/"), member), "id", other.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.WithUser(testutil.NewRequest("GET", "/"), member))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Mine")
}
