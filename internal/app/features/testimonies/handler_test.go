package testimonies_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/churchhub/internal/app/features/testimonies"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.uber.org/zap"
)

func TestTestimonyLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := testimonies.NewHandler(db, zap.NewNop())
	fix := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := fix.CreateUnit(ctx, "Choir", nil, "")
	author := testutil.Member(unit)
	reader := testutil.Member(unit)
	admin := testutil.SuperAdmin()

	rec := testutil.NewRecorder()
	h.HandleCreate(rec, testutil.NewAuthenticatedRequest(t, "POST", "/testimonies", author, map[string]string{
		"title": "Healed", "body": "Thank God",
	}))
	rec.AssertStatus(t, http.StatusCreated)
	var created struct {
		Item models.Testimony `json:"item"`
	}
	rec.Decode(t, &created)

	total := func(u *models.User) int64 {
		t.Helper()
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.WithUser(testutil.NewRequest("GET", "/testimonies"), u))
		rec.AssertStatus(t, http.StatusOK)
		var out struct {
			Total int64 `json:"total"`
		}
		rec.Decode(t, &out)
		return out.Total
	}

	if got := total(author); got != 1 {
		t.Errorf("author sees %d, want own pending 1", got)
	}
	if got := total(reader); got != 0 {
		t.Errorf("reader sees %d before approval, want 0", got)
	}

	rec = testutil.NewRecorder()
	h.HandleApprove(rec, testutil.WithChiURLParam(testutil.WithUser(testutil.NewRequest("POST", "/approve"), admin), "id", created.Item.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	if got := total(reader); got != 1 {
		t.Errorf("reader sees %d after approval, want 1", got)
	}

	rec = testutil.NewRecorder()
	h.HandleCreate(rec, testutil.NewAuthenticatedRequest(t, "POST", "/testimonies", author, map[string]string{"title": "Empty"}))
	rec.AssertStatus(t, http.StatusBadRequest)
}
