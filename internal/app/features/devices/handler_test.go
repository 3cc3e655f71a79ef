package devices_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/churchhub/internal/app/features/devices"
	devicetokenstore "github.com/dalemusser/churchhub/internal/app/store/devicetokens"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T) (chi.Router, *testutil.Fixtures, *devicetokenstore.Store, *testutil.Notifications) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sent := &testutil.Notifications{}
	r := chi.NewRouter()
	r.Mount("/push", devices.Routes(devices.NewHandler(db, sent, nil, zap.NewNop())))
	return r, testutil.NewFixtures(t, db), devicetokenstore.New(db), sent
}

func serve(t *testing.T, r chi.Router, method, target string, u *models.User, body any) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, method, target, u, body))
	return rec
}

func TestRegisterAndUnregister(t *testing.T) {
	r, _, tokens, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := testutil.Member(models.Unit{ID: primitive.NewObjectID()})
	bob := testutil.Member(models.Unit{ID: primitive.NewObjectID()})

	serve(t, r, "POST", "/push/register", alice, map[string]string{"token": "tok-1", "platform": "Android"}).AssertStatus(t, http.StatusOK)
	serve(t, r, "POST", "/push/register", alice, map[string]string{"token": " "}).AssertStatus(t, http.StatusBadRequest)

	// the same device signing in as bob moves the token
	serve(t, r, "POST", "/push/register", bob, map[string]string{"token": "tok-1"}).AssertStatus(t, http.StatusOK)
	got, err := tokens.TokensFor(ctx, []primitive.ObjectID{alice.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("alice tokens = %v, want none", got)
	}

	serve(t, r, "DELETE", "/push/register", bob, map[string]string{"token": "tok-1"}).AssertStatus(t, http.StatusOK)
	got, _ = tokens.TokensFor(ctx, []primitive.ObjectID{bob.ID})
	if len(got) != 0 {
		t.Errorf("bob tokens = %v, want none", got)
	}
}

func TestBroadcast(t *testing.T) {
	r, fix, _, sent := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	serve(t, r, "POST", "/push/broadcast", testutil.SuperAdmin(), map[string]string{"title": "Hi"}).AssertStatus(t, http.StatusBadRequest)
	serve(t, r, "POST", "/push/broadcast", testutil.SuperAdmin(), map[string]string{"title": "Hi", "body": "All"}).AssertStatus(t, http.StatusAccepted)
	if s := sent.Sent(); len(s) != 1 || !s[0].Broadcast {
		t.Fatalf("pushes = %+v, want one broadcast", s)
	}

	org := fix.CreateOrganization(ctx, "Org")
	church := fix.CreateChurch(ctx, org.ID, "Grace")
	fix.CreateUser(ctx, "A", "One", &church.ID)
	local := testutil.SuperAdmin()
	local.Multi, local.ChurchID = false, &church.ID
	rec := serve(t, r, "POST", "/push/broadcast", local, map[string]string{"title": "Hi", "body": "Grace"})
	rec.AssertStatus(t, http.StatusAccepted)
	rec.AssertContains(t, `"recipients":1`)
	if s := sent.Sent(); len(s) != 2 || s[1].Broadcast {
		t.Fatalf("church broadcast = %+v", s)
	}

	unbound := testutil.SuperAdmin()
	unbound.Multi = false
	rec = serve(t, r, "POST", "/push/broadcast", unbound, map[string]string{"title": "Hi", "body": "Nobody"})
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "Out of church scope")
	if n := len(sent.Sent()); n != 2 {
		t.Fatalf("pushes after refused broadcast = %d, want 2", n)
	}

	member := testutil.Member(models.Unit{ID: primitive.NewObjectID()})
	serve(t, r, "POST", "/push/broadcast", member, map[string]string{"title": "Hi", "body": "x"}).AssertStatus(t, http.StatusForbidden)
}
