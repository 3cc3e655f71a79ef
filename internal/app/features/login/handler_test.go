package login_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/features/login"
	accesscodestore "github.com/dalemusser/churchhub/internal/app/store/accesscodes"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/ratelimit"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h      *login.Handler
	db     *mongo.Database
	fix    *testutil.Fixtures
	codes  *accesscodestore.Store
	tokens *auth.TokenManager
}

func newTestHandler(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	units := unitstore.NewCache(unitstore.New(db), 64, time.Minute)
	codes := accesscodestore.New(db, 6*time.Hour)
	tokens := auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	limiter := ratelimit.NewLoginLimiter()
	t.Cleanup(limiter.Stop)
	h := login.NewHandler(db, units, codes, tokens, limiter, nil, zap.NewNop())
	return env{h: h, db: db, fix: testutil.NewFixtures(t, db), codes: codes, tokens: tokens}
}

func TestStart_AccessCode(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	unit := e.fix.CreateUnit(ctx, "Choir", nil, "")
	ac, err := e.codes.Issue(ctx, models.RoleMember, &unit.ID, testutil.SuperAdmin().ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := testutil.NewRecorder()
	e.h.HandleStart(rec, testutil.NewJSONRequest(t, "POST", "/start", map[string]string{"access_code": ac.Code}))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"next":"register"`)

	rec = testutil.NewRecorder()
	e.h.HandleStart(rec, testutil.NewJSONRequest(t, "POST", "/start", map[string]string{"access_code": "000000"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Invalid code")
}

func TestStart_Phone(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fix.CreateUser(ctx, "Ada", "Okafor", nil)

	rec := testutil.NewRecorder()
	e.h.HandleStart(rec, testutil.NewJSONRequest(t, "POST", "/start", map[string]string{"phone": u.Phone}))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"next":"login"`)

	rec = testutil.NewRecorder()
	e.h.HandleStart(rec, testutil.NewJSONRequest(t, "POST", "/start", map[string]string{"phone": "+15550000000"}))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "Number not registered")
}

func TestRegister_ConsumesCodeAndAddsMembership(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := e.fix.CreateChurch(ctx, e.fix.CreateOrganization(ctx, "Org").ID, "Grace", "Youth")
	unit := e.fix.CreateUnit(ctx, "Ushers", &church.ID, "Youth")
	ac, err := e.codes.Issue(ctx, models.RoleMember, &unit.ID, testutil.SuperAdmin().ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	body := map[string]string{
		"access_code": ac.Code,
		"first_name":  "Bola",
		"surname":     "Ade",
		"phone":       "+15551230001",
		"password":    "secret1",
	}
	rec := testutil.NewRecorder()
	e.h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/register", body))
	rec.AssertStatus(t, http.StatusCreated)

	u, err := userstore.New(e.db).GetByPhone(ctx, "+15551230001")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if u.Approved {
		t.Error("new registrant should await approval")
	}
	if u.ChurchID == nil || *u.ChurchID != church.ID {
		t.Errorf("church = %v, want %v", u.ChurchID, church.ID)
	}
	ms, err := membershipstore.New(e.db).ListByUser(ctx, u.ID)
	if err != nil || len(ms) != 1 || ms[0].Role != models.RoleMember {
		t.Fatalf("memberships = %+v, err %v", ms, err)
	}

	// The code is single use.
	rec = testutil.NewRecorder()
	body["phone"] = "+15551230002"
	e.h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/register", body))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Code used")
}

func TestRegister_DuplicatePhoneReleasesCode(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing := e.fix.CreateUser(ctx, "Ada", "Okafor", nil)
	unit := e.fix.CreateUnit(ctx, "Choir", nil, "")
	ac, err := e.codes.Issue(ctx, models.RoleMember, &unit.ID, testutil.SuperAdmin().ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := testutil.NewRecorder()
	e.h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/register", map[string]string{
		"access_code": ac.Code,
		"first_name":  "Bola",
		"surname":     "Ade",
		"phone":       existing.Phone,
		"password":    "secret1",
	}))
	rec.AssertStatus(t, http.StatusConflict)

	if _, err := e.codes.Validate(ctx, ac.Code); err != nil {
		t.Errorf("code should be usable again, Validate err = %v", err)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	e := newTestHandler(t)
	rec := testutil.NewRecorder()
	e.h.HandleRegister(rec, testutil.NewJSONRequest(t, "POST", "/register", map[string]string{
		"access_code": "123456",
		"password":    "abc",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func createLoginUser(t *testing.T, e env, approved bool) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(e.db)
	u, err := users.Create(ctx, models.User{FirstName: "Kemi", Surname: "Bello", Phone: "+15557770001", Email: "kemi@example.com"}, "hunter22")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	unit := e.fix.CreateUnit(ctx, "Choir", nil, "")
	e.fix.AddMembership(ctx, &u, models.RoleUnitLeader, &unit, nil, "")
	if approved {
		if err := users.Approve(ctx, u.ID); err != nil {
			t.Fatalf("Approve: %v", err)
		}
	}
	return u
}

func TestLogin(t *testing.T) {
	e := newTestHandler(t)
	u := createLoginUser(t, e, true)

	rec := testutil.NewRecorder()
	e.h.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", map[string]string{"phone": u.Phone, "password": "hunter22"}))
	rec.AssertStatus(t, http.StatusOK)

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	rec.Decode(t, &out)
	claims, err := e.tokens.Parse(out.Token, auth.PurposeSession)
	if err != nil {
		t.Fatalf("Parse token: %v", err)
	}
	if claims.ActiveRole != models.RoleUnitLeader {
		t.Errorf("token role = %q, want UnitLeader", claims.ActiveRole)
	}
	if out.User.ActiveRole != models.RoleUnitLeader {
		t.Errorf("user active role = %q", out.User.ActiveRole)
	}
}

func TestLogin_ByEmail(t *testing.T) {
	e := newTestHandler(t)
	createLoginUser(t, e, true)

	rec := testutil.NewRecorder()
	e.h.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", map[string]string{"email": "KEMI@example.com", "password": "hunter22"}))
	rec.AssertStatus(t, http.StatusOK)
}

func TestLogin_Failures(t *testing.T) {
	e := newTestHandler(t)
	u := createLoginUser(t, e, false)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing password", map[string]string{"phone": u.Phone}, http.StatusBadRequest},
		{"unknown phone", map[string]string{"phone": "+15550009999", "password": "x"}, http.StatusUnauthorized},
		{"wrong password", map[string]string{"phone": u.Phone, "password": "nope"}, http.StatusUnauthorized},
		{"not approved", map[string]string{"phone": u.Phone, "password": "hunter22"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", tt.body))
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	e := newTestHandler(t)
	e.h.Limiter = ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	t.Cleanup(e.h.Limiter.Stop)
	u := createLoginUser(t, e, true)

	for i := 0; i < 2; i++ {
		rec := testutil.NewRecorder()
		e.h.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", map[string]string{"phone": u.Phone, "password": "bad"}))
		rec.AssertStatus(t, http.StatusUnauthorized)
	}
	rec := testutil.NewRecorder()
	e.h.HandleLogin(rec, testutil.NewJSONRequest(t, "POST", "/login", map[string]string{"phone": u.Phone, "password": "hunter22"}))
	rec.AssertStatus(t, http.StatusTooManyRequests)
}

func TestSwitchRole(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fix.CreateUser(ctx, "Ada", "Okafor", nil)
	unit := e.fix.CreateUnit(ctx, "Choir", nil, "")
	e.fix.AddMembership(ctx, &u, models.RoleMember, &unit, nil, "")
	e.fix.AddMembership(ctx, &u, models.RoleUnitLeader, &unit, nil, "")

	rec := testutil.NewRecorder()
	e.h.HandleSwitchRole(rec, testutil.NewAuthenticatedRequest(t, "POST", "/switch-role", &u, map[string]string{"role": models.RoleUnitLeader}))
	rec.AssertStatus(t, http.StatusOK)

	got, err := userstore.New(e.db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ActiveRole != models.RoleUnitLeader {
		t.Errorf("active role = %q, want UnitLeader", got.ActiveRole)
	}

	rec = testutil.NewRecorder()
	e.h.HandleSwitchRole(rec, testutil.NewAuthenticatedRequest(t, "POST", "/switch-role", &u, map[string]string{"role": models.RoleSuperAdmin}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "User does not have this role")
}
