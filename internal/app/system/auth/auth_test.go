package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeUsers map[primitive.ObjectID]*models.User

func (f fakeUsers) FetchWithRoles(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func okHandler(t *testing.T, check func(*models.User)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := auth.CurrentUser(r)
		if check != nil {
			check(u)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-must-be-long-enough-32", time.Hour)
	id := primitive.NewObjectID()

	tok, err := tm.IssueSession(id, models.RoleUnitLeader)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	c, err := tm.Parse(tok, auth.PurposeSession)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.UserID != id.Hex() || c.ActiveRole != models.RoleUnitLeader {
		t.Errorf("claims = %+v", c)
	}
	if _, err := tm.Parse(tok, auth.PurposeEmailVerify); err != auth.ErrWrongPurpose {
		t.Errorf("wrong purpose err = %v", err)
	}
}

func TestTokenExpiredAndTampered(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-must-be-long-enough-32", time.Millisecond)
	tok, _ := tm.IssueSession(primitive.NewObjectID(), "")
	time.Sleep(1100 * time.Millisecond)
	if _, err := tm.Parse(tok, auth.PurposeSession); err != auth.ErrExpiredToken {
		t.Errorf("expired err = %v", err)
	}

	other := auth.NewTokenManager("another-secret-entirely-32-chars!!", time.Hour)
	tok2, _ := other.IssueSession(primitive.NewObjectID(), "")
	if _, err := tm.Parse(tok2, auth.PurposeSession); err != auth.ErrInvalidToken {
		t.Errorf("foreign signature err = %v", err)
	}
}

func TestLoadUser_AppliesHeldActiveRole(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-must-be-long-enough-32", time.Hour)
	unit := primitive.NewObjectID()
	u := &models.User{
		ID:         primitive.NewObjectID(),
		ActiveRole: models.RoleMember,
		Roles: []models.RoleAssignment{
			{Role: models.RoleMember, UnitID: &unit},
			{Role: models.RoleUnitLeader, UnitID: &unit},
		},
	}
	mw := auth.NewMiddleware(tm, fakeUsers{u.ID: u}, zap.NewNop())

	tok, _ := tm.IssueSession(u.ID, models.RoleUnitLeader)
	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	var got *models.User
	mw.LoadUser(okHandler(t, func(u *models.User) { got = u })).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || got == nil {
		t.Fatalf("status = %d, user = %v", rec.Code, got)
	}
	if got.ActiveRole != models.RoleUnitLeader {
		t.Errorf("active role = %q, want UnitLeader", got.ActiveRole)
	}
}

func TestLoadUser_BadTokenIsUnauthorized(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-must-be-long-enough-32", time.Hour)
	mw := auth.NewMiddleware(tm, fakeUsers{}, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	mw.LoadUser(okHandler(t, nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "unauthorized" {
		t.Errorf("body = %v", body)
	}
}

func TestLoadUser_UnknownUserIsUnauthorized(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-must-be-long-enough-32", time.Hour)
	mw := auth.NewMiddleware(tm, fakeUsers{}, zap.NewNop())
	tok, _ := tm.IssueSession(primitive.NewObjectID(), "")

	req := httptest.NewRequest("GET", "/ws?token="+tok, nil)
	rec := httptest.NewRecorder()
	mw.LoadUser(okHandler(t, nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	rec := httptest.NewRecorder()
	auth.RequireSignedIn(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest("GET", "/api/souls", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	unit := primitive.NewObjectID()
	member := &models.User{ID: primitive.NewObjectID(), Roles: []models.RoleAssignment{{Role: models.RoleMember, UnitID: &unit}}}
	admin := &models.User{ID: primitive.NewObjectID(), Roles: []models.RoleAssignment{{Role: models.RoleSuperAdmin}}}

	h := auth.RequireRole(models.RoleSuperAdmin)(okHandler(t, nil))

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", member, http.StatusForbidden},
		{"superadmin", admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/push/broadcast", nil)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireMultiSuperAdmin(t *testing.T) {
	single := &models.User{ID: primitive.NewObjectID(), Roles: []models.RoleAssignment{{Role: models.RoleSuperAdmin}}}
	multi := &models.User{ID: primitive.NewObjectID(), Multi: true, Roles: single.Roles}

	h := auth.RequireMultiSuperAdmin(okHandler(t, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, auth.WithTestUser(httptest.NewRequest("POST", "/api/churches", nil), single))
	if rec.Code != http.StatusForbidden {
		t.Errorf("single: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, auth.WithTestUser(httptest.NewRequest("POST", "/api/churches", nil), multi))
	if rec.Code != http.StatusOK {
		t.Errorf("multi: status = %d, want 200", rec.Code)
	}
}
