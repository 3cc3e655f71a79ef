package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SuperAdmin returns an in-memory multi SuperAdmin.
func SuperAdmin() *models.User {
	return &models.User{
		ID:         primitive.NewObjectID(),
		FirstName:  "Test",
		Surname:    "Admin",
		Approved:   true,
		IsVerified: true,
		Multi:      true,
		ActiveRole: models.RoleSuperAdmin,
		Roles: []models.RoleAssignment{{
			MembershipID: primitive.NewObjectID(),
			Role:         models.RoleSuperAdmin,
		}},
	}
}

// Leader returns an in-memory UnitLeader of unit.
func Leader(unit models.Unit) *models.User {
	return unitUser(unit, models.RoleUnitLeader)
}

// Member returns an in-memory Member of unit.
func Member(unit models.Unit) *models.User {
	return unitUser(unit, models.RoleMember)
}

func unitUser(unit models.Unit, role string) *models.User {
	id := unit.ID
	return &models.User{
		ID:         primitive.NewObjectID(),
		FirstName:  "Test",
		Surname:    role,
		Approved:   true,
		IsVerified: true,
		ActiveRole: role,
		ChurchID:   unit.ChurchID,
		Roles: []models.RoleAssignment{{
			MembershipID: primitive.NewObjectID(),
			Role:         role,
			UnitID:       &id,
			UnitChurchID: unit.ChurchID,
			UnitMinistry: unit.MinistryName,
		}},
	}
}

// WithUser adds a user to the request context for testing authenticated
// handlers. This bypasses token verification.
func WithUser(r *http.Request, u *models.User) *http.Request {
	return auth.WithTestUser(r, u)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is v encoded as JSON.
func NewJSONRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates a JSON request with a user in context.
func NewAuthenticatedRequest(t *testing.T, method, target string, u *models.User, v any) *http.Request {
	t.Helper()
	return WithUser(NewJSONRequest(t, method, target, v), u)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// AssertNotContains checks that the response body lacks s.
func (r *ResponseRecorder) AssertNotContains(t interface{ Errorf(string, ...any) }, s string) {
	if strings.Contains(r.Body.String(), s) {
		t.Errorf("response body unexpectedly contains %q", s)
	}
}

// Decode unmarshals the JSON body into v.
func (r *ResponseRecorder) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", r.Body.String(), err)
	}
}
