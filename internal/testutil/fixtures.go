package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

var phoneSeq atomic.Int64

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateOrganization creates a test organization with the given name.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Slug:      text.Fold(name) + "-" + primitive.NewObjectID().Hex()[18:],
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "organizations", org)
	return org
}

// CreateChurch creates a church under org with the named ministries.
func (f *Fixtures) CreateChurch(ctx context.Context, orgID primitive.ObjectID, name string, ministries ...string) models.Church {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Church{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		Name:           name,
		NameCI:         text.Fold(name),
		Slug:           fmt.Sprintf("church-%s", primitive.NewObjectID().Hex()),
		Ministries:     []models.Ministry{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, m := range ministries {
		c.Ministries = append(c.Ministries, models.Ministry{
			ID:        primitive.NewObjectID(),
			Name:      m,
			NameCI:    text.Fold(m),
			CreatedAt: now,
		})
	}
	f.insert(ctx, "churches", c)
	return c
}

// CreateUnit creates a unit in church under ministry. A nil church makes
// an unattached unit.
func (f *Fixtures) CreateUnit(ctx context.Context, name string, church *primitive.ObjectID, ministry string) models.Unit {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.Unit{
		ID:                 primitive.NewObjectID(),
		Name:               name,
		NameCI:             text.Fold(name),
		ChurchID:           church,
		MinistryName:       ministry,
		MinistryNameCI:     text.Fold(ministry),
		EnabledReportCards: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.insert(ctx, "units", u)
	return u
}

// CreateUser creates an approved, verified user with a unique phone number.
// The stored password hash is empty; use userstore for password tests.
func (f *Fixtures) CreateUser(ctx context.Context, first, surname string, church *primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:                    primitive.NewObjectID(),
		FirstName:             first,
		Surname:               surname,
		FullNameCI:            text.Fold(first + " " + surname),
		Phone:                 fmt.Sprintf("+1555%07d", phoneSeq.Add(1)),
		IsVerified:            true,
		RegistrationCompleted: true,
		Approved:              true,
		ChurchID:              church,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if church != nil {
		u.ChurchIDs = []primitive.ObjectID{*church}
	}
	f.insert(ctx, "users", u)
	return u
}

// AddMembership grants user a role. unit applies to UnitLeader and Member;
// church and ministry apply to MinistryAdmin. The returned assignment is
// also appended to u.Roles so the user can be used as a caller directly.
func (f *Fixtures) AddMembership(ctx context.Context, u *models.User, role string, unit *models.Unit, church *primitive.ObjectID, ministry string) models.Membership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Membership{
		ID:        primitive.NewObjectID(),
		UserID:    u.ID,
		Role:      role,
		Duties:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	var unitID *primitive.ObjectID
	if unit != nil {
		id := unit.ID
		unitID = &id
		m.UnitID = unitID
	}
	if role == models.RoleMinistryAdmin {
		m.ChurchID = church
		m.MinistryName = ministry
		m.MinistryNameCI = text.Fold(ministry)
	}
	m.Key = fmt.Sprintf("%s|%s|%s", role, m.ID.Hex(), text.Fold(ministry))
	f.insert(ctx, "memberships", m)

	ra := m.Assignment()
	if unit != nil {
		ra.UnitChurchID = unit.ChurchID
		ra.UnitMinistry = unit.MinistryName
	}
	u.Roles = append(u.Roles, ra)
	return m
}
