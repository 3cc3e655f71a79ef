package scope

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func oid() *primitive.ObjectID {
	id := primitive.NewObjectID()
	return &id
}

func TestResolvePriority(t *testing.T) {
	u1, u2, church := oid(), oid(), oid()
	roles := []models.RoleAssignment{
		{Role: models.RoleSuperAdmin},
		{Role: models.RoleMember, UnitID: u1, UnitChurchID: church, UnitMinistry: "Youth"},
		{Role: models.RoleUnitLeader, UnitID: u2},
	}

	t.Run("active role entry wins over first scoped", func(t *testing.T) {
		u := &models.User{Roles: roles, ActiveRole: models.RoleUnitLeader}
		s := Resolve(u, Override{})
		assert.Equal(t, SourceActive, s.Source)
		assert.Equal(t, *u2, *s.UnitID)
	})

	t.Run("unscoped active role falls back to first scoped", func(t *testing.T) {
		u := &models.User{Roles: roles, ActiveRole: models.RoleSuperAdmin}
		s := Resolve(u, Override{})
		assert.Equal(t, SourceFirst, s.Source)
		assert.Equal(t, *u1, *s.UnitID)
		assert.Equal(t, *church, *s.ChurchID)
		assert.Equal(t, "Youth", s.MinistryName)
	})

	t.Run("matching override wins", func(t *testing.T) {
		u := &models.User{Roles: roles, ActiveRole: models.RoleUnitLeader}
		s := Resolve(u, Override{UnitID: u1})
		assert.Equal(t, SourceOverride, s.Source)
		assert.Equal(t, *u1, *s.UnitID)
		assert.Equal(t, models.RoleMember, s.Role)
	})

	t.Run("override for unheld unit is ignored", func(t *testing.T) {
		u := &models.User{Roles: roles, ActiveRole: models.RoleUnitLeader}
		s := Resolve(u, Override{UnitID: oid()})
		assert.Equal(t, SourceActive, s.Source)
		assert.Equal(t, *u2, *s.UnitID)
	})

	t.Run("no scoped roles", func(t *testing.T) {
		u := &models.User{Roles: []models.RoleAssignment{{Role: models.RoleSuperAdmin}}}
		assert.True(t, Resolve(u, Override{}).None())
		assert.True(t, Resolve(nil, Override{}).None())
	})
}

func TestResolveDeterministic(t *testing.T) {
	a, b := oid(), oid()
	u := &models.User{
		ActiveRole: models.RoleMember,
		Roles: []models.RoleAssignment{
			{Role: models.RoleMember, UnitID: a},
			{Role: models.RoleMember, UnitID: b},
		},
	}
	first := Resolve(u, Override{})
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Resolve(u, Override{}))
	}
	assert.Equal(t, *a, *first.UnitID, "same-name roles resolve by insertion order")

	picked := Resolve(u, Override{UnitID: b})
	assert.Equal(t, *b, *picked.UnitID, "override selects the second membership")
}

func TestResolveMinistryAdminChurchOverride(t *testing.T) {
	c1, c2 := oid(), oid()
	u := &models.User{
		ActiveRole: models.RoleMinistryAdmin,
		Roles: []models.RoleAssignment{
			{Role: models.RoleMinistryAdmin, ChurchID: c1, MinistryName: "Youth"},
			{Role: models.RoleMinistryAdmin, ChurchID: c2, MinistryName: "Choir"},
		},
	}
	s := Resolve(u, Override{ChurchID: c2})
	assert.Equal(t, *c2, *s.ChurchID)
	assert.Equal(t, "Choir", s.MinistryName)
}

func TestResolveSuperAdminChurchOverride(t *testing.T) {
	home, other := oid(), oid()
	single := &models.User{ChurchID: home, Roles: []models.RoleAssignment{{Role: models.RoleSuperAdmin}}}

	assert.Equal(t, SourceOverride, Resolve(single, Override{ChurchID: home}).Source)
	assert.True(t, Resolve(single, Override{ChurchID: other}).None())

	multi := &models.User{Multi: true, Roles: []models.RoleAssignment{{Role: models.RoleSuperAdmin}}}
	s := Resolve(multi, Override{ChurchID: other})
	assert.Equal(t, *other, *s.ChurchID)
}

func TestFromRequest(t *testing.T) {
	unit := primitive.NewObjectID()
	church := primitive.NewObjectID()

	r := httptest.NewRequest("GET", "/api/souls?scopeChurch="+church.Hex(), nil)
	r.Header.Set(HeaderUnit, unit.Hex())
	o := FromRequest(r)
	assert.Equal(t, unit, *o.UnitID)
	assert.Equal(t, church, *o.ChurchID)

	bad := httptest.NewRequest("GET", "/api/souls?scopeUnit=nope", nil)
	assert.Nil(t, FromRequest(bad).UnitID)
}
