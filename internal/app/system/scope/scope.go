// internal/app/system/scope/scope.go
package scope

import (
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Request headers and query parameters that select a scope explicitly.
const (
	HeaderUnit   = "X-Scope-Unit"
	HeaderChurch = "X-Scope-Church"
	QueryUnit    = "scopeUnit"
	QueryChurch  = "scopeChurch"
)

// Source records which rule produced a Scope.
type Source string

const (
	SourceOverride Source = "override"
	SourceActive   Source = "active_role"
	SourceFirst    Source = "first_scoped"
	SourceNone     Source = "none"
)

// Override is a caller-supplied scope selection. It only takes effect when
// the user holds a role matching it.
type Override struct {
	UnitID   *primitive.ObjectID
	ChurchID *primitive.ObjectID
}

func (o Override) empty() bool { return o.UnitID == nil && o.ChurchID == nil }

// Scope is the effective unit/church/ministry context for one request.
type Scope struct {
	UnitID       *primitive.ObjectID `json:"unit_id,omitempty"`
	ChurchID     *primitive.ObjectID `json:"church_id,omitempty"`
	MinistryName string              `json:"ministry_name,omitempty"`
	Role         string              `json:"role,omitempty"`
	Source       Source              `json:"source"`
}

// None reports whether no scope applies.
func (s Scope) None() bool { return s.Source == SourceNone }

// Resolve picks the scope for u. First match wins:
//  1. an override matching a held role
//  2. the scoped entry for the active role
//  3. the first scoped entry in insertion order
//  4. no scope
//
// The result depends only on u.Roles, u.ActiveRole and o.
func Resolve(u *models.User, o Override) Scope {
	if u == nil {
		return Scope{Source: SourceNone}
	}
	if !o.empty() {
		if s, ok := fromOverride(u, o); ok {
			return s
		}
	}
	if u.ActiveRole != "" {
		for _, ra := range u.Roles {
			if ra.Role == u.ActiveRole && ra.Scoped() {
				return fromEntry(ra, SourceActive)
			}
		}
	}
	for _, ra := range u.Roles {
		if ra.Scoped() {
			return fromEntry(ra, SourceFirst)
		}
	}
	return Scope{Source: SourceNone}
}

func fromOverride(u *models.User, o Override) (Scope, bool) {
	var match *models.RoleAssignment
	for i := range u.Roles {
		ra := u.Roles[i]
		ok := false
		switch {
		case o.UnitID != nil:
			ok = ra.InUnit(*o.UnitID)
		case o.ChurchID != nil:
			ok = ra.ChurchID != nil && *ra.ChurchID == *o.ChurchID
		}
		if !ok {
			continue
		}
		// Among matching entries the active role wins, then insertion order.
		if match == nil || (ra.Role == u.ActiveRole && match.Role != u.ActiveRole) {
			match = &u.Roles[i]
		}
	}
	if match != nil {
		return fromEntry(*match, SourceOverride), true
	}
	if o.UnitID == nil && o.ChurchID != nil && u.IsSuperAdmin() && superAdminHoldsChurch(u, *o.ChurchID) {
		c := *o.ChurchID
		return Scope{ChurchID: &c, Role: models.RoleSuperAdmin, Source: SourceOverride}, true
	}
	return Scope{}, false
}

func superAdminHoldsChurch(u *models.User, church primitive.ObjectID) bool {
	if u.Multi {
		return true
	}
	if u.ChurchID != nil && *u.ChurchID == church {
		return true
	}
	for _, c := range u.ChurchIDs {
		if c == church {
			return true
		}
	}
	return false
}

func fromEntry(ra models.RoleAssignment, src Source) Scope {
	s := Scope{Role: ra.Role, Source: src, MinistryName: ra.MinistryName, ChurchID: ra.ChurchID}
	if ra.UnitID != nil {
		id := *ra.UnitID
		s.UnitID = &id
		if s.ChurchID == nil {
			s.ChurchID = ra.UnitChurchID
		}
		if s.MinistryName == "" {
			s.MinistryName = ra.UnitMinistry
		}
	}
	return s
}

// FromRequest reads an explicit scope selection from headers, falling back
// to query parameters. Malformed ids are ignored.
func FromRequest(r *http.Request) Override {
	var o Override
	if id, ok := parseID(r.Header.Get(HeaderUnit), r.URL.Query().Get(QueryUnit)); ok {
		o.UnitID = &id
	}
	if id, ok := parseID(r.Header.Get(HeaderChurch), r.URL.Query().Get(QueryChurch)); ok {
		o.ChurchID = &id
	}
	return o
}

func parseID(vals ...string) (primitive.ObjectID, bool) {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if id, err := primitive.ObjectIDFromHex(v); err == nil {
			return id, true
		}
	}
	return primitive.NilObjectID, false
}
