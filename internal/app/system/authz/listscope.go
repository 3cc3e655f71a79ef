// internal/app/system/authz/listscope.go
package authz

import (
	"strings"

	"github.com/dalemusser/churchhub/internal/app/system/scope"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode is the value of the scope query parameter on list endpoints.
type Mode string

const (
	ModeMine Mode = "mine"
	ModeUnit Mode = "unit"
	ModeAuto Mode = "auto"
)

// ParseMode accepts mine, unit or auto (default).
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, true
	case ModeMine:
		return ModeMine, true
	case ModeUnit:
		return ModeUnit, true
	}
	return "", false
}

// ListScope is the filter a list query must apply. Exactly one of All,
// UnitIDs, ChurchID (optionally with Ministry) or AddedBy alone describes
// the visible set; AddedBy combined with UnitIDs narrows to own records in
// those units.
type ListScope struct {
	All      bool
	UnitIDs  []primitive.ObjectID
	ChurchID *primitive.ObjectID
	Ministry string
	AddedBy  *primitive.ObjectID
}

// ListScopeFor computes the filter for a list request. requested is an
// explicit target unit from the caller and is honored only when Authorize
// would allow reading it; otherwise the request is denied.
func ListScopeFor(u *models.User, mode Mode, requested *UnitRef, resolved scope.Scope) (ListScope, Decision) {
	if u == nil {
		return ListScope{}, deny(ReasonSignedOut)
	}
	me := u.ID

	if requested != nil {
		d := Authorize(u, ActionRead, Resource{Unit: requested, ExplicitUnit: true})
		if !d.Allowed {
			return ListScope{}, d
		}
		ls := ListScope{UnitIDs: []primitive.ObjectID{requested.ID}}
		if mode == ModeMine {
			ls.AddedBy = &me
		}
		return ls, allow()
	}

	switch mode {
	case ModeMine:
		return ListScope{AddedBy: &me}, allow()
	case ModeUnit:
		if resolved.UnitID != nil {
			return ListScope{UnitIDs: []primitive.ObjectID{*resolved.UnitID}}, allow()
		}
		if resolved.ChurchID != nil && resolved.MinistryName != "" && resolved.Role == models.RoleMinistryAdmin {
			return ListScope{ChurchID: resolved.ChurchID, Ministry: resolved.MinistryName}, allow()
		}
		return ListScope{AddedBy: &me}, allow()
	}
	return autoScope(u, resolved), allow()
}

// autoScope gives the widest view of the governing role: the active role
// when the user still holds it, otherwise the most privileged held role.
func autoScope(u *models.User, resolved scope.Scope) ListScope {
	me := u.ID
	role := u.ActiveRole
	if role == "" || !u.HasRole(role) {
		role = highestRole(u)
	}

	switch role {
	case models.RoleSuperAdmin:
		if resolved.Source == scope.SourceOverride && resolved.Role == models.RoleSuperAdmin && resolved.ChurchID != nil {
			return ListScope{ChurchID: resolved.ChurchID}
		}
		if u.Multi {
			return ListScope{All: true}
		}
		if u.ChurchID != nil {
			return ListScope{ChurchID: u.ChurchID}
		}
	case models.RoleMinistryAdmin:
		if resolved.Role == models.RoleMinistryAdmin && resolved.ChurchID != nil {
			return ListScope{ChurchID: resolved.ChurchID, Ministry: resolved.MinistryName}
		}
		for _, ra := range u.RolesNamed(models.RoleMinistryAdmin) {
			if ra.ChurchID != nil && ra.MinistryName != "" {
				return ListScope{ChurchID: ra.ChurchID, Ministry: ra.MinistryName}
			}
		}
	case models.RoleUnitLeader:
		if led := u.LedUnitIDs(); len(led) > 0 {
			return ListScope{UnitIDs: led}
		}
	}
	return ListScope{AddedBy: &me}
}

func highestRole(u *models.User) string {
	for _, r := range []string{models.RoleSuperAdmin, models.RoleMinistryAdmin, models.RoleUnitLeader, models.RoleMember} {
		if u.HasRole(r) {
			return r
		}
	}
	return ""
}
