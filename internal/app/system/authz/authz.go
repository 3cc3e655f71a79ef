// internal/app/system/authz/authz.go
package authz

import (
	"strings"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is an operation on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage" // settings, member and duty administration
)

// UnitRef describes a unit by its place in the hierarchy.
type UnitRef struct {
	ID       primitive.ObjectID
	ChurchID *primitive.ObjectID
	Ministry string
}

// UnitRefOf builds a UnitRef from a stored unit.
func UnitRefOf(u *models.Unit) *UnitRef {
	return &UnitRef{ID: u.ID, ChurchID: u.ChurchID, Ministry: u.MinistryName}
}

// Resource is the scope descriptor of the thing being acted on. For update
// and delete it must be built from the stored document, never from the
// caller's current scope.
type Resource struct {
	Unit     *UnitRef
	ChurchID *primitive.ObjectID // church-level resources without a unit
	Ministry string              // with ChurchID, ministry-level resources
	AddedBy  *primitive.ObjectID
	Duty     string // duty required beneath the role check, if any

	// ExplicitUnit is set when the caller asked for this unit's scope.
	// Members may read their own unit's records only in that case.
	ExplicitUnit bool
}

func (r Resource) church() *primitive.ObjectID {
	if r.Unit != nil && r.Unit.ChurchID != nil {
		return r.Unit.ChurchID
	}
	return r.ChurchID
}

func (r Resource) ministry() string {
	if r.Unit != nil && r.Unit.Ministry != "" {
		return r.Unit.Ministry
	}
	return r.Ministry
}

// DenyKind separates "you may not" from "there is nothing here for you".
type DenyKind int

const (
	DenyForbidden DenyKind = iota
	DenyNotFound
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Kind    DenyKind
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Kind: DenyForbidden, Reason: reason} }

// Err converts a denial into the matching API error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Kind == DenyNotFound {
		return apierr.NotFound(d.Reason)
	}
	return apierr.Forbidden(d.Reason)
}

// Denial reasons surfaced verbatim to callers.
const (
	ReasonSignedOut     = "unauthorized"
	ReasonOutOfChurch   = "Out of church scope"
	ReasonOutOfMinistry = "Out of ministry scope"
	ReasonOutOfUnit     = "Out of unit scope"
	ReasonNotOwner      = "You can only modify records you added"
	ReasonForbidden     = "Forbidden"
	reasonRequiresDuty  = "Requires duty "
)

// Authorize decides whether u may perform action on res. A user's rights
// are the union of what every held role grants; when all of them refuse,
// the reason comes from the most privileged role held.
func Authorize(u *models.User, action Action, res Resource) Decision {
	if u == nil {
		return deny(ReasonSignedOut)
	}

	roleDec, elevated := byRole(u, action, res)
	if res.Duty == "" {
		return roleDec
	}

	// Duty layer: admins in scope and the unit's leader pass; everyone else
	// needs the duty on a role entry for the target unit.
	if roleDec.Allowed && elevated {
		return allow()
	}
	if res.Unit != nil && u.HasDuty(res.Unit.ID, res.Duty) {
		return allow()
	}
	if !roleDec.Allowed && (res.Unit == nil || !u.HoldsRoleInUnit(res.Unit.ID)) {
		return roleDec
	}
	return deny(reasonRequiresDuty + res.Duty)
}

// byRole evaluates the role layer. elevated reports that the grant came
// from an administrative or leader role rather than ownership or membership.
func byRole(u *models.User, action Action, res Resource) (Decision, bool) {
	var reasons []string

	if u.IsSuperAdmin() {
		ok, reason := SuperAdminInScope(u, res.church())
		if ok {
			return allow(), true
		}
		reasons = append(reasons, reason)
	}
	if u.HasRole(models.RoleMinistryAdmin) {
		if MinistryAdminInScope(u, res.church(), res.ministry()) {
			return allow(), true
		}
		reasons = append(reasons, ReasonOutOfMinistry)
	}
	if u.HasRole(models.RoleUnitLeader) {
		if res.Unit != nil && u.LeadsUnit(res.Unit.ID) {
			return allow(), true
		}
		reasons = append(reasons, ReasonOutOfUnit)
	}

	if memberAllows(u, action, res) {
		return allow(), false
	}
	switch action {
	case ActionUpdate, ActionDelete:
		if res.AddedBy != nil && res.Unit != nil && u.HoldsRoleInUnit(res.Unit.ID) {
			reasons = append(reasons, ReasonNotOwner)
		}
	}
	reasons = append(reasons, ReasonOutOfUnit)
	return deny(reasons[0]), false
}

// memberAllows is the baseline every signed-in user gets: own records, and
// the records of a unit they hold a role in when that unit was requested.
func memberAllows(u *models.User, action Action, res Resource) bool {
	owner := res.AddedBy != nil && *res.AddedBy == u.ID
	inUnit := res.Unit != nil && u.HoldsRoleInUnit(res.Unit.ID)

	switch action {
	case ActionRead:
		return owner || (res.ExplicitUnit && inUnit)
	case ActionCreate:
		return inUnit
	case ActionUpdate, ActionDelete:
		return owner
	}
	return false
}

// SuperAdminInScope applies the church restriction for SuperAdmins. Multi
// SuperAdmins are global; the rest are confined to their primary church,
// and one with no primary church is in scope nowhere.
func SuperAdminInScope(u *models.User, church *primitive.ObjectID) (bool, string) {
	if !u.IsSuperAdmin() {
		return false, ReasonForbidden
	}
	if u.Multi {
		return true, ""
	}
	if u.ChurchID != nil && church != nil && *church == *u.ChurchID {
		return true, ""
	}
	return false, ReasonOutOfChurch
}

// MinistryAdminInScope reports whether any MinistryAdmin entry matches the
// church and ministry exactly. Ministry names compare case-insensitively.
func MinistryAdminInScope(u *models.User, church *primitive.ObjectID, ministry string) bool {
	if church == nil || strings.TrimSpace(ministry) == "" {
		return false
	}
	for _, ra := range u.RolesNamed(models.RoleMinistryAdmin) {
		if ra.ChurchID != nil && *ra.ChurchID == *church && sameMinistry(ra.MinistryName, ministry) {
			return true
		}
	}
	return false
}

func sameMinistry(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Require is a convenience wrapper returning Decision.Err.
func Require(u *models.User, action Action, res Resource) error {
	return Authorize(u, action, res).Err()
}
