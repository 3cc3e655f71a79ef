// internal/app/system/authz/approval.go
package authz

import (
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Approval denial reasons.
const (
	ReasonCannotApproveSuperAdmin = "Cannot approve SuperAdmin"
	ReasonOnlyMultiApprovesSA     = "Only multi SuperAdmin can approve SuperAdmin"
	ReasonMinistryScopeMissing    = "Ministry scope missing"
	ReasonTargetOutsideMinistry   = "Target outside ministry scope"
	ReasonTargetOutsideChurch     = "Target outside church scope"
	ReasonLeaderCannotApprove     = "Leader cannot approve this user"
	ReasonLeaderOnlyMembers       = "Leader can only approve members"
)

// AuthorizeApproval decides whether actor may approve (or reject) the
// pending account target. Each role the actor holds is tried from most to
// least privileged; the first grant wins, otherwise the first refusal is
// returned.
func AuthorizeApproval(actor, target *models.User) Decision {
	if actor == nil {
		return deny(ReasonSignedOut)
	}
	if target == nil {
		return Decision{Kind: DenyNotFound, Reason: "User not found"}
	}

	var first *Decision
	try := func(d Decision) bool {
		if d.Allowed {
			return true
		}
		if first == nil {
			first = &d
		}
		return false
	}

	if actor.IsSuperAdmin() && try(superAdminApproves(actor, target)) {
		return allow()
	}
	if actor.HasRole(models.RoleMinistryAdmin) && try(ministryAdminApproves(actor, target)) {
		return allow()
	}
	if actor.HasRole(models.RoleUnitLeader) && try(leaderApproves(actor, target)) {
		return allow()
	}
	if first != nil {
		return *first
	}
	return deny(ReasonForbidden)
}

func targetIsSuperAdmin(t *models.User) bool {
	return t.IsSuperAdmin() || t.SuperAdminPending
}

func superAdminApproves(actor, target *models.User) Decision {
	if targetIsSuperAdmin(target) {
		if !actor.Multi {
			return deny(ReasonOnlyMultiApprovesSA)
		}
		return allow()
	}
	if actor.Multi {
		return allow()
	}
	if actor.ChurchID == nil {
		return deny(ReasonTargetOutsideChurch)
	}
	for _, c := range targetChurches(target) {
		if c == *actor.ChurchID {
			return allow()
		}
	}
	return deny(ReasonTargetOutsideChurch)
}

func ministryAdminApproves(actor, target *models.User) Decision {
	if targetIsSuperAdmin(target) {
		return deny(ReasonCannotApproveSuperAdmin)
	}
	scoped := false
	for _, ra := range actor.RolesNamed(models.RoleMinistryAdmin) {
		if ra.ChurchID == nil || ra.MinistryName == "" {
			continue
		}
		scoped = true
		for _, tr := range target.Roles {
			church, ministry := entryPlacement(tr)
			if church != nil && *church == *ra.ChurchID && sameMinistry(ra.MinistryName, ministry) {
				return allow()
			}
		}
	}
	if !scoped {
		return deny(ReasonMinistryScopeMissing)
	}
	return deny(ReasonTargetOutsideMinistry)
}

func leaderApproves(actor, target *models.User) Decision {
	if targetIsSuperAdmin(target) {
		return deny(ReasonCannotApproveSuperAdmin)
	}
	shares := false
	for _, unit := range actor.LedUnitIDs() {
		if target.HoldsRoleInUnit(unit) {
			shares = true
			break
		}
	}
	if !shares {
		return deny(ReasonLeaderCannotApprove)
	}
	if !target.HasRole(models.RoleMember) {
		return deny(ReasonLeaderOnlyMembers)
	}
	return allow()
}

// entryPlacement returns the church and ministry a role entry sits in,
// reading through to the unit for unit-scoped entries.
func entryPlacement(ra models.RoleAssignment) (*primitive.ObjectID, string) {
	church, ministry := ra.ChurchID, ra.MinistryName
	if church == nil {
		church = ra.UnitChurchID
	}
	if ministry == "" {
		ministry = ra.UnitMinistry
	}
	return church, ministry
}

func targetChurches(t *models.User) []primitive.ObjectID {
	var out []primitive.ObjectID
	if t.ChurchID != nil {
		out = append(out, *t.ChurchID)
	}
	for _, ra := range t.Roles {
		if c, _ := entryPlacement(ra); c != nil {
			out = append(out, *c)
		}
	}
	return out
}
