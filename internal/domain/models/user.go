// internal/domain/models/user.go
package models

import (
	"errors"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names. A user may hold any number of them at once, each entry carrying
// its own scope.
const (
	RoleSuperAdmin    = "SuperAdmin"
	RoleMinistryAdmin = "MinistryAdmin"
	RoleUnitLeader    = "UnitLeader"
	RoleMember        = "Member"
)

// ValidRole reports whether r is one of the four role names.
func ValidRole(r string) bool {
	switch r {
	case RoleSuperAdmin, RoleMinistryAdmin, RoleUnitLeader, RoleMember:
		return true
	}
	return false
}

var (
	ErrBadRole          = errors.New("invalid role")
	ErrRoleNeedsUnit    = errors.New("unit required for this role")
	ErrRoleNeedsScope   = errors.New("church and ministry required for MinistryAdmin")
	ErrRoleUnexpectedID = errors.New("SuperAdmin role carries no unit")
)

// RoleAssignment is one {role, scope} pair held by a user.
//
// Role assignments are stored in the memberships collection; the user fetcher
// assembles them in insertion order. UnitChurchID and UnitMinistry are filled
// from the referenced unit at read time so scope checks need no extra I/O.
type RoleAssignment struct {
	MembershipID primitive.ObjectID  `json:"id"`
	Role         string              `json:"role"`
	UnitID       *primitive.ObjectID `json:"unit_id,omitempty"`
	ChurchID     *primitive.ObjectID `json:"church_id,omitempty"`
	MinistryName string              `json:"ministry_name,omitempty"`
	Duties       []string            `json:"duties,omitempty"`

	UnitChurchID *primitive.ObjectID `json:"unit_church_id,omitempty"`
	UnitMinistry string              `json:"unit_ministry,omitempty"`
}

// Validate enforces the shape rules for each role.
func (ra RoleAssignment) Validate() error {
	switch ra.Role {
	case RoleSuperAdmin:
		if ra.UnitID != nil {
			return ErrRoleUnexpectedID
		}
	case RoleMinistryAdmin:
		if ra.ChurchID == nil || strings.TrimSpace(ra.MinistryName) == "" {
			return ErrRoleNeedsScope
		}
	case RoleUnitLeader, RoleMember:
		if ra.UnitID == nil {
			return ErrRoleNeedsUnit
		}
	default:
		return ErrBadRole
	}
	return nil
}

// Scoped reports whether the entry names a unit, church or ministry.
func (ra RoleAssignment) Scoped() bool {
	return ra.UnitID != nil || ra.ChurchID != nil || ra.MinistryName != ""
}

// InUnit reports whether the entry is scoped to unit.
func (ra RoleAssignment) InUnit(unit primitive.ObjectID) bool {
	return ra.UnitID != nil && *ra.UnitID == unit
}

// HasDuty matches duty names case-insensitively.
func (ra RoleAssignment) HasDuty(duty string) bool {
	for _, d := range ra.Duties {
		if strings.EqualFold(strings.TrimSpace(d), strings.TrimSpace(duty)) {
			return true
		}
	}
	return false
}

// Profile holds optional personal details collected after registration.
type Profile struct {
	Gender           string     `bson:"gender,omitempty" json:"gender,omitempty"`
	DOB              *time.Time `bson:"dob,omitempty" json:"dob,omitempty"`
	Address          string     `bson:"address,omitempty" json:"address,omitempty"`
	Occupation       string     `bson:"occupation,omitempty" json:"occupation,omitempty"`
	EmploymentStatus string     `bson:"employment_status,omitempty" json:"employment_status,omitempty"`
	MaritalStatus    string     `bson:"marital_status,omitempty" json:"marital_status,omitempty"`
	Education        string     `bson:"education,omitempty" json:"education,omitempty"`
	Avatar           string     `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// User is a church member, leader or administrator.
//
// NOTE:
//   - Roles are not stored on the user document. Use the memberships
//     collection; users.Fetcher populates Roles when loading a user.
type User struct {
	ID                    primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title                 string               `bson:"title,omitempty" json:"title,omitempty"`
	FirstName             string               `bson:"first_name" json:"first_name"`
	MiddleName            string               `bson:"middle_name,omitempty" json:"middle_name,omitempty"`
	Surname               string               `bson:"surname" json:"surname"`
	FullNameCI            string               `bson:"full_name_ci" json:"-"`
	Phone                 string               `bson:"phone" json:"phone"`
	Email                 string               `bson:"email,omitempty" json:"email,omitempty"`
	EmailCI               string               `bson:"email_ci,omitempty" json:"-"`
	PasswordHash          string               `bson:"password_hash" json:"-"`
	IsVerified            bool                 `bson:"is_verified" json:"is_verified"`
	RegistrationCompleted bool                 `bson:"registration_completed" json:"registration_completed"`
	Approved              bool                 `bson:"approved" json:"approved"`
	SuperAdminPending     bool                 `bson:"super_admin_pending,omitempty" json:"super_admin_pending,omitempty"`
	ActiveRole            string               `bson:"active_role,omitempty" json:"active_role,omitempty"`
	OrganizationID        *primitive.ObjectID  `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	ChurchID              *primitive.ObjectID  `bson:"church_id,omitempty" json:"church_id,omitempty"`
	ChurchIDs             []primitive.ObjectID `bson:"church_ids,omitempty" json:"church_ids,omitempty"`
	Multi                 bool                 `bson:"multi" json:"multi"`
	Profile               Profile              `bson:"profile" json:"profile"`

	Roles []RoleAssignment `bson:"-" json:"roles"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins the name parts that are present.
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.Surname} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// HasRole reports whether any entry carries the role name.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// RolesNamed returns the entries with the given role name in insertion order.
func (u *User) RolesNamed(role string) []RoleAssignment {
	var out []RoleAssignment
	for _, r := range u.Roles {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out
}

func (u *User) IsSuperAdmin() bool { return u.HasRole(RoleSuperAdmin) }

// IsMultiSuperAdmin reports a SuperAdmin with cross-church capability.
func (u *User) IsMultiSuperAdmin() bool { return u.Multi && u.IsSuperAdmin() }

// LedUnitIDs lists the units where the user holds UnitLeader.
func (u *User) LedUnitIDs() []primitive.ObjectID {
	return u.unitIDs(RoleUnitLeader)
}

// UnitIDs lists every unit the user holds any role in, deduplicated.
func (u *User) UnitIDs() []primitive.ObjectID {
	return u.unitIDs("")
}

func (u *User) unitIDs(role string) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var out []primitive.ObjectID
	for _, r := range u.Roles {
		if r.UnitID == nil || (role != "" && r.Role != role) {
			continue
		}
		if !seen[*r.UnitID] {
			seen[*r.UnitID] = true
			out = append(out, *r.UnitID)
		}
	}
	return out
}

// VisibleChurchIDs returns the churches u belongs to through any role, or
// nil for multi SuperAdmins, who see all of them.
func (u *User) VisibleChurchIDs() []primitive.ObjectID {
	if u.IsMultiSuperAdmin() {
		return nil
	}
	ids := []primitive.ObjectID{}
	add := func(id *primitive.ObjectID) {
		if id != nil && !slices.Contains(ids, *id) {
			ids = append(ids, *id)
		}
	}
	add(u.ChurchID)
	for i := range u.ChurchIDs {
		add(&u.ChurchIDs[i])
	}
	for _, r := range u.Roles {
		add(r.ChurchID)
		add(r.UnitChurchID)
	}
	return ids
}

// LeadsUnit reports whether the user is UnitLeader of unit.
func (u *User) LeadsUnit(unit primitive.ObjectID) bool {
	for _, r := range u.Roles {
		if r.Role == RoleUnitLeader && r.InUnit(unit) {
			return true
		}
	}
	return false
}

// HoldsRoleInUnit reports whether any entry is scoped to unit.
func (u *User) HoldsRoleInUnit(unit primitive.ObjectID) bool {
	for _, r := range u.Roles {
		if r.InUnit(unit) {
			return true
		}
	}
	return false
}

// HasDuty reports whether an entry for unit carries duty.
func (u *User) HasDuty(unit primitive.ObjectID, duty string) bool {
	for _, r := range u.Roles {
		if r.InUnit(unit) && r.HasDuty(duty) {
			return true
		}
	}
	return false
}

// EffectiveRole is ActiveRole when the user still holds it, otherwise the
// first held role, otherwise empty.
func (u *User) EffectiveRole() string {
	if u.ActiveRole != "" && u.HasRole(u.ActiveRole) {
		return u.ActiveRole
	}
	if len(u.Roles) > 0 {
		return u.Roles[0].Role
	}
	return ""
}
