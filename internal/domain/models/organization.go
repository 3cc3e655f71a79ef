// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization is the top of the hierarchy. Churches reference it.
type Organization struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"` // ← always stored
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Ministry is embedded in a Church and is only addressable through it.
type Ministry struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Church belongs to an Organization and owns its ministries.
type Church struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"`
	Slug           string             `bson:"slug" json:"slug"`
	Address        string             `bson:"address,omitempty" json:"address,omitempty"`
	Ministries     []Ministry         `bson:"ministries" json:"ministries"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// FindMinistry returns the ministry whose folded name equals nameCI.
func (c *Church) FindMinistry(nameCI string) (Ministry, bool) {
	for _, m := range c.Ministries {
		if m.NameCI == nameCI {
			return m, true
		}
	}
	return Ministry{}, false
}

// Unit is the leaf of the hierarchy and the main scoping boundary for records.
// MinistryName is a denormalized label, not a reference.
type Unit struct {
	ID                 primitive.ObjectID  `bson:"_id" json:"id"`
	Name               string              `bson:"name" json:"name"`
	NameCI             string              `bson:"name_ci" json:"-"`
	Description        string              `bson:"description,omitempty" json:"description,omitempty"`
	ChurchID           *primitive.ObjectID `bson:"church_id,omitempty" json:"church_id,omitempty"`
	MinistryName       string              `bson:"ministry_name,omitempty" json:"ministry_name,omitempty"`
	MinistryNameCI     string              `bson:"ministry_name_ci,omitempty" json:"-"`
	AttendanceTaking   bool                `bson:"attendance_taking" json:"attendance_taking"`
	MusicUnit          bool                `bson:"music_unit" json:"music_unit"`
	EnabledReportCards []string            `bson:"enabled_report_cards" json:"enabled_report_cards"`
	CreatedBy          *primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updated_at"`
}

// Membership is the single relation between users and their roles. A unit's
// members and a user's units are both derived from this collection.
type Membership struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Role           string              `bson:"role" json:"role"`
	UnitID         *primitive.ObjectID `bson:"unit_id,omitempty" json:"unit_id,omitempty"`
	ChurchID       *primitive.ObjectID `bson:"church_id,omitempty" json:"church_id,omitempty"`
	MinistryName   string              `bson:"ministry_name,omitempty" json:"ministry_name,omitempty"`
	MinistryNameCI string              `bson:"ministry_name_ci,omitempty" json:"-"`
	Duties         []string            `bson:"duties" json:"duties"`
	Key            string              `bson:"key" json:"-"` // role|unit|church|ministry_ci, unique per user
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

// Assignment converts a stored membership into a role entry.
func (m Membership) Assignment() RoleAssignment {
	return RoleAssignment{
		MembershipID: m.ID,
		Role:         m.Role,
		UnitID:       m.UnitID,
		ChurchID:     m.ChurchID,
		MinistryName: m.MinistryName,
		Duties:       m.Duties,
	}
}

// AccessCode grants an initial role at self-registration. Single use.
type AccessCode struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	Code      string              `bson:"code" json:"code"`
	Role      string              `bson:"role" json:"role"`
	UnitID    *primitive.ObjectID `bson:"unit_id,omitempty" json:"unit_id,omitempty"`
	CreatedBy primitive.ObjectID  `bson:"created_by" json:"created_by"`
	ExpiresAt time.Time           `bson:"expires_at" json:"expires_at"`
	Used      bool                `bson:"used" json:"used"`
	UsedBy    *primitive.ObjectID `bson:"used_by,omitempty" json:"used_by,omitempty"`
	UsedAt    *time.Time          `bson:"used_at,omitempty" json:"used_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
