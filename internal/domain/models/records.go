// internal/domain/models/records.go
package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordMeta is the scope and ownership block shared by unit-scoped records.
// Update and delete decisions are made against these stored values.
type RecordMeta struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UnitID    primitive.ObjectID `bson:"unit_id" json:"unit_id"`
	AddedBy   primitive.ObjectID `bson:"added_by" json:"added_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Meta exposes the embedded block to generic stores.
func (m *RecordMeta) Meta() *RecordMeta { return m }

func required(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return errors.New(fields[i] + " required")
		}
	}
	return nil
}

// Soul is a person won or followed up by a unit.
type Soul struct {
	RecordMeta `bson:",inline"`
	Name       string    `bson:"name" json:"name"`
	Phone      string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string    `bson:"address,omitempty" json:"address,omitempty"`
	DateWon    time.Time `bson:"date_won" json:"date_won"`
}

func (s *Soul) Validate() error { return required("name", s.Name) }

// Invite records someone invited to church.
type Invite struct {
	RecordMeta `bson:",inline"`
	Name       string    `bson:"name" json:"name"`
	Phone      string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender     string    `bson:"gender,omitempty" json:"gender,omitempty"`
	AgeRange   string    `bson:"age_range,omitempty" json:"age_range,omitempty"`
	Method     string    `bson:"method,omitempty" json:"method,omitempty"`
	Note       string    `bson:"note,omitempty" json:"note,omitempty"`
	InvitedAt  time.Time `bson:"invited_at" json:"invited_at"`
}

func (i *Invite) Validate() error { return required("name", i.Name) }

type Achievement struct {
	RecordMeta  `bson:",inline"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Date        time.Time `bson:"date" json:"date"`
}

func (a *Achievement) Validate() error { return required("title", a.Title) }

// Assist records welfare assistance given to a member.
type Assist struct {
	RecordMeta `bson:",inline"`
	MemberID   *primitive.ObjectID `bson:"member_id,omitempty" json:"member_id,omitempty"`
	MemberName string              `bson:"member_name" json:"member_name"`
	Phone      string              `bson:"phone,omitempty" json:"phone,omitempty"`
	AssistedOn time.Time           `bson:"assisted_on" json:"assisted_on"`
	Reason     string              `bson:"reason" json:"reason"`
	HowHelped  string              `bson:"how_helped,omitempty" json:"how_helped,omitempty"`
}

func (a *Assist) Validate() error { return required("member_name", a.MemberName, "reason", a.Reason) }

type Marriage struct {
	RecordMeta `bson:",inline"`
	Name       string    `bson:"name" json:"name"`
	Date       time.Time `bson:"date" json:"date"`
	Note       string    `bson:"note,omitempty" json:"note,omitempty"`
}

func (m *Marriage) Validate() error { return required("name", m.Name) }

type RecoveredAddict struct {
	RecordMeta     `bson:",inline"`
	FullName       string    `bson:"full_name" json:"full_name"`
	Gender         string    `bson:"gender" json:"gender"` // Male | Female
	Age            int       `bson:"age,omitempty" json:"age,omitempty"`
	MaritalStatus  string    `bson:"marital_status,omitempty" json:"marital_status,omitempty"`
	AddictionType  string    `bson:"addiction_type" json:"addiction_type"`
	DateOfRecovery time.Time `bson:"date_of_recovery" json:"date_of_recovery"`
	Phone          string    `bson:"phone,omitempty" json:"phone,omitempty"`
}

func (r *RecoveredAddict) Validate() error {
	if err := required("full_name", r.FullName, "addiction_type", r.AddictionType); err != nil {
		return err
	}
	if r.Gender != "Male" && r.Gender != "Female" {
		return errors.New("gender must be Male or Female")
	}
	if r.Age < 0 {
		return errors.New("age must not be negative")
	}
	return nil
}

// Song belongs to a music unit.
type Song struct {
	RecordMeta  `bson:",inline"`
	Title       string    `bson:"title" json:"title"`
	Composer    string    `bson:"composer,omitempty" json:"composer,omitempty"`
	VocalLeads  []string  `bson:"vocal_leads,omitempty" json:"vocal_leads,omitempty"`
	Link        string    `bson:"link,omitempty" json:"link,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	ReleaseDate time.Time `bson:"release_date" json:"release_date"`
}

func (s *Song) Validate() error { return required("title", s.Title) }

// Testimony is shared by any member and shown once approved by a SuperAdmin.
type Testimony struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body" json:"body"`
	Approved  bool               `bson:"approved" json:"approved"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// DefaultDate fills the record's domain date when the caller left it out.
func (s *Soul) DefaultDate(now time.Time) {
	if s.DateWon.IsZero() {
		s.DateWon = now
	}
}

// DomainDate returns the date year filters and list order use.
func (s *Soul) DomainDate() time.Time { return s.DateWon }

func (i *Invite) DefaultDate(now time.Time) {
	if i.InvitedAt.IsZero() {
		i.InvitedAt = now
	}
}

func (i *Invite) DomainDate() time.Time { return i.InvitedAt }

func (a *Achievement) DefaultDate(now time.Time) {
	if a.Date.IsZero() {
		a.Date = now
	}
}

func (a *Achievement) DomainDate() time.Time { return a.Date }

func (a *Assist) DefaultDate(now time.Time) {
	if a.AssistedOn.IsZero() {
		a.AssistedOn = now
	}
}

func (a *Assist) DomainDate() time.Time { return a.AssistedOn }

func (m *Marriage) DefaultDate(now time.Time) {
	if m.Date.IsZero() {
		m.Date = now
	}
}

func (m *Marriage) DomainDate() time.Time { return m.Date }

func (r *RecoveredAddict) DefaultDate(now time.Time) {
	if r.DateOfRecovery.IsZero() {
		r.DateOfRecovery = now
	}
}

func (r *RecoveredAddict) DomainDate() time.Time { return r.DateOfRecovery }

func (s *Song) DefaultDate(now time.Time) {
	if s.ReleaseDate.IsZero() {
		s.ReleaseDate = now
	}
}

func (s *Song) DomainDate() time.Time { return s.ReleaseDate }
