// internal/domain/models/comms.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is church-wide when UnitID is nil.
type Event struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Venue       string              `bson:"venue,omitempty" json:"venue,omitempty"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Date        time.Time           `bson:"date" json:"date"`
	EventType   string              `bson:"event_type,omitempty" json:"event_type,omitempty"`
	Reminder    bool                `bson:"reminder" json:"reminder"`
	ChurchID    *primitive.ObjectID `bson:"church_id,omitempty" json:"church_id,omitempty"`
	UnitID      *primitive.ObjectID `bson:"unit_id,omitempty" json:"unit_id,omitempty"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

type Announcement struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	Title     string              `bson:"title" json:"title"`
	Body      string              `bson:"body" json:"body"` // sanitized HTML
	AuthorID  primitive.ObjectID  `bson:"author_id" json:"author_id"`
	Pinned    bool                `bson:"pinned" json:"pinned"`
	ChurchID  *primitive.ObjectID `bson:"church_id,omitempty" json:"church_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// Attachment types.
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
	AttachmentOther = "other"
)

type Attachment struct {
	URL  string `bson:"url" json:"url"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
	Type string `bson:"type" json:"type"`
	Size int64  `bson:"size,omitempty" json:"size,omitempty"`
}

// Message is either direct (To set) or addressed to a unit (ToUnit set).
// Per-user state is kept in the read/archived/deleted id lists.
type Message struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	From        primitive.ObjectID   `bson:"from" json:"from"`
	To          *primitive.ObjectID  `bson:"to,omitempty" json:"to,omitempty"`
	ToUnit      *primitive.ObjectID  `bson:"to_unit,omitempty" json:"to_unit,omitempty"`
	Subject     string               `bson:"subject,omitempty" json:"subject,omitempty"`
	Text        string               `bson:"text" json:"text"`
	Attachments []Attachment         `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Delivered   bool                 `bson:"delivered" json:"delivered"`
	ReadBy      []primitive.ObjectID `bson:"read_by" json:"read_by"`
	ArchivedFor []primitive.ObjectID `bson:"archived_for" json:"-"`
	DeletedFor  []primitive.ObjectID `bson:"deleted_for" json:"-"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
}

// DeviceToken is a push registration. Tokens are unique; the owning user may
// change when a device signs in with a different account.
type DeviceToken struct {
	ID        primitive.ObjectID  `bson:"_id" json:"id"`
	Token     string              `bson:"token" json:"token"`
	UserID    *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Platform  string              `bson:"platform,omitempty" json:"platform,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// Legal page types.
const (
	LegalTerms   = "terms"
	LegalPrivacy = "privacy"
)

type LegalSection struct {
	Heading string `bson:"heading" json:"heading"`
	Body    string `bson:"body" json:"body"`
}

type LegalPage struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Type        string             `bson:"type" json:"type"`
	Title       string             `bson:"title" json:"title"`
	Sections    []LegalSection     `bson:"sections" json:"sections"`
	LastUpdated time.Time          `bson:"last_updated" json:"last_updated"`
}

// Support ticket categories and statuses.
var (
	SupportCategories = []string{"Login Issues", "Performance", "Bug Report", "Feature Request", "Data Issue", "Other"}
	SupportStatuses   = []string{"open", "in_progress", "resolved", "closed"}
)

type SupportTicket struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	Email         string              `bson:"email" json:"email"`
	Phone         string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Category      string              `bson:"category" json:"category"`
	Description   string              `bson:"description" json:"description"`
	ScreenshotURL string              `bson:"screenshot_url,omitempty" json:"screenshot_url,omitempty"`
	Status        string              `bson:"status" json:"status"`
	UserID        *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}
