// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "audit_events"

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventRegistered               = "registered"
	EventPasswordChanged          = "password_changed"
	EventRoleSwitched             = "role_switched"
	EventOTPSent                  = "otp_sent"
	EventOTPFailed                = "otp_failed"
	EventOTPVerified              = "otp_verified"
	EventAdminConsoleLogin        = "admin_console_login"
)

// Admin event types
const (
	EventUserApproved          = "user_approved"
	EventUserRejected          = "user_rejected"
	EventSuperAdminApprove     = "superadmin_approved"
	EventRoleAssigned          = "role_assigned"
	EventRoleRemoved           = "role_removed"
	EventChurchCreated         = "church_created"
	EventChurchUpdated         = "church_updated"
	EventChurchDeleted         = "church_deleted"
	EventMinistryAdded         = "ministry_added"
	EventMinistryRemoved       = "ministry_removed"
	EventUnitCreated           = "unit_created"
	EventUnitUpdated           = "unit_updated"
	EventUnitDeleted           = "unit_deleted"
	EventAccessCodeIssued      = "access_code_issued"
	EventBroadcastSent         = "broadcast_sent"
	EventAnnouncementPublished = "announcement_published"
	EventAnnouncementDeleted   = "announcement_deleted"
	EventLegalPageUpdated      = "legal_page_updated"
	EventWorkPlanReviewed      = "workplan_reviewed"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
	ChurchID  *primitive.ObjectID `bson:"church_id,omitempty" json:"church_id,omitempty"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// UserID is the affected user; ActorID performed the action.
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ChurchID  *primitive.ObjectID
	ChurchIDs []primitive.ObjectID // non-nil restricts to these churches
	UserID    *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
}

func (f QueryFilter) bson() bson.M {
	query := bson.M{}
	if f.ChurchID != nil {
		query["church_id"] = *f.ChurchID
	} else if f.ChurchIDs != nil {
		query["church_id"] = bson.M{"$in": f.ChurchIDs}
	}
	if f.UserID != nil {
		query["user_id"] = *f.UserID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns one page of events, most recent first, with the total.
func (s *Store) Query(ctx context.Context, filter QueryFilter, p paging.Params) ([]Event, int64, error) {
	q := filter.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := p.FindOptions(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// GetFailedLogins retrieves recent failed login attempts.
func (s *Store) GetFailedLogins(ctx context.Context, since time.Time, limit int64) ([]Event, error) {
	query := bson.M{
		"category": CategoryAuth,
		"success":  false,
		"event_type": bson.M{"$in": []string{
			EventLoginFailedUserNotFound,
			EventLoginFailedWrongPassword,
			EventLoginFailedRateLimit,
		}},
		"timestamp": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
