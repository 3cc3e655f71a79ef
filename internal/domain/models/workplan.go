// internal/domain/models/workplan.go
package models

import (
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkPlan statuses.
const (
	PlanDraft     = "draft"
	PlanPending   = "pending"
	PlanApproved  = "approved"
	PlanRejected  = "rejected"
	PlanIgnored   = "ignored"
	PlanCompleted = "completed"
)

// Activity statuses, derived from progress.
const (
	ActivityNotStarted = "not_started"
	ActivityInProgress = "in_progress"
	ActivityCompleted  = "completed"
)

// AutoRejectReason is recorded when a plan passes its end date unapproved.
const AutoRejectReason = "Automatically rejected after end date without approval"

var (
	ErrPlanNotEditable   = errors.New("Only draft, pending, rejected or ignored plans can be edited")
	ErrPlanNotSubmitable = errors.New("Only draft, pending or rejected plans can be submitted")
	ErrPlanNotReviewable = errors.New("Only pending plans can be approved or rejected")
	ErrPlanNotDeletable  = errors.New("Approved or completed plans cannot be deleted")
	ErrPlanCompleted     = errors.New("Completed plans cannot be changed")
	ErrActivityNotFound  = errors.New("Activity not found")
	ErrBadProgress       = errors.New("progress must be between 0 and 100")
	ErrBadSuccessRate    = errors.New("success rate must be between 0 and 100")
)

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type HistoryEntry struct {
	Action string              `bson:"action" json:"action"`
	UserID *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	At     time.Time           `bson:"at" json:"at"`
	Meta   map[string]string   `bson:"meta,omitempty" json:"meta,omitempty"`
}

type Activity struct {
	ID                    primitive.ObjectID `bson:"_id" json:"id"`
	Title                 string             `bson:"title" json:"title"`
	Description           string             `bson:"description,omitempty" json:"description,omitempty"`
	StartDate             *time.Time         `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate               *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Resources             []string           `bson:"resources,omitempty" json:"resources,omitempty"`
	EstimatedHours        float64            `bson:"estimated_hours,omitempty" json:"estimated_hours,omitempty"`
	Weight                *float64           `bson:"weight,omitempty" json:"weight,omitempty"`
	ProgressPercent       float64            `bson:"progress_percent" json:"progress_percent"`
	Status                string             `bson:"status" json:"status"`
	Comments              []Comment          `bson:"comments,omitempty" json:"comments,omitempty"`
	Attachments           []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CompletionSummary     string             `bson:"completion_summary,omitempty" json:"completion_summary,omitempty"`
	DateOfCompletion      *time.Time         `bson:"date_of_completion,omitempty" json:"date_of_completion,omitempty"`
	ReviewStatus          string             `bson:"review_status,omitempty" json:"review_status,omitempty"`
	ReviewRating          *int               `bson:"review_rating,omitempty" json:"review_rating,omitempty"`
	ReviewRejectionReason string             `bson:"review_rejection_reason,omitempty" json:"review_rejection_reason,omitempty"`
	ReviewComments        []Comment          `bson:"review_comments,omitempty" json:"review_comments,omitempty"`
}

type Plan struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Weight          *float64           `bson:"weight,omitempty" json:"weight,omitempty"`
	ProgressPercent float64            `bson:"progress_percent" json:"progress_percent"`
	Activities      []Activity         `bson:"activities" json:"activities"`
}

// WorkPlan is owned by a user and scoped to a unit.
type WorkPlan struct {
	ID              primitive.ObjectID  `bson:"_id" json:"id"`
	Title           string              `bson:"title" json:"title"`
	OwnerID         primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	UnitID          primitive.ObjectID  `bson:"unit_id" json:"unit_id"`
	StartDate       time.Time           `bson:"start_date" json:"start_date"`
	EndDate         time.Time           `bson:"end_date" json:"end_date"`
	GeneralGoal     string              `bson:"general_goal,omitempty" json:"general_goal,omitempty"`
	Status          string              `bson:"status" json:"status"`
	SubmittedAt     *time.Time          `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	SubmittedBy     *primitive.ObjectID `bson:"submitted_by,omitempty" json:"submitted_by,omitempty"`
	ApprovedAt      *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	ApprovedBy      *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	Plans           []Plan              `bson:"plans" json:"plans"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Attachments     []Attachment        `bson:"attachments,omitempty" json:"attachments,omitempty"`
	VersionHistory  []HistoryEntry      `bson:"version_history" json:"version_history"`
	ProgressPercent float64             `bson:"progress_percent" json:"progress_percent"`
	SuccessRate     *float64            `bson:"success_rate,omitempty" json:"success_rate,omitempty"`
	ReviewRating    *int                `bson:"review_rating,omitempty" json:"review_rating,omitempty"`
	ReviewComments  []Comment           `bson:"review_comments,omitempty" json:"review_comments,omitempty"`
	Version         int64               `bson:"version" json:"version"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// CanEdit reports whether field edits are allowed in the current status.
func (w *WorkPlan) CanEdit() bool {
	switch w.Status {
	case PlanDraft, PlanPending, PlanRejected, PlanIgnored:
		return true
	}
	return false
}

func (w *WorkPlan) CanSubmit() bool {
	switch w.Status {
	case PlanDraft, PlanPending, PlanRejected:
		return true
	}
	return false
}

func (w *WorkPlan) CanDelete() bool {
	return w.Status != PlanApproved && w.Status != PlanCompleted
}

// Record appends a version history entry.
func (w *WorkPlan) Record(action string, by *primitive.ObjectID, now time.Time, meta map[string]string) {
	w.VersionHistory = append(w.VersionHistory, HistoryEntry{Action: action, UserID: by, At: now, Meta: meta})
}

// Submit moves the plan to pending.
func (w *WorkPlan) Submit(by primitive.ObjectID, now time.Time) error {
	if !w.CanSubmit() {
		return ErrPlanNotSubmitable
	}
	w.Status = PlanPending
	w.SubmittedAt = &now
	w.SubmittedBy = &by
	w.RejectionReason = ""
	w.Record("submitted", &by, now, nil)
	return nil
}

// Approve moves a pending plan to approved. A rating, when given, is kept.
func (w *WorkPlan) Approve(by primitive.ObjectID, rating *int, now time.Time) error {
	if w.Status != PlanPending {
		return ErrPlanNotReviewable
	}
	if !validRating(rating) {
		return ErrBadRating
	}
	w.Status = PlanApproved
	w.ApprovedAt = &now
	w.ApprovedBy = &by
	w.RejectionReason = ""
	if rating != nil {
		w.ReviewRating = rating
	}
	w.Record("approved", &by, now, nil)
	return nil
}

// Reject moves a pending plan to rejected.
func (w *WorkPlan) Reject(by primitive.ObjectID, reason string, rating *int, now time.Time) error {
	if w.Status != PlanPending {
		return ErrPlanNotReviewable
	}
	if !validRating(rating) {
		return ErrBadRating
	}
	w.Status = PlanRejected
	w.RejectionReason = reason
	if rating != nil {
		w.ReviewRating = rating
	}
	w.Record("rejected", &by, now, map[string]string{"reason": reason})
	return nil
}

// SetSuccessRate finalizes the plan as completed regardless of prior status.
func (w *WorkPlan) SetSuccessRate(rate float64, by primitive.ObjectID, now time.Time) error {
	if rate < 0 || rate > 100 || math.IsNaN(rate) {
		return ErrBadSuccessRate
	}
	w.SuccessRate = &rate
	w.Status = PlanCompleted
	w.Record("success_rate", &by, now, nil)
	return nil
}

// ApplyAutoStatus applies the end-date rule and reports whether the plan
// changed. Plans with a success rate are final and left alone.
func (w *WorkPlan) ApplyAutoStatus(now time.Time) bool {
	if w.SuccessRate != nil || w.EndDate.IsZero() || !w.EndDate.Before(now) {
		return false
	}
	switch w.Status {
	case PlanPending:
		w.Status = PlanIgnored
		w.Record("auto_ignored", nil, now, nil)
		return true
	case PlanApproved, PlanRejected, PlanIgnored, PlanCompleted:
		return false
	default:
		w.Status = PlanRejected
		if w.RejectionReason == "" {
			w.RejectionReason = AutoRejectReason
		}
		w.Record("auto_rejected", nil, now, map[string]string{"reason": "end date passed"})
		return true
	}
}

// FindActivity returns a pointer into the plan tree, or nil.
func (w *WorkPlan) FindActivity(id primitive.ObjectID) *Activity {
	for i := range w.Plans {
		for j := range w.Plans[i].Activities {
			if w.Plans[i].Activities[j].ID == id {
				return &w.Plans[i].Activities[j]
			}
		}
	}
	return nil
}

// SetActivityProgress records progress, derives the activity status and
// recomputes the cached aggregate.
func (w *WorkPlan) SetActivityProgress(id primitive.ObjectID, pct float64, summary string, now time.Time) error {
	if w.Status == PlanCompleted {
		return ErrPlanCompleted
	}
	if pct < 0 || pct > 100 || math.IsNaN(pct) {
		return ErrBadProgress
	}
	a := w.FindActivity(id)
	if a == nil {
		return ErrActivityNotFound
	}
	a.ProgressPercent = pct
	switch {
	case pct >= 100:
		a.Status = ActivityCompleted
		if a.DateOfCompletion == nil {
			a.DateOfCompletion = &now
		}
	case pct > 0:
		a.Status = ActivityInProgress
		a.DateOfCompletion = nil
	default:
		a.Status = ActivityNotStarted
		a.DateOfCompletion = nil
	}
	if summary != "" {
		a.CompletionSummary = summary
	}
	w.RecalculateProgress()
	return nil
}

// Normalize assigns ids and default statuses to a freshly decoded plan tree.
func (w *WorkPlan) Normalize() {
	for i := range w.Plans {
		if w.Plans[i].ID.IsZero() {
			w.Plans[i].ID = primitive.NewObjectID()
		}
		for j := range w.Plans[i].Activities {
			a := &w.Plans[i].Activities[j]
			if a.ID.IsZero() {
				a.ID = primitive.NewObjectID()
			}
			a.ProgressPercent = clampPercent(a.ProgressPercent)
			if a.Status == "" {
				a.Status = ActivityNotStarted
			}
		}
	}
	w.RecalculateProgress()
}

// RecalculateProgress refreshes each plan's progress and the overall cached
// value. Calling it again without a mutation yields the same result.
func (w *WorkPlan) RecalculateProgress() float64 {
	var values, weights []float64
	explicit := false
	for i := range w.Plans {
		if w.Plans[i].Weight != nil && *w.Plans[i].Weight > 0 {
			explicit = true
		}
	}
	for i := range w.Plans {
		p := &w.Plans[i]
		if len(p.Activities) == 0 {
			p.ProgressPercent = 0
			continue
		}
		raw := planProgress(p.Activities)
		p.ProgressPercent = math.Round(raw)
		values = append(values, raw)
		switch {
		case !explicit:
			weights = append(weights, 1)
		case p.Weight != nil && *p.Weight > 0:
			weights = append(weights, *p.Weight)
		default:
			weights = append(weights, 0)
		}
	}
	w.ProgressPercent = math.Round(weightedMean(values, weights))
	return w.ProgressPercent
}

func planProgress(acts []Activity) float64 {
	hasWeight, hasHours := false, false
	for _, a := range acts {
		if a.Weight != nil && *a.Weight > 0 {
			hasWeight = true
		}
		if a.EstimatedHours > 0 {
			hasHours = true
		}
	}
	values := make([]float64, len(acts))
	weights := make([]float64, len(acts))
	for i, a := range acts {
		values[i] = a.ProgressPercent
		switch {
		case hasWeight:
			if a.Weight != nil && *a.Weight > 0 {
				weights[i] = *a.Weight
			}
		case hasHours:
			if a.EstimatedHours > 0 {
				weights[i] = a.EstimatedHours
			}
		default:
			weights[i] = 1
		}
	}
	return weightedMean(values, weights)
}

// weightedMean falls back to equal weighting when the weights sum to zero.
func weightedMean(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total, sum float64
	for i, v := range values {
		total += clampPercent(v) * weights[i]
		sum += weights[i]
	}
	if sum <= 0 {
		total = 0
		for _, v := range values {
			total += clampPercent(v)
		}
		return total / float64(len(values))
	}
	return total / sum
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Review statuses for a single activity.
const (
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

var (
	ErrEmptyComment = errors.New("comment text required")
	ErrBadRating    = errors.New("rating must be between 1 and 5")
	ErrBadDecision  = errors.New("status must be approved or rejected")
)

func validRating(r *int) bool { return r == nil || (*r >= 1 && *r <= 5) }

// AddReviewComment appends a plan-level review comment. Status is unchanged.
func (w *WorkPlan) AddReviewComment(by primitive.ObjectID, text string, now time.Time) error {
	if text == "" {
		return ErrEmptyComment
	}
	w.ReviewComments = append(w.ReviewComments, Comment{ID: primitive.NewObjectID(), UserID: by, Text: text, CreatedAt: now})
	w.Record("review_comment", &by, now, nil)
	return nil
}

// ReviewActivity records an approve or reject decision on one activity.
// Status of the plan is unchanged.
func (w *WorkPlan) ReviewActivity(id primitive.ObjectID, decision string, rating *int, comment, reason string, by primitive.ObjectID, now time.Time) error {
	if decision != ReviewApproved && decision != ReviewRejected {
		return ErrBadDecision
	}
	if !validRating(rating) {
		return ErrBadRating
	}
	a := w.FindActivity(id)
	if a == nil {
		return ErrActivityNotFound
	}
	a.ReviewStatus = decision
	a.ReviewRating = rating
	if decision == ReviewRejected {
		a.ReviewRejectionReason = reason
	} else {
		a.ReviewRejectionReason = ""
	}
	if comment != "" {
		a.ReviewComments = append(a.ReviewComments, Comment{ID: primitive.NewObjectID(), UserID: by, Text: comment, CreatedAt: now})
	}
	w.Record("activity_review", &by, now, map[string]string{"activity_id": id.Hex(), "status": decision})
	return nil
}

// AddActivityComment appends a working comment to one activity.
func (w *WorkPlan) AddActivityComment(id, by primitive.ObjectID, text string, now time.Time) error {
	if text == "" {
		return ErrEmptyComment
	}
	if w.Status == PlanCompleted {
		return ErrPlanCompleted
	}
	a := w.FindActivity(id)
	if a == nil {
		return ErrActivityNotFound
	}
	a.Comments = append(a.Comments, Comment{ID: primitive.NewObjectID(), UserID: by, Text: text, CreatedAt: now})
	return nil
}

// AddActivityReviewComment appends to one activity's review thread.
func (w *WorkPlan) AddActivityReviewComment(id, by primitive.ObjectID, text string, now time.Time) error {
	if text == "" {
		return ErrEmptyComment
	}
	a := w.FindActivity(id)
	if a == nil {
		return ErrActivityNotFound
	}
	a.ReviewComments = append(a.ReviewComments, Comment{ID: primitive.NewObjectID(), UserID: by, Text: text, CreatedAt: now})
	w.Record("activity_comment", &by, now, map[string]string{"activity_id": id.Hex()})
	return nil
}
