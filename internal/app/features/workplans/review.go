package workplans

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

// defaultRejectReason is stored when a reviewer rejects without a reason.
const defaultRejectReason = "No reason provided"

type reviewRequest struct {
	Rating     *int     `json:"rating"`
	Comment    string   `json:"comment"`
	Reason     string   `json:"reason"`
	ActivityID string   `json:"activity_id"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Rate       *float64 `json:"success_rate"`
}

// decision accepts both "approve" and "approved" spellings.
func (in *reviewRequest) decision() string {
	switch strings.ToLower(strings.TrimSpace(in.Status)) {
	case "approve", models.ReviewApproved:
		return models.ReviewApproved
	case "reject", models.ReviewRejected:
		return models.ReviewRejected
	}
	return in.Status
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*reviewRequest, bool) {
	var in reviewRequest
	if r.ContentLength == 0 {
		return &in, true
	}
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return nil, false
	}
	return &in, true
}

// HandleApprove approves a pending plan, optionally rating it and leaving
// a review comment.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.mutate(w, r, "approve work plan", reviewGate, map[string]string{"action": "approved"}, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		if err := plan.Approve(u.ID, in.Rating, now); err != nil {
			return err
		}
		if c := strings.TrimSpace(in.Comment); c != "" {
			return plan.AddReviewComment(u.ID, c, now)
		}
		return nil
	})
}

// HandleReject rejects a pending plan. The owner may edit and resubmit.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = defaultRejectReason
	}
	h.mutate(w, r, "reject work plan", reviewGate, map[string]string{"action": "rejected", "reason": reason}, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		if err := plan.Reject(u.ID, reason, in.Rating, now); err != nil {
			return err
		}
		if c := strings.TrimSpace(in.Comment); c != "" {
			return plan.AddReviewComment(u.ID, c, now)
		}
		return nil
	})
}

// HandleReviewComment appends a plan-level review comment.
func (h *Handler) HandleReviewComment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	text := strings.TrimSpace(in.Message)
	if text == "" {
		text = strings.TrimSpace(in.Comment)
	}
	h.mutate(w, r, "comment work plan", reviewGate, map[string]string{"action": "comment"}, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		return plan.AddReviewComment(u.ID, text, now)
	})
}

// HandleReviewActivity records an approve or reject decision on one
// activity. The plan status is unchanged.
func (h *Handler) HandleReviewActivity(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	id, err := shared.RequiredID(in.ActivityID, "activity_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	decision := in.decision()
	reason := strings.TrimSpace(in.Reason)
	if decision == models.ReviewRejected && reason == "" {
		reason = defaultRejectReason
	}
	details := map[string]string{"action": "activity_" + decision, "activity_id": id.Hex()}
	h.mutate(w, r, "review activity", reviewGate, details, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		return plan.ReviewActivity(id, decision, in.Rating, strings.TrimSpace(in.Comment), reason, u.ID, now)
	})
}

// HandleActivityReviewComment appends to an activity's review thread.
func (h *Handler) HandleActivityReviewComment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	id, err := shared.RequiredID(in.ActivityID, "activity_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	text := strings.TrimSpace(in.Message)
	if text == "" {
		text = strings.TrimSpace(in.Comment)
	}
	h.mutate(w, r, "comment activity", reviewGate, map[string]string{"action": "activity_comment", "activity_id": id.Hex()}, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		return plan.AddActivityReviewComment(id, u.ID, text, now)
	})
}

// HandleSuccessRate finalizes a plan as completed with a 0-100 rate.
func (h *Handler) HandleSuccessRate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	if in.Rate == nil {
		respond.Error(w, h.Log, planErr(models.ErrBadSuccessRate))
		return
	}
	details := map[string]string{"action": "success_rate", "rate": strconv.FormatFloat(*in.Rate, 'f', -1, 64)}
	h.mutate(w, r, "rate work plan", reviewGate, details, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		return plan.SetSuccessRate(*in.Rate, u.ID, now)
	})
}

type progressRequest struct {
	ActivityID        string   `json:"activity_id"`
	ProgressPercent   *float64 `json:"progress_percent"`
	CompletionSummary string   `json:"completion_summary"`
}

// HandleActivityProgress sets one activity's progress. The activity status
// and the cached plan progress follow from it.
func (h *Handler) HandleActivityProgress(w http.ResponseWriter, r *http.Request) {
	var in progressRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	id, err := shared.RequiredID(in.ActivityID, "activity_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if in.ProgressPercent == nil {
		respond.Error(w, h.Log, planErr(models.ErrBadProgress))
		return
	}
	h.mutate(w, r, "activity progress", canWork, nil, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		if err := plan.SetActivityProgress(id, *in.ProgressPercent, strings.TrimSpace(in.CompletionSummary), now); err != nil {
			return err
		}
		plan.Record("progress_update", &u.ID, now, map[string]string{
			"activity_id": id.Hex(),
			"progress":    strconv.FormatFloat(*in.ProgressPercent, 'f', -1, 64),
		})
		return nil
	})
}

// HandleActivityComment appends a working comment from the owner side.
func (h *Handler) HandleActivityComment(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	id, err := shared.RequiredID(in.ActivityID, "activity_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	text := strings.TrimSpace(in.Message)
	if text == "" {
		text = strings.TrimSpace(in.Comment)
	}
	h.mutate(w, r, "activity comment", canWork, nil, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		return plan.AddActivityComment(id, u.ID, text, now)
	})
}
