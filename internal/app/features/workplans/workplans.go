package workplans

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/policy/recordpolicy"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	workplanstore "github.com/dalemusser/churchhub/internal/app/store/workplans"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var planFields = recordpolicy.Fields{Unit: "unit_id", Owner: "owner_id"}

var statuses = map[string]bool{
	models.PlanDraft:     true,
	models.PlanPending:   true,
	models.PlanApproved:  true,
	models.PlanRejected:  true,
	models.PlanIgnored:   true,
	models.PlanCompleted: true,
}

// planErr maps model and store errors onto API errors.
func planErr(err error) error {
	switch {
	case errors.Is(err, workplanstore.ErrNotFound), errors.Is(err, models.ErrActivityNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, models.ErrPlanNotEditable),
		errors.Is(err, models.ErrPlanNotSubmitable),
		errors.Is(err, models.ErrPlanNotReviewable),
		errors.Is(err, models.ErrPlanNotDeletable),
		errors.Is(err, models.ErrPlanCompleted),
		errors.Is(err, workplanstore.ErrStale):
		return apierr.Conflict(err.Error())
	case errors.Is(err, models.ErrBadProgress),
		errors.Is(err, models.ErrBadSuccessRate),
		errors.Is(err, models.ErrEmptyComment),
		errors.Is(err, models.ErrBadRating),
		errors.Is(err, models.ErrBadDecision),
		workplanstore.IsValidation(err):
		return apierr.Validation(err.Error())
	}
	return err
}

func (h *Handler) unitRef(ctx context.Context, plan *models.WorkPlan) (*authz.UnitRef, error) {
	return shared.StoredUnitRef(ctx, h.Units, plan.UnitID)
}

// refresh applies the end-date rule to a loaded plan and persists a change.
func (h *Handler) refresh(ctx context.Context, plan *models.WorkPlan, now time.Time) {
	if !plan.ApplyAutoStatus(now) {
		return
	}
	if err := h.Plans.Save(ctx, plan); err != nil {
		h.Log.Warn("work plan auto status", zap.String("id", plan.ID.Hex()), zap.Error(err))
	}
}

// load fetches the plan named by {id} with its unit and the current caller.
func (h *Handler) load(ctx context.Context, r *http.Request) (*models.User, *models.WorkPlan, *authz.UnitRef, error) {
	u, _, err := authz.Caller(r)
	if err != nil {
		return nil, nil, nil, err
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, nil, nil, err
	}
	plan, err := h.Plans.Get(ctx, id)
	if err != nil {
		return nil, nil, nil, planErr(err)
	}
	ref, err := h.unitRef(ctx, plan)
	if err != nil {
		return nil, nil, nil, err
	}
	h.refresh(ctx, plan, time.Now().UTC())
	return u, plan, ref, nil
}

// canWork gates the owner side: edit, submit, progress and delete.
func canWork(u *models.User, plan *models.WorkPlan, ref *authz.UnitRef) error {
	if plan.OwnerID == u.ID || u.LeadsUnit(ref.ID) {
		return nil
	}
	if ok, _ := authz.SuperAdminInScope(u, ref.ChurchID); ok {
		return nil
	}
	return apierr.Forbidden("Only the owner, the unit leader or a SuperAdmin can change this work plan")
}

// canReview gates approve, reject, rating and review comments.
func canReview(u *models.User, ref *authz.UnitRef) error {
	ok, reason := authz.SuperAdminInScope(u, ref.ChurchID)
	if ok {
		return nil
	}
	if reason == authz.ReasonOutOfChurch {
		return apierr.Forbidden(reason)
	}
	return apierr.Forbidden("Only a SuperAdmin can review work plans")
}

func canRead(u *models.User, plan *models.WorkPlan, ref *authz.UnitRef) error {
	if canWork(u, plan, ref) == nil {
		return nil
	}
	return authz.Require(u, authz.ActionRead, authz.Resource{Unit: ref, AddedBy: &plan.OwnerID, ExplicitUnit: true})
}

// ServeList lists plans: GET ?scope=&unitId=&status=&q=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list work plans")
	defer cancel()
	_, ls, _, err := shared.ScopedList(ctx, r, h.Units)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !statuses[status] {
		respond.Error(w, h.Log, apierr.Validation("unknown status"))
		return
	}
	q, err := recordpolicy.Filter(ctx, h.Units.Store(), ls, planFields)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if s := strings.TrimSpace(r.URL.Query().Get("q")); s != "" {
		q = bson.M{"$and": bson.A{q, bson.M{"title": bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}}}}
	}
	p := paging.Parse(r)
	items, total, err := h.Plans.List(ctx, q, status, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	now := time.Now().UTC()
	for i := range items {
		h.refresh(ctx, &items[i], now)
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get work plan")
	defer cancel()
	u, plan, ref, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := canRead(u, plan, ref); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusOK, plan)
}

type planRequest struct {
	UnitID      string              `json:"unit_id"`
	Title       *string             `json:"title"`
	StartDate   *string             `json:"start_date"`
	EndDate     *string             `json:"end_date"`
	GeneralGoal *string             `json:"general_goal"`
	Notes       *string             `json:"notes"`
	Plans       []models.Plan       `json:"plans"`
	Attachments []models.Attachment `json:"attachments"`
}

// HandleCreate starts a draft plan owned by the caller in the target unit.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in planRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create work plan")
	defer cancel()
	unit, ref, err := shared.TargetUnit(ctx, h.Units, in.UnitID, resolved.UnitID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := authz.Require(u, authz.ActionCreate, authz.Resource{Unit: ref}); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	plan := models.WorkPlan{OwnerID: u.ID, UnitID: unit.ID, Plans: in.Plans, Attachments: in.Attachments}
	if err := in.apply(&plan); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if plan.StartDate.IsZero() {
		plan.StartDate = time.Now().UTC()
	}
	if plan.Plans == nil {
		plan.Plans = []models.Plan{}
	}
	created, err := h.Plans.Create(ctx, plan)
	if err != nil {
		respond.Error(w, h.Log, planErr(err))
		return
	}
	respond.Item(w, http.StatusCreated, created)
}

// apply copies the descriptive fields present in the request.
func (in *planRequest) apply(plan *models.WorkPlan) error {
	if in.Title != nil {
		plan.Title = strings.TrimSpace(*in.Title)
	}
	if in.GeneralGoal != nil {
		plan.GeneralGoal = strings.TrimSpace(*in.GeneralGoal)
	}
	if in.Notes != nil {
		plan.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.StartDate != nil {
		t, err := shared.ParseTime(*in.StartDate)
		if err != nil {
			return err
		}
		plan.StartDate = t
	}
	if in.EndDate != nil {
		t, err := shared.ParseTime(*in.EndDate)
		if err != nil {
			return err
		}
		plan.EndDate = t
	}
	return nil
}

// HandleUpdate edits a plan in an editable status. Supplying plans
// replaces the whole tree; ids already present are kept.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in planRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update work plan")
	defer cancel()
	u, plan, ref, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := canWork(u, plan, ref); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !plan.CanEdit() {
		respond.Error(w, h.Log, planErr(models.ErrPlanNotEditable))
		return
	}
	if err := in.apply(plan); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if plan.Title == "" {
		respond.Error(w, h.Log, apierr.Validation("title required"))
		return
	}
	if !plan.EndDate.IsZero() && plan.EndDate.Before(plan.StartDate) {
		respond.Error(w, h.Log, planErr(workplanstore.ErrBadDates))
		return
	}
	if in.Plans != nil {
		plan.Plans = in.Plans
	}
	if in.Attachments != nil {
		plan.Attachments = in.Attachments
	}
	plan.Normalize()
	plan.Record("updated", &u.ID, time.Now().UTC(), nil)
	if err := h.Plans.Save(ctx, plan); err != nil {
		respond.Error(w, h.Log, planErr(err))
		return
	}
	respond.Item(w, http.StatusOK, plan)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "submit work plan", canWork, nil, func(u *models.User, plan *models.WorkPlan, now time.Time) error {
		return plan.Submit(u.ID, now)
	})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete work plan")
	defer cancel()
	u, plan, ref, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := canWork(u, plan, ref); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !plan.CanDelete() {
		respond.Error(w, h.Log, planErr(models.ErrPlanNotDeletable))
		return
	}
	if err := h.Plans.Delete(ctx, plan.ID); err != nil {
		respond.Error(w, h.Log, planErr(err))
		return
	}
	respond.OK(w)
}

type gate func(u *models.User, plan *models.WorkPlan, ref *authz.UnitRef) error

func reviewGate(u *models.User, _ *models.WorkPlan, ref *authz.UnitRef) error {
	return canReview(u, ref)
}

// mutate loads the plan, applies the gate and change, saves, and returns
// the updated plan. Review changes pass audit details to be recorded.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, allow gate, details map[string]string, change func(*models.User, *models.WorkPlan, time.Time) error) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()
	u, plan, ref, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := allow(u, plan, ref); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := change(u, plan, time.Now().UTC()); err != nil {
		respond.Error(w, h.Log, planErr(err))
		return
	}
	if err := h.Plans.Save(ctx, plan); err != nil {
		respond.Error(w, h.Log, planErr(err))
		return
	}
	if details != nil {
		details["plan_id"] = plan.ID.Hex()
		h.Audit.Admin(ctx, r, audit.EventWorkPlanReviewed, u.ID, &plan.OwnerID, ref.ChurchID, details)
	}
	respond.Item(w, http.StatusOK, plan)
}
