package attendance

import (
	"errors"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/policy/recordpolicy"
	attendancestore "github.com/dalemusser/churchhub/internal/app/store/attendance"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

var attendanceFields = recordpolicy.Fields{Unit: "unit_id", Owner: "submitted_by"}

// ServeList lists headcounts: GET ?scope=&unitId=&from=&to=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list attendance")
	defer cancel()
	_, ls, _, err := shared.ScopedList(ctx, r, h.Units)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	from, to, err := shared.DateRange(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	q, err := recordpolicy.Filter(ctx, h.Units.Store(), ls, attendanceFields)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	p := paging.Parse(r)
	items, total, err := h.Attendance.List(ctx, q, from, to, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

type submitRequest struct {
	UnitID      string  `json:"unit_id"`
	Date        *string `json:"date"`
	ServiceType string  `json:"service_type"`
	MaleCount   int     `json:"male_count"`
	FemaleCount int     `json:"female_count"`
}

// HandleSubmit records a headcount for an attendance-taking unit. Only a
// SuperAdmin in scope or the unit's leader may submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in submitRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit attendance")
	defer cancel()
	unit, _, err := shared.TargetUnit(ctx, h.Units, in.UnitID, resolved.UnitID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if ok, _ := authz.SuperAdminInScope(u, unit.ChurchID); !ok && !u.LeadsUnit(unit.ID) {
		respond.Error(w, h.Log, apierr.Forbidden("Only a SuperAdmin or the unit leader can submit attendance"))
		return
	}
	if !unit.AttendanceTaking {
		respond.Error(w, h.Log, apierr.Validation("Unit is not an attendance-taking unit"))
		return
	}

	a := models.Attendance{
		UnitID:      unit.ID,
		ServiceType: in.ServiceType,
		MaleCount:   in.MaleCount,
		FemaleCount: in.FemaleCount,
		SubmittedBy: u.ID,
	}
	if in.Date != nil {
		if a.Date, err = shared.ParseTime(*in.Date); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	created, err := h.Attendance.Create(ctx, a)
	if err != nil {
		if errors.Is(err, attendancestore.ErrNegativeCount) || errors.Is(err, attendancestore.ErrServiceType) {
			err = apierr.Validation(err.Error())
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusCreated, created)
}
