package testimonies

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	testimonystore "github.com/dalemusser/churchhub/internal/app/store/testimonies"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

// ServeList shows approved testimonies and the caller's own pending ones.
// SuperAdmins see everything, which is how they find testimonies to approve.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list testimonies")
	defer cancel()
	p := paging.Parse(r)
	items, total, err := h.Testimonies.List(ctx, u.IsSuperAdmin(), &u.ID, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

type createRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in createRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Body) == "" {
		respond.Error(w, h.Log, apierr.Validation("title and body required"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create testimony")
	defer cancel()
	t, err := h.Testimonies.Create(ctx, models.Testimony{UserID: u.ID, Title: in.Title, Body: in.Body})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusCreated, t)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "approve testimony")
	defer cancel()
	if err := h.Testimonies.Approve(ctx, id); err != nil {
		if errors.Is(err, testimonystore.ErrNotFound) {
			err = apierr.NotFound(err.Error())
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w)
}
