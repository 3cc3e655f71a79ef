package organizations

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	organizationstore "github.com/dalemusser/churchhub/internal/app/store/organizations"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list organizations")
	defer cancel()
	orgs, err := h.Orgs.List(ctx)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if orgs == nil {
		orgs = []models.Organization{}
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": orgs})
}

type createRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		respond.Error(w, h.Log, apierr.Validation("name required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create organization")
	defer cancel()
	org, err := h.Orgs.Create(ctx, models.Organization{Name: in.Name, Slug: in.Slug})
	if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
		respond.Error(w, h.Log, apierr.Conflict(err.Error()))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusCreated, org)
}
