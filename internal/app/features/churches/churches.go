package churches

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	churchstore "github.com/dalemusser/churchhub/internal/app/store/churches"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
)

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list churches")
	defer cancel()
	items, err := h.Churches.List(ctx, u.VisibleChurchIDs())
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if items == nil {
		items = []models.Church{}
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ServeChurch(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if ids := u.VisibleChurchIDs(); ids != nil && !slices.Contains(ids, id) {
		respond.Error(w, h.Log, apierr.NotFound(churchstore.ErrNotFound.Error()))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get church")
	defer cancel()
	c, err := h.Churches.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, churchErr(err))
		return
	}
	respond.Item(w, http.StatusOK, c)
}

type createRequest struct {
	OrganizationID string   `json:"organization_id"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Address        string   `json:"address"`
	Ministries     []string `json:"ministries"`
}

// HandleCreate adds a church. Without organization_id the oldest
// organization is used.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	var in createRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		respond.Error(w, h.Log, apierr.Validation("name required"))
		return
	}
	orgID, err := shared.OptionalID(in.OrganizationID, "organization_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create church")
	defer cancel()
	var org models.Organization
	if orgID != nil {
		org, err = h.Orgs.GetByID(ctx, *orgID)
	} else {
		org, err = h.Orgs.First(ctx)
	}
	if err != nil {
		respond.Error(w, h.Log, apierr.Validation("Organization not found"))
		return
	}

	c := models.Church{OrganizationID: org.ID, Name: in.Name, Slug: in.Slug, Address: strings.TrimSpace(in.Address)}
	seen := map[string]bool{}
	for _, name := range in.Ministries {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.Ministries = append(c.Ministries, models.Ministry{Name: name})
	}
	created, err := h.Churches.Create(ctx, c)
	if err != nil {
		respond.Error(w, h.Log, churchErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventChurchCreated, u.ID, nil, &created.ID, map[string]string{"name": created.Name})
	}
	respond.Item(w, http.StatusCreated, created)
}

type updateRequest struct {
	Name    *string `json:"name"`
	Slug    *string `json:"slug"`
	Address *string `json:"address"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in updateRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		respond.Error(w, h.Log, apierr.Validation("name required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update church")
	defer cancel()
	if err := h.Churches.Update(ctx, id, churchstore.Update{Name: in.Name, Slug: in.Slug, Address: in.Address}); err != nil {
		respond.Error(w, h.Log, churchErr(err))
		return
	}
	c, err := h.Churches.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, churchErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventChurchUpdated, u.ID, nil, &id, nil)
	}
	respond.Item(w, http.StatusOK, c)
}

// HandleDelete removes a church that no longer has units.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete church")
	defer cancel()
	n, err := h.Units.CountInChurch(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if n > 0 {
		respond.Error(w, h.Log, apierr.Conflict("Church still has units"))
		return
	}
	if err := h.Churches.Delete(ctx, id); err != nil {
		respond.Error(w, h.Log, churchErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventChurchDeleted, u.ID, nil, &id, nil)
	}
	respond.OK(w)
}

func churchErr(err error) error {
	switch {
	case errors.Is(err, churchstore.ErrNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, churchstore.ErrMinistryNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, churchstore.ErrDuplicateChurch), errors.Is(err, churchstore.ErrMinistryExists):
		return apierr.Conflict(err.Error())
	}
	return err
}
