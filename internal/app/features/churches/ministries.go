package churches

import (
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
)

type ministryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleAddMinistry appends a ministry. Names are unique per church,
// compared case-insensitively.
func (h *Handler) HandleAddMinistry(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in ministryRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		respond.Error(w, h.Log, apierr.Validation("name required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add ministry")
	defer cancel()
	m, err := h.Churches.AddMinistry(ctx, id, in.Name, in.Description)
	if err != nil {
		respond.Error(w, h.Log, churchErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventMinistryAdded, u.ID, nil, &id, map[string]string{"ministry": m.Name})
	}
	respond.Item(w, http.StatusCreated, m)
}

func (h *Handler) HandleRemoveMinistry(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ministryID, err := shared.IDParam(r, "ministryId")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove ministry")
	defer cancel()
	if err := h.Churches.RemoveMinistry(ctx, id, ministryID); err != nil {
		respond.Error(w, h.Log, churchErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventMinistryRemoved, u.ID, nil, &id, map[string]string{"ministry_id": ministryID.Hex()})
	}
	respond.OK(w)
}
