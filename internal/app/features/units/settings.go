package units

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type flagRequest struct {
	Enabled bool `json:"enabled"`
}

// HandleAttendanceTaking marks the unit that records the church's service
// attendance. A church has at most one.
func (h *Handler) HandleAttendanceTaking(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, "attendance_taking", h.Units.Store().SetAttendanceTaking)
}

// HandleMusic marks a unit whose members may publish songs.
func (h *Handler) HandleMusic(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, "music_unit", h.Units.Store().SetMusic)
}

func (h *Handler) setFlag(w http.ResponseWriter, r *http.Request, name string,
	set func(ctx context.Context, id primitive.ObjectID, on bool) error) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set "+name)
	defer cancel()
	u, unit, err := h.load(ctx, r, authz.ActionRead)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if ok, reason := authz.SuperAdminInScope(u, unit.ChurchID); !ok {
		respond.Error(w, h.Log, apierr.Forbidden(reason))
		return
	}
	var in flagRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	err = set(ctx, unit.ID, in.Enabled)
	h.Units.Invalidate(unit.ID)
	if err != nil {
		respond.Error(w, h.Log, unitErr(err))
		return
	}
	updated, err := h.Units.Get(ctx, unit.ID)
	if err != nil {
		respond.Error(w, h.Log, unitErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventUnitUpdated, u.ID, &unit.ID, unit.ChurchID, map[string]string{name: boolString(in.Enabled)})
	}
	respond.Item(w, http.StatusOK, updated)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

type reportCardsRequest struct {
	Cards []string `json:"cards"`
}

// HandleReportCards replaces the list of report cards shown for the unit.
func (h *Handler) HandleReportCards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set report cards")
	defer cancel()
	_, unit, err := h.load(ctx, r, authz.ActionManage)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in reportCardsRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	cards := make([]string, 0, len(in.Cards))
	seen := map[string]bool{}
	for _, c := range in.Cards {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cards = append(cards, c)
	}
	err = h.Units.Store().SetReportCards(ctx, unit.ID, cards)
	h.Units.Invalidate(unit.ID)
	if err != nil {
		respond.Error(w, h.Log, unitErr(err))
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{"enabled_report_cards": cards})
}
