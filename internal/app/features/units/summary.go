package units

import (
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// ServeSummary returns member counts and per-kind record totals for a unit.
// The counts run concurrently.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "unit summary")
	defer cancel()
	_, unit, err := h.load(ctx, r, authz.ActionRead)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	q := bson.M{"unit_id": unit.ID}
	var roles struct{ leaders, members int }
	counts := map[string]*int64{
		"souls":             new(int64),
		"invites":           new(int64),
		"achievements":      new(int64),
		"assists":           new(int64),
		"marriages":         new(int64),
		"recovered_addicts": new(int64),
		"songs":             new(int64),
	}
	g, gctx := errgroup.WithContext(ctx)
	counters := map[string]func() (int64, error){
		"souls":             func() (int64, error) { return h.Records.Souls.Count(gctx, q) },
		"invites":           func() (int64, error) { return h.Records.Invites.Count(gctx, q) },
		"achievements":      func() (int64, error) { return h.Records.Achievements.Count(gctx, q) },
		"assists":           func() (int64, error) { return h.Records.Assists.Count(gctx, q) },
		"marriages":         func() (int64, error) { return h.Records.Marriages.Count(gctx, q) },
		"recovered_addicts": func() (int64, error) { return h.Records.RecoveredAddicts.Count(gctx, q) },
		"songs":             func() (int64, error) { return h.Records.Songs.Count(gctx, q) },
	}

	for name, count := range counters {
		dst := counts[name]
		g.Go(func() error {
			n, err := count()
			*dst = n
			return err
		})
	}
	g.Go(func() error {
		ur, err := h.Memberships.RolesInUnit(gctx, unit.ID)
		roles.leaders, roles.members = len(ur.Leaders), len(ur.Members)
		return err
	})
	if err := g.Wait(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	records := make(map[string]int64, len(counts))
	for k, v := range counts {
		records[k] = *v
	}
	respond.Fields(w, http.StatusOK, map[string]any{
		"unit":    unit,
		"leaders": roles.leaders,
		"members": roles.members,
		"records": records,
	})
}
