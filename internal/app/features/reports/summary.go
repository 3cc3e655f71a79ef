package reports

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/policy/recordpolicy"
	eventstore "github.com/dalemusser/churchhub/internal/app/store/events"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// upcomingOnDashboard is how many future events the member dashboard shows.
const upcomingOnDashboard = 5

type unitInfo struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

type memberCounts struct {
	UnitMembers int   `json:"unit_members"`
	UnitSouls   int64 `json:"unit_souls"`
	MySouls     int64 `json:"my_souls"`
	UnitInvites int64 `json:"unit_invites"`
	MyInvites   int64 `json:"my_invites"`
}

// ServeUnitMember is the member dashboard for the active unit: member
// count, unit and own souls and invites, and the next events. A caller
// without an active unit gets zero counts and no unit.
func (h *Handler) ServeUnitMember(w http.ResponseWriter, r *http.Request) {
	u, resolved, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "unit member summary")
	defer cancel()

	var (
		unit     *unitInfo
		counts   memberCounts
		upcoming []models.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		q := eventstore.Visible(u.IsMultiSuperAdmin(), u.VisibleChurchIDs(), u.UnitIDs())
		upcoming, err = h.Events.Upcoming(gctx, q, upcomingOnDashboard)
		return err
	})
	if id := resolved.UnitID; id != nil {
		inUnit := bson.M{"unit_id": *id}
		mine := bson.M{"added_by": u.ID}
		g.Go(func() error {
			found, err := h.Units.Get(gctx, *id)
			if err == nil {
				unit = &unitInfo{ID: found.ID, Name: found.Name}
			}
			if errors.Is(err, unitstore.ErrNotFound) {
				return nil
			}
			return err
		})
		g.Go(func() (err error) {
			counts.UnitMembers, err = h.Memberships.CountUsersInUnit(gctx, *id)
			return err
		})
		g.Go(func() (err error) {
			counts.UnitSouls, err = h.Records.Souls.Count(gctx, inUnit)
			return err
		})
		g.Go(func() (err error) {
			counts.MySouls, err = h.Records.Souls.Count(gctx, mine)
			return err
		})
		g.Go(func() (err error) {
			counts.UnitInvites, err = h.Records.Invites.Count(gctx, inUnit)
			return err
		})
		g.Go(func() (err error) {
			counts.MyInvites, err = h.Records.Invites.Count(gctx, mine)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if upcoming == nil {
		upcoming = []models.Event{}
	}
	respond.Fields(w, http.StatusOK, map[string]any{
		"unit":            unit,
		"counts":          counts,
		"upcoming_events": upcoming,
	})
}

// ServeReportSummary counts workers, units, headcounts and the two main
// record kinds inside the caller's list scope (?scope=&unitId= apply).
func (h *Handler) ServeReportSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "report summary")
	defer cancel()
	u, ls, _, err := shared.ScopedList(ctx, r, h.Units)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	uf := unitFilter(u, ls)
	recordQ, err := recordpolicy.Filter(ctx, h.Units.Store(), ls, recordpolicy.Records)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	attendanceQ, err := recordpolicy.Filter(ctx, h.Units.Store(), ls, recordpolicy.Fields{Unit: "unit_id", Owner: "submitted_by"})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	var workers, units, attendance, souls, invites int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		workers, err = h.countWorkers(gctx, ls, uf)
		return err
	})
	g.Go(func() (err error) {
		units, err = h.Units.Store().Count(gctx, uf)
		return err
	})
	g.Go(func() (err error) {
		attendance, err = h.Attendance.Count(gctx, attendanceQ)
		return err
	})
	g.Go(func() (err error) {
		souls, err = h.Records.Souls.Count(gctx, recordQ)
		return err
	})
	g.Go(func() (err error) {
		invites, err = h.Records.Invites.Count(gctx, recordQ)
		return err
	})
	if err := g.Wait(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{
		"total_workers":    workers,
		"total_units":      units,
		"attendance_count": attendance,
		"souls":            souls,
		"invites":          invites,
	})
}

// unitFilter selects the units a list scope covers. An own-records scope
// covers the caller's units.
func unitFilter(u *models.User, ls authz.ListScope) unitstore.Filter {
	switch {
	case ls.All:
		return unitstore.Filter{All: true}
	case ls.UnitIDs != nil:
		return unitstore.Filter{IDs: ls.UnitIDs}
	case ls.ChurchID != nil:
		return unitstore.Filter{ChurchID: ls.ChurchID, Ministry: ls.Ministry}
	}
	ids := u.UnitIDs()
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return unitstore.Filter{IDs: ids}
}

// countWorkers counts users in scope: everyone, a church's users, or the
// distinct holders of roles in the covered units.
func (h *Handler) countWorkers(ctx context.Context, ls authz.ListScope, uf unitstore.Filter) (int64, error) {
	switch {
	case ls.All:
		return h.Users.Count(ctx, userstore.Filter{})
	case ls.ChurchID != nil && ls.Ministry == "":
		return h.Users.Count(ctx, userstore.Filter{ChurchID: ls.ChurchID})
	}
	ids, err := h.Units.Store().IDs(ctx, uf)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	users, err := h.Memberships.UserIDsInUnits(ctx, ids, "")
	return int64(len(users)), err
}
