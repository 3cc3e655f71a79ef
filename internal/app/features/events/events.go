package events

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	eventstore "github.com/dalemusser/churchhub/internal/app/store/events"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultUpcoming = 5
	maxUpcoming     = 50
)

func visible(u *models.User) bson.M {
	return eventstore.Visible(u.IsMultiSuperAdmin(), u.VisibleChurchIDs(), u.UnitIDs())
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	from, to, err := shared.DateRange(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	q := visible(u)
	if from != nil || to != nil {
		rng := bson.M{}
		if from != nil {
			rng["$gte"] = *from
		}
		if to != nil {
			rng["$lte"] = *to
		}
		q["date"] = rng
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list events")
	defer cancel()
	p := paging.Parse(r)
	items, total, err := h.Events.List(ctx, q, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// ServeUpcoming returns the next ?limit= events (default 5) from now.
func (h *Handler) ServeUpcoming(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	n := defaultUpcoming
	if v, err := strconv.Atoi(query.Get(r, "limit")); err == nil && v > 0 {
		n = min(v, maxUpcoming)
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "upcoming events")
	defer cancel()
	items, err := h.Events.Upcoming(ctx, visible(u), int64(n))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": items})
}

type eventRequest struct {
	Title       *string `json:"title"`
	Venue       *string `json:"venue"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	EventType   *string `json:"event_type"`
	Reminder    *bool   `json:"reminder"`
	ChurchID    string  `json:"church_id"`
	UnitID      string  `json:"unit_id"`
}

// authorize checks that u may manage an event placed on unit, or on church
// when unit is nil. Unit events belong to whoever manages the unit;
// church-wide and global events need a SuperAdmin in scope.
func (h *Handler) authorize(ctx context.Context, u *models.User, unit, church *primitive.ObjectID) error {
	if unit != nil {
		_, ref, err := shared.LoadUnit(ctx, h.Units, *unit)
		if err != nil {
			return err
		}
		return authz.Require(u, authz.ActionManage, authz.Resource{Unit: ref})
	}
	if ok, reason := authz.SuperAdminInScope(u, church); !ok {
		return apierr.Forbidden(reason)
	}
	return nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in eventRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	unitID, err := shared.OptionalID(in.UnitID, "unit_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	churchID, err := shared.OptionalID(in.ChurchID, "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create event")
	defer cancel()

	e := models.Event{UnitID: unitID, CreatedBy: u.ID}
	if unitID != nil {
		unit, _, err := shared.LoadUnit(ctx, h.Units, *unitID)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		churchID = unit.ChurchID
	} else if churchID == nil {
		churchID = u.ChurchID
	}
	e.ChurchID = churchID
	if err := h.authorize(ctx, u, e.UnitID, e.ChurchID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := apply(&e, in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	created, err := h.Events.Create(ctx, e)
	if err != nil {
		respond.Error(w, h.Log, eventErr(err))
		return
	}
	if created.Reminder || created.UnitID == nil {
		h.notify(ctx, created)
	}
	respond.Item(w, http.StatusCreated, created)
}

func apply(e *models.Event, in eventRequest) error {
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Venue != nil {
		e.Venue = *in.Venue
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.EventType != nil {
		e.EventType = *in.EventType
	}
	if in.Reminder != nil {
		e.Reminder = *in.Reminder
	}
	if in.Date != nil {
		d, err := shared.ParseTime(*in.Date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	return nil
}

// notify publishes the event to its audience: the unit's members, the
// church's users, or everyone for a global event. Audience lookup failures
// are logged and the push is skipped.
func (h *Handler) notify(ctx context.Context, e models.Event) {
	n := push.Notification{
		Title: "New event: " + e.Title,
		Body:  e.Date.Format("Mon 2 Jan 2006 15:04"),
		Data:  map[string]string{"type": "event", "event_id": e.ID.Hex()},
	}
	if e.Venue != "" {
		n.Body += " at " + e.Venue
	}

	var err error
	switch {
	case e.UnitID != nil:
		n.UserIDs, err = h.Memberships.UserIDsInUnits(ctx, []primitive.ObjectID{*e.UnitID}, "")
	case e.ChurchID != nil:
		n.UserIDs, err = h.Users.IDsInChurch(ctx, *e.ChurchID)
	default:
		n.Broadcast = true
	}
	if err != nil {
		h.Log.Warn("event audience lookup failed", zap.String("event_id", e.ID.Hex()), zap.Error(err))
		return
	}
	if !n.Broadcast && len(n.UserIDs) == 0 {
		return
	}
	shared.Notify(h.Push, n)
}

func (h *Handler) load(ctx context.Context, r *http.Request) (*models.Event, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil, apierr.Unauthorized()
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, err
	}
	e, err := h.Events.Get(ctx, id)
	if err != nil {
		return nil, eventErr(err)
	}
	if err := h.authorize(ctx, u, e.UnitID, e.ChurchID); err != nil {
		return nil, err
	}
	return e, nil
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update event")
	defer cancel()
	e, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in eventRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	upd := eventstore.Update{
		Title:       in.Title,
		Venue:       in.Venue,
		Description: in.Description,
		EventType:   in.EventType,
		Reminder:    in.Reminder,
	}
	if in.Date != nil {
		d, err := shared.ParseTime(*in.Date)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		upd.Date = &d
	}
	updated, err := h.Events.Update(ctx, e.ID, upd)
	if err != nil {
		respond.Error(w, h.Log, eventErr(err))
		return
	}
	respond.Item(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete event")
	defer cancel()
	e, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Events.Delete(ctx, e.ID); err != nil {
		respond.Error(w, h.Log, eventErr(err))
		return
	}
	respond.OK(w)
}

func eventErr(err error) error {
	if errors.Is(err, eventstore.ErrNotFound) {
		return apierr.NotFound(err.Error())
	}
	if eventstore.IsValidation(err) {
		return apierr.Validation(err.Error())
	}
	return err
}
