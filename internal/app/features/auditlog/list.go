package auditlog

import (
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// eventRow is an audit event with the actor and subject named.
type eventRow struct {
	audit.Event
	ActorName string `json:"actor_name,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// ServeList handles GET /audit?category=&event_type=&user_id=&from=&to=&page=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	q := r.URL.Query()
	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		ChurchIDs: u.VisibleChurchIDs(),
	}
	switch filter.Category {
	case "", audit.CategoryAuth, audit.CategoryAdmin:
	default:
		respond.Error(w, h.Log, apierr.Validation("Invalid category"))
		return
	}
	var err error
	if filter.UserID, err = shared.OptionalID(q.Get("user_id"), "user_id"); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if filter.StartTime, filter.EndTime, err = shared.DateRange(r); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	p := paging.Parse(r)
	events, total, err := h.Events.Query(ctx, filter, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	users, err := h.Users.Many(ctx, ids)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	rows := make([]eventRow, 0, len(events))
	for _, e := range events {
		row := eventRow{Event: e}
		if e.ActorID != nil {
			if a, ok := users[*e.ActorID]; ok {
				row.ActorName = a.FullName()
			}
		}
		if e.UserID != nil {
			if s, ok := users[*e.UserID]; ok {
				row.UserName = s.FullName()
			}
		}
		rows = append(rows, row)
	}
	respond.List(w, rows, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}
