package messages

import (
	"context"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) ServeInbox(w http.ResponseWriter, r *http.Request) {
	u, _, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "message inbox")
	defer cancel()
	p := paging.Parse(r)
	items, total, err := h.Messages.Inbox(ctx, u.ID, u.UnitIDs(), p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	u, _, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unread messages")
	defer cancel()
	n, err := h.Messages.CountUnread(ctx, u.ID, u.UnitIDs())
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{"count": n})
}

func (h *Handler) ServeConversation(w http.ResponseWriter, r *http.Request) {
	u, _, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	other, err := shared.IDParam(r, "userId")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "message conversation")
	defer cancel()
	p := paging.Parse(r)
	items, total, err := h.Messages.Conversation(ctx, u.ID, other, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// ServeUnit lists a unit's messages to anyone who may read the unit.
func (h *Handler) ServeUnit(w http.ResponseWriter, r *http.Request) {
	u, _, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	unitID, err := shared.IDParam(r, "unitId")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unit messages")
	defer cancel()
	_, ref, err := shared.LoadUnit(ctx, h.Units, unitID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := authz.Require(u, authz.ActionRead, authz.Resource{Unit: ref, ExplicitUnit: true}); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	p := paging.Parse(r)
	items, total, err := h.Messages.Unit(ctx, unitID, u.ID, p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// participant loads the {id} message when the caller sent it, received it
// directly, or holds a role in the unit it was sent to.
func (h *Handler) participant(ctx context.Context, r *http.Request) (*models.User, primitive.ObjectID, error) {
	u, _, err := authz.Caller(r)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	m, err := h.Messages.Get(ctx, id)
	if err != nil {
		return nil, primitive.NilObjectID, messageErr(err)
	}
	switch {
	case m.From == u.ID:
	case m.To != nil && *m.To == u.ID:
	case m.ToUnit != nil && u.HoldsRoleInUnit(*m.ToUnit):
	default:
		return nil, primitive.NilObjectID, apierr.NotFound("Message not found")
	}
	return u, m.ID, nil
}

func (h *Handler) mark(w http.ResponseWriter, r *http.Request, op string, apply func(ctx context.Context, id, user primitive.ObjectID) error) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()
	u, id, err := h.participant(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := apply(ctx, id, u.ID); err != nil {
		respond.Error(w, h.Log, messageErr(err))
		return
	}
	respond.OK(w)
}

func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, "read message", h.Messages.MarkRead)
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, "archive message", h.Messages.Archive)
}

// HandleDelete hides the message for the caller only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, "delete message", h.Messages.DeleteFor)
}
