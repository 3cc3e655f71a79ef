package devices

import (
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	devicetokenstore "github.com/dalemusser/churchhub/internal/app/store/devicetokens"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
)

type tokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// HandleRegister attaches a device token to the caller. A token seen
// before under another account moves to the caller.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in tokenRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "register device")
	defer cancel()
	if err := h.Tokens.Register(ctx, in.Token, &u.ID, in.Platform); err != nil {
		if devicetokenstore.IsValidation(err) {
			err = apierr.Validation(err.Error())
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w)
}

func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.Token) == "" {
		respond.Error(w, h.Log, apierr.Validation("token required"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unregister device")
	defer cancel()
	if err := h.Tokens.Unregister(ctx, in.Token); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w)
}

type broadcastRequest struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// HandleBroadcast queues a notification for every device, or for the users
// of the caller's church when the SuperAdmin is confined to one.
func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in broadcastRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in.Title, in.Body = strings.TrimSpace(in.Title), strings.TrimSpace(in.Body)
	if in.Title == "" || in.Body == "" {
		respond.Error(w, h.Log, apierr.Validation("title and body required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "broadcast push")
	defer cancel()
	n := push.Notification{Title: in.Title, Body: in.Body, Data: in.Data}
	recipients := 0
	switch {
	case u.Multi:
		n.Broadcast = true
	case u.ChurchID == nil:
		respond.Error(w, h.Log, apierr.Forbidden(authz.ReasonOutOfChurch))
		return
	default:
		ids, err := h.Users.IDsInChurch(ctx, *u.ChurchID)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		n.UserIDs, recipients = ids, len(ids)
	}
	if n.Broadcast || recipients > 0 {
		shared.Notify(h.Push, n)
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventBroadcastSent, u.ID, nil, u.ChurchID, map[string]string{"title": in.Title})
	}
	respond.Fields(w, http.StatusAccepted, map[string]any{"queued": true, "broadcast": n.Broadcast, "recipients": recipients})
}
