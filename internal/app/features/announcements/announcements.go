// internal/app/features/announcements/announcements.go
package announcements

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	announcementstore "github.com/dalemusser/churchhub/internal/app/store/announcements"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.uber.org/zap"
)

// pushPreview is the longest body excerpt sent in a notification.
const pushPreview = 80

// ServeList lists the caller's church announcements plus global ones,
// pinned first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list announcements")
	defer cancel()
	p := paging.Parse(r)
	items, total, err := h.Store.List(ctx, u.VisibleChurchIDs(), p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

type announcementRequest struct {
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	Message  *string `json:"message"` // older clients send the body as message
	Pinned   bool    `json:"pinned"`
	ChurchID string  `json:"church_id"`
}

func (in *announcementRequest) body() *string {
	if in.Body != nil {
		return in.Body
	}
	return in.Message
}

// HandleCreate publishes an announcement and pushes it to its audience.
// The church defaults to the caller's; a SuperAdmin without one publishes
// globally.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	var in announcementRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	church, err := shared.OptionalID(in.ChurchID, "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if church == nil {
		church = u.ChurchID
	}
	if ok, reason := authz.SuperAdminInScope(u, church); !ok {
		respond.Error(w, h.Log, apierr.Forbidden(reason))
		return
	}

	a := models.Announcement{AuthorID: u.ID, Pinned: in.Pinned, ChurchID: church}
	if in.Title != nil {
		a.Title = *in.Title
	}
	if b := in.body(); b != nil {
		a.Body = htmlsanitize.Prepare(*b)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create announcement")
	defer cancel()
	created, err := h.Store.Create(ctx, a)
	if err != nil {
		respond.Error(w, h.Log, announcementErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventAnnouncementPublished, u.ID, &created.ID, created.ChurchID,
			map[string]string{"title": created.Title})
	}
	h.notify(ctx, created)
	respond.Item(w, http.StatusCreated, created)
}

// notify broadcasts a global announcement, or targets the church's users.
func (h *Handler) notify(ctx context.Context, a models.Announcement) {
	n := push.Notification{
		Title: "Announcement",
		Body:  preview(a),
		Data:  map[string]string{"type": "announcement", "id": a.ID.Hex()},
	}
	if a.ChurchID == nil {
		n.Broadcast = true
	} else {
		ids, err := h.Users.IDsInChurch(ctx, *a.ChurchID)
		if err != nil {
			h.Log.Warn("announcement audience lookup failed", zap.String("announcement_id", a.ID.Hex()), zap.Error(err))
			return
		}
		if len(ids) == 0 {
			return
		}
		n.UserIDs = ids
	}
	shared.Notify(h.Push, n)
}

func preview(a models.Announcement) string {
	if a.Title != "" {
		return a.Title
	}
	s := strings.TrimSpace(htmlsanitize.StripTags(a.Body))
	if utf8.RuneCountInString(s) > pushPreview {
		s = string([]rune(s)[:pushPreview])
	}
	return s
}

// load fetches the {id} announcement and checks the caller's church scope.
func (h *Handler) load(ctx context.Context, r *http.Request) (*models.User, *models.Announcement, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil, nil, apierr.Unauthorized()
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		return nil, nil, err
	}
	a, err := h.Store.Get(ctx, id)
	if err != nil {
		return nil, nil, announcementErr(err)
	}
	if ok, reason := authz.SuperAdminInScope(u, a.ChurchID); !ok {
		return nil, nil, apierr.Forbidden(reason)
	}
	return u, a, nil
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update announcement")
	defer cancel()
	_, a, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in announcementRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	body := in.body()
	if body != nil {
		clean := htmlsanitize.Prepare(*body)
		body = &clean
	}
	updated, err := h.Store.Update(ctx, a.ID, in.Title, body)
	if err != nil {
		respond.Error(w, h.Log, announcementErr(err))
		return
	}
	respond.Item(w, http.StatusOK, updated)
}

// HandlePin sets the pinned flag: {"pinned": bool}, defaulting to true.
func (h *Handler) HandlePin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "pin announcement")
	defer cancel()
	_, a, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in := struct {
		Pinned *bool `json:"pinned"`
	}{}
	if r.ContentLength != 0 {
		if err := shared.Decode(w, r, &in); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	pinned := in.Pinned == nil || *in.Pinned
	updated, err := h.Store.SetPinned(ctx, a.ID, pinned)
	if err != nil {
		respond.Error(w, h.Log, announcementErr(err))
		return
	}
	respond.Item(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete announcement")
	defer cancel()
	u, a, err := h.load(ctx, r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Store.Delete(ctx, a.ID); err != nil {
		respond.Error(w, h.Log, announcementErr(err))
		return
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventAnnouncementDeleted, u.ID, &a.ID, a.ChurchID, nil)
	}
	respond.OK(w)
}

func announcementErr(err error) error {
	if errors.Is(err, announcementstore.ErrNotFound) {
		return apierr.NotFound(err.Error())
	}
	if announcementstore.IsValidation(err) {
		return apierr.Validation(err.Error())
	}
	return err
}
