package support

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	supportstore "github.com/dalemusser/churchhub/internal/app/store/support"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/app/system/ratelimit"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/storage"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// maxScreenshot bounds a decoded inline screenshot.
const maxScreenshot = 5 << 20

type ticketRequest struct {
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Category         string `json:"category"`
	Description      string `json:"description"`
	ScreenshotURL    string `json:"screenshot_url"`
	ScreenshotBase64 string `json:"screenshot_base64"`
}

func ticketErr(err error) error {
	switch {
	case errors.Is(err, supportstore.ErrNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, supportstore.ErrBadCategory),
		errors.Is(err, supportstore.ErrBadStatus),
		errors.Is(err, supportstore.ErrEmailRequired),
		errors.Is(err, supportstore.ErrDescriptionReq):
		return apierr.Validation(err.Error())
	}
	return err
}

// HandleCreate opens a ticket. A screenshot may be a hosted URL or a
// base64 data URI; a failed upload is logged and the ticket kept.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		respond.Error(w, h.Log, apierr.RateLimited("Too many tickets, try again later"))
		return
	}
	var in ticketRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Category == "" || strings.TrimSpace(in.Description) == "" {
		respond.Error(w, h.Log, apierr.Validation("email, category, description required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create ticket")
	defer cancel()

	t := models.SupportTicket{
		Email:         in.Email,
		Phone:         strings.TrimSpace(in.Phone),
		Category:      in.Category,
		Description:   in.Description,
		ScreenshotURL: strings.TrimSpace(in.ScreenshotURL),
	}
	if u, ok := auth.CurrentUser(r); ok {
		t.UserID = &u.ID
	}
	if t.ScreenshotURL == "" && in.ScreenshotBase64 != "" {
		url, err := h.saveScreenshot(ctx, in.ScreenshotBase64)
		if err != nil {
			h.Log.Warn("screenshot upload failed, continuing without image", zap.Error(err))
		}
		t.ScreenshotURL = url
	}

	created, err := h.Tickets.Create(ctx, t)
	if err != nil {
		respond.Error(w, h.Log, ticketErr(err))
		return
	}
	respond.Item(w, http.StatusCreated, created)
}

var errNotDataURI = errors.New("screenshot is not a base64 data URI")

// saveScreenshot stores a data:<type>;base64,<body> image.
func (h *Handler) saveScreenshot(ctx context.Context, uri string) (string, error) {
	if h.Files == nil {
		return "", nil
	}
	meta, body, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasPrefix(uri, "data:") || !strings.HasSuffix(meta, ";base64") {
		return "", errNotDataURI
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if storage.Kind(contentType) != "image" {
		return "", errNotDataURI
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", err
	}
	if len(raw) > maxScreenshot {
		return "", errors.New("screenshot too large")
	}
	name := "screenshot"
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		name += exts[0]
	}
	return h.Files.Put(ctx, storage.NewKey("support_screens", name, time.Now()), bytes.NewReader(raw), contentType)
}

// ServeAdminList lists tickets: GET ?status=&category=.
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list tickets")
	defer cancel()
	p := paging.Parse(r)
	items, total, err := h.Tickets.List(ctx, query.Get(r, "status"), query.Get(r, "category"), p)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.List(w, items, respond.Page{Total: total, Page: p.Page, Limit: p.Limit})
}

// HandleSetStatus moves a ticket through open, in_progress, resolved and
// closed.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update ticket")
	defer cancel()
	t, err := h.Tickets.SetStatus(ctx, id, strings.TrimSpace(in.Status))
	if err != nil {
		respond.Error(w, h.Log, ticketErr(err))
		return
	}
	respond.Item(w, http.StatusOK, t)
}
