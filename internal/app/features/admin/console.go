package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/adminauth"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/ratelimit"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// consoleID keys the per-identifier login window; the console has a
// single shared password.
const consoleID = "admin-console"

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.Decode(w, r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Limiter.Check(r, consoleID); err != nil {
		h.Audit.Auth(r.Context(), r, audit.EventLoginFailedRateLimit, nil, false, "admin console", nil)
		respond.Error(w, h.Log, err)
		return
	}
	err := h.Auth.Login(w, r, req.Password)
	switch {
	case errors.Is(err, adminauth.ErrDisabled):
		respond.Error(w, h.Log, apierr.Forbidden("Admin console is disabled"))
		return
	case err != nil:
		h.Audit.Auth(r.Context(), r, audit.EventAdminConsoleLogin, nil, false, "invalid password", nil)
		respond.Error(w, h.Log, err)
		return
	}
	h.Limiter.Succeeded(consoleID)
	h.Audit.Auth(r.Context(), r, audit.EventAdminConsoleLogin, nil, true, "", nil)
	respond.OK(w)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(w, r); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w)
}

type summary struct {
	Churches    int64 `json:"churches"`
	Units       int64 `json:"units"`
	Workers     int64 `json:"total_workers"`
	Attendance  int64 `json:"attendance_count"`
	Souls       int64 `json:"souls"`
	Invites     int64 `json:"invites"`
	Connections int   `json:"realtime_connections"`
}

// ServeSummary counts across every church.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin summary")
	defer cancel()

	var s summary
	all := bson.M{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Churches, err = h.Churches.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		s.Units, err = h.Units.Count(gctx, unitstore.Filter{All: true})
		return err
	})
	g.Go(func() (err error) {
		s.Workers, err = h.Users.Count(gctx, userstore.Filter{})
		return err
	})
	g.Go(func() (err error) {
		s.Attendance, err = h.Attendance.Count(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		s.Souls, err = h.Records.Souls.Count(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		s.Invites, err = h.Records.Invites.Count(gctx, all)
		return err
	})
	if err := g.Wait(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if h.Live != nil {
		s.Connections = h.Live.Connections()
	}
	respond.Item(w, http.StatusOK, s)
}

type pushRequest struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// HandlePush broadcasts a notification to every registered device.
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := shared.Decode(w, r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		respond.Error(w, h.Log, apierr.Validation("title and body required"))
		return
	}
	if h.Push == nil {
		respond.Error(w, h.Log, apierr.Upstream("Push is not configured", "push_disabled", nil))
		return
	}
	h.Push.Publish(push.Notification{Title: req.Title, Body: req.Body, Data: req.Data, Broadcast: true})
	h.Audit.Log(r.Context(), audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventBroadcastSent,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"source": "console", "title": req.Title},
	})
	h.Log.Info("console broadcast queued", zap.String("title", req.Title))
	respond.Fields(w, http.StatusAccepted, map[string]any{"queued": true})
}
