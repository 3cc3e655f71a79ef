package ministryadmins

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type assignRequest struct {
	UserID       string `json:"user_id"`
	ChurchID     string `json:"church_id"`
	MinistryName string `json:"ministry_name"`
}

// HandleAssign makes a user MinistryAdmin of a ministry that exists in the
// church. The church is also added to the user's church list.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)
	var in assignRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := shared.RequiredID(in.UserID, "user_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	churchID, err := shared.RequiredID(in.ChurchID, "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(in.MinistryName) == "" {
		respond.Error(w, h.Log, apierr.Validation("ministry_name required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "assign ministry admin")
	defer cancel()

	ok, err := h.Churches.HasMinistry(ctx, churchID, in.MinistryName)
	switch {
	case err != nil:
		respond.Error(w, h.Log, err)
		return
	case !ok:
		respond.Error(w, h.Log, apierr.Validation("Ministry not found in church"))
		return
	}
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			err = apierr.NotFound("User not found")
		}
		respond.Error(w, h.Log, err)
		return
	}

	m, err := h.Memberships.Add(ctx, models.Membership{
		UserID:       userID,
		Role:         models.RoleMinistryAdmin,
		ChurchID:     &churchID,
		MinistryName: in.MinistryName,
	})
	if errors.Is(err, membershipstore.ErrDuplicateRole) {
		respond.Error(w, h.Log, apierr.Conflict("User already administers this ministry"))
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.Users.AddChurch(ctx, userID, churchID); err != nil {
		h.Log.Warn("add church to ministry admin failed", zap.Error(err))
	}
	if h.Audit != nil {
		h.Audit.Admin(ctx, r, audit.EventRoleAssigned, caller.ID, &userID, &churchID,
			map[string]string{"role": models.RoleMinistryAdmin, "ministry": m.MinistryName})
	}
	respond.Item(w, http.StatusCreated, m)
}

type adminRow struct {
	models.Membership
	User *userSummary `json:"user,omitempty"`
}

type userSummary struct {
	ID        primitive.ObjectID `json:"id"`
	FirstName string             `json:"first_name"`
	Surname   string             `json:"surname"`
	Phone     string             `json:"phone"`
	Email     string             `json:"email,omitempty"`
}

// ServeList returns MinistryAdmin assignments, optionally for one church.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	churchID, err := shared.OptionalID(query.Get(r, "church_id"), "church_id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list ministry admins")
	defer cancel()

	extra := bson.M{}
	if churchID != nil {
		extra["church_id"] = *churchID
	}
	ms, err := h.Memberships.ListByRole(ctx, models.RoleMinistryAdmin, extra)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := h.Users.Many(ctx, ids)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	items := make([]adminRow, 0, len(ms))
	for _, m := range ms {
		row := adminRow{Membership: m}
		if u, ok := users[m.UserID]; ok {
			row.User = &userSummary{ID: u.ID, FirstName: u.FirstName, Surname: u.Surname, Phone: u.Phone, Email: u.Email}
		}
		items = append(items, row)
	}
	respond.Fields(w, http.StatusOK, map[string]any{"items": items})
}
