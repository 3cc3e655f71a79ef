package messages

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	messagestore "github.com/dalemusser/churchhub/internal/app/store/messages"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/churchhub/internal/app/system/presence"
	"github.com/dalemusser/churchhub/internal/app/system/push"
	"github.com/dalemusser/churchhub/internal/app/system/realtime"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type sendRequest struct {
	To          string              `json:"to"`
	ToUserID    string              `json:"toUserId"`
	ToUnit      string              `json:"to_unit"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	u, _, err := authz.Caller(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in sendRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if in.To == "" {
		in.To = in.ToUserID
	}
	to, err := shared.OptionalID(in.To, "to")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	toUnit, err := shared.OptionalID(in.ToUnit, "to_unit")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "send message")
	defer cancel()

	var recipients []primitive.ObjectID
	switch {
	case to != nil && toUnit == nil:
		if _, err := h.Users.GetByID(ctx, *to); err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				err = apierr.NotFound("Recipient not found")
			}
			respond.Error(w, h.Log, err)
			return
		}
		recipients = []primitive.ObjectID{*to}
	case toUnit != nil && to == nil:
		_, ref, err := shared.LoadUnit(ctx, h.Units, *toUnit)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		if err := authz.Require(u, authz.ActionCreate, authz.Resource{Unit: ref}); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		ids, err := h.Memberships.UserIDsInUnits(ctx, []primitive.ObjectID{*toUnit}, "")
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		for _, id := range ids {
			if id != u.ID {
				recipients = append(recipients, id)
			}
		}
	}

	m, err := h.Messages.Create(ctx, models.Message{
		From:        u.ID,
		To:          to,
		ToUnit:      toUnit,
		Subject:     htmlsanitize.StripTags(in.Subject),
		Text:        htmlsanitize.StripTags(in.Text),
		Attachments: in.Attachments,
	})
	if err != nil {
		respond.Error(w, h.Log, messageErr(err))
		return
	}
	m.Delivered = h.deliver(ctx, u, m, recipients)
	respond.Item(w, http.StatusCreated, m)
}

// deliver hands m to the recipients' live connections and reports whether
// any recipient was online. When nobody is online the message is pushed.
func (h *Handler) deliver(ctx context.Context, from *models.User, m models.Message, recipients []primitive.ObjectID) bool {
	if len(recipients) == 0 {
		return false
	}
	online := false
	if h.Presence != nil {
		var err error
		if online, err = presence.AnyOnline(ctx, h.Presence, recipients); err != nil {
			h.Log.Warn("presence lookup failed", zap.String("message_id", m.ID.Hex()), zap.Error(err))
		}
	}
	if online {
		if err := h.Messages.SetDelivered(ctx, m.ID); err != nil {
			h.Log.Warn("mark delivered failed", zap.String("message_id", m.ID.Hex()), zap.Error(err))
		}
		m.Delivered = true
		if h.Live != nil {
			h.Live.Send(recipients, realtime.Event{Type: "message", Payload: m})
		}
		return true
	}

	body := m.Text
	if body == "" {
		body = "Sent an attachment"
	}
	shared.Notify(h.Push, push.Notification{
		Title:   from.FullName(),
		Body:    body,
		Data:    map[string]string{"type": "message", "id": m.ID.Hex()},
		UserIDs: recipients,
	})
	return false
}

func messageErr(err error) error {
	switch {
	case errors.Is(err, messagestore.ErrNotFound):
		return apierr.NotFound(err.Error())
	case errors.Is(err, messagestore.ErrNoRecipient), errors.Is(err, messagestore.ErrTwoRecipients),
		errors.Is(err, messagestore.ErrEmpty), errors.Is(err, messagestore.ErrBadAttachment):
		return apierr.Validation(err.Error())
	}
	return err
}
