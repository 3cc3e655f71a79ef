package messagestore_test

import (
	"testing"

	messagestore "github.com/dalemusser/churchhub/internal/app/store/messages"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var firstPage = paging.Params{Page: 1, Limit: 20}

func TestStore_CreateValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	from := primitive.NewObjectID()
	to := primitive.NewObjectID()
	unit := primitive.NewObjectID()

	tests := []struct {
		name string
		m    models.Message
		want error
	}{
		{"no recipient", models.Message{From: from, Text: "hi"}, messagestore.ErrNoRecipient},
		{"both recipients", models.Message{From: from, To: &to, ToUnit: &unit, Text: "hi"}, messagestore.ErrTwoRecipients},
		{"empty", models.Message{From: from, To: &to, Text: "  "}, messagestore.ErrEmpty},
		{"bad attachment", models.Message{From: from, To: &to, Attachments: []models.Attachment{{URL: "x", Type: "video"}}}, messagestore.ErrBadAttachment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.m); err != tt.want {
				t.Errorf("Create err = %v, want %v", err, tt.want)
			}
		})
	}

	m, err := store.Create(ctx, models.Message{From: from, To: &to, Attachments: []models.Attachment{{URL: "https://x/y.png", Type: "image"}}})
	if err != nil {
		t.Fatalf("attachment-only message: %v", err)
	}
	if len(m.ReadBy) != 1 || m.ReadBy[0] != from {
		t.Errorf("sender should have read own message: %v", m.ReadBy)
	}
}

func TestStore_InboxAndUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := messagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := primitive.NewObjectID()
	peer := primitive.NewObjectID()
	unit := primitive.NewObjectID()

	direct, _ := store.Create(ctx, models.Message{From: peer, To: &me, Text: "hello"})
	toUnit, _ := store.Create(ctx, models.Message{From: peer, ToUnit: &unit, Text: "rehearsal at 5"})
	store.Create(ctx, models.Message{From: peer, To: &peer, Text: "note to self"})

	items, total, err := store.Inbox(ctx, me, []primitive.ObjectID{unit}, firstPage)
	if err != nil {
		t.Fatalf("Inbox failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("Inbox total=%d, want 2", total)
	}

	n, _ := store.CountUnread(ctx, me, []primitive.ObjectID{unit})
	if n != 2 {
		t.Errorf("unread = %d, want 2", n)
	}
	if err := store.MarkRead(ctx, direct.ID, me); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	n, _ = store.CountUnread(ctx, me, []primitive.ObjectID{unit})
	if n != 1 {
		t.Errorf("unread after MarkRead = %d, want 1", n)
	}

	if err := store.Archive(ctx, toUnit.ID, me); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	_, total, _ = store.Inbox(ctx, me, []primitive.ObjectID{unit}, firstPage)
	if total != 1 {
		t.Errorf("Inbox after archive = %d, want 1", total)
	}

	// Deleting hides the message from one side only.
	if err := store.DeleteFor(ctx, direct.ID, me); err != nil {
		t.Fatalf("DeleteFor failed: %v", err)
	}
	_, mine, _ := store.Conversation(ctx, me, peer, firstPage)
	_, theirs, _ := store.Conversation(ctx, peer, me, firstPage)
	if mine != 0 || theirs != 1 {
		t.Errorf("conversation counts me=%d peer=%d, want 0 and 1", mine, theirs)
	}

	if err := store.MarkRead(ctx, primitive.NewObjectID(), me); err != messagestore.ErrNotFound {
		t.Errorf("MarkRead unknown err = %v, want ErrNotFound", err)
	}
}
