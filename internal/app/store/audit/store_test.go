package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/store/audit"
	"github.com/dalemusser/churchhub/internal/app/system/paging"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, total, err := store.Query(ctx, audit.QueryFilter{UserID: &userID}, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("expected 1 event, got %d (total %d)", len(events), total)
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	church := primitive.NewObjectID()
	old := time.Now().Add(-48 * time.Hour)
	for _, e := range []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventUnitCreated, ChurchID: &church, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventChurchUpdated, ChurchID: &church, Success: true, Timestamp: old},
	} {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	all := paging.Params{Page: 1, Limit: 50}
	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int64
	}{
		{"category", audit.QueryFilter{Category: audit.CategoryAdmin}, 2},
		{"event type", audit.QueryFilter{EventType: audit.EventLoginSuccess}, 1},
		{"church", audit.QueryFilter{ChurchID: &church}, 2},
		{"since yesterday", audit.QueryFilter{StartTime: ptr(time.Now().Add(-24 * time.Hour))}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := store.Query(ctx, tt.filter, all)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
		})
	}
}

func TestStore_GetFailedLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, typ := range []string{audit.EventLoginFailedWrongPassword, audit.EventLoginFailedRateLimit, audit.EventLoginSuccess} {
		_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: typ, Success: typ == audit.EventLoginSuccess})
	}
	events, err := store.GetFailedLogins(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 failed logins, got %d", len(events))
	}
}

func ptr[T any](v T) *T { return &v }
