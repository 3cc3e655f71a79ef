package messages_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/features/messages"
	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/presence"
	"github.com/dalemusser/churchhub/internal/app/system/realtime"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type liveRecorder struct {
	mu  sync.Mutex
	got map[primitive.ObjectID]int
}

func (l *liveRecorder) Send(users []primitive.ObjectID, _ realtime.Event) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.got == nil {
		l.got = map[primitive.ObjectID]int{}
	}
	for _, u := range users {
		l.got[u]++
	}
	return len(users)
}

func (l *liveRecorder) count(u primitive.ObjectID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.got[u]
}

type env struct {
	router   chi.Router
	fix      *testutil.Fixtures
	presence *presence.Memory
	live     *liveRecorder
	sent     *testutil.Notifications
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	e := &env{fix: testutil.NewFixtures(t, db), presence: presence.NewMemory(), live: &liveRecorder{}, sent: &testutil.Notifications{}}
	h := messages.NewHandler(db, unitstore.NewCache(unitstore.New(db), 64, time.Minute), e.presence, e.live, e.sent, zap.NewNop())
	e.router = chi.NewRouter()
	e.router.Mount("/messages", messages.Routes(h))
	return e
}

func (e *env) do(t *testing.T, method, target string, u *models.User, body any) *testutil.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewAuthenticatedRequest(t, method, target, u, body)
	} else {
		req = testutil.WithUser(testutil.NewRequest(method, target), u)
	}
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) send(t *testing.T, from *models.User, body map[string]any) models.Message {
	t.Helper()
	rec := e.do(t, "POST", "/messages", from, body)
	rec.AssertStatus(t, http.StatusCreated)
	var out struct {
		Item models.Message `json:"item"`
	}
	rec.Decode(t, &out)
	return out.Item
}

func TestDirectMessageDelivery(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := e.fix.CreateUser(ctx, "Alice", "A", nil)
	bob := e.fix.CreateUser(ctx, "Bob", "B", nil)

	m := e.send(t, &alice, map[string]any{"to": bob.ID.Hex(), "text": "<b>hi</b>"})
	if m.Delivered {
		t.Error("offline recipient marked delivered")
	}
	if m.Text != "hi" {
		t.Errorf("text = %q, want tags stripped", m.Text)
	}
	if sent := e.sent.Sent(); len(sent) != 1 || sent[0].UserIDs[0] != bob.ID {
		t.Fatalf("pushes = %+v, want one to bob", sent)
	}

	if err := e.presence.Connect(ctx, bob.ID, "conn-1"); err != nil {
		t.Fatal(err)
	}
	m = e.send(t, &alice, map[string]any{"toUserId": bob.ID.Hex(), "text": "again"})
	if !m.Delivered {
		t.Error("online recipient not marked delivered")
	}
	if e.live.count(bob.ID) != 1 {
		t.Errorf("live sends to bob = %d, want 1", e.live.count(bob.ID))
	}
	if len(e.sent.Sent()) != 1 {
		t.Error("online recipient should not get a push")
	}

	e.do(t, "POST", "/messages", &alice, map[string]any{"to": primitive.NewObjectID().Hex(), "text": "x"}).
		AssertStatus(t, http.StatusNotFound)
	e.do(t, "POST", "/messages", &alice, map[string]any{"to": bob.ID.Hex()}).AssertStatus(t, http.StatusBadRequest)
	e.do(t, "POST", "/messages", &alice, map[string]any{"text": "nobody"}).AssertStatus(t, http.StatusBadRequest)

	rec := e.do(t, "GET", "/messages/conversation/"+alice.ID.Hex(), &bob, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":2`)
}

func TestUnitMessages(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	unit := e.fix.CreateUnit(ctx, "Choir", nil, "")
	leader := e.fix.CreateUser(ctx, "Lead", "Er", nil)
	e.fix.AddMembership(ctx, &leader, models.RoleUnitLeader, &unit, nil, "")
	member := e.fix.CreateUser(ctx, "Mem", "Ber", nil)
	e.fix.AddMembership(ctx, &member, models.RoleMember, &unit, nil, "")
	outsider := e.fix.CreateUser(ctx, "Out", "Sider", nil)

	e.do(t, "POST", "/messages", &outsider, map[string]any{"to_unit": unit.ID.Hex(), "text": "hello"}).
		AssertStatus(t, http.StatusForbidden)

	m := e.send(t, &leader, map[string]any{"to_unit": unit.ID.Hex(), "text": "practice at 6"})
	sent := e.sent.Sent()
	if len(sent) != 1 || len(sent[0].UserIDs) != 1 || sent[0].UserIDs[0] != member.ID {
		t.Fatalf("pushes = %+v, want one to the member only", sent)
	}

	rec := e.do(t, "GET", "/messages/unit/"+unit.ID.Hex(), &member, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "practice at 6")
	e.do(t, "GET", "/messages/unit/"+unit.ID.Hex(), &outsider, nil).AssertStatus(t, http.StatusForbidden)

	rec = e.do(t, "GET", "/messages/unread", &member, nil)
	rec.AssertContains(t, `"count":1`)
	e.do(t, "POST", "/messages/"+m.ID.Hex()+"/read", &member, nil).AssertStatus(t, http.StatusOK)
	rec = e.do(t, "GET", "/messages/unread", &member, nil)
	rec.AssertContains(t, `"count":0`)

	e.do(t, "POST", "/messages/"+m.ID.Hex()+"/read", &outsider, nil).AssertStatus(t, http.StatusNotFound)
}

func TestArchiveAndDeleteArePerUser(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := e.fix.CreateUser(ctx, "Alice", "A", nil)
	bob := e.fix.CreateUser(ctx, "Bob", "B", nil)

	first := e.send(t, &alice, map[string]any{"to": bob.ID.Hex(), "text": "one"})
	second := e.send(t, &alice, map[string]any{"to": bob.ID.Hex(), "text": "two"})

	e.do(t, "POST", "/messages/"+first.ID.Hex()+"/archive", &bob, nil).AssertStatus(t, http.StatusOK)
	rec := e.do(t, "GET", "/messages/inbox", &bob, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":1`)

	e.do(t, "DELETE", "/messages/"+second.ID.Hex(), &bob, nil).AssertStatus(t, http.StatusOK)
	rec = e.do(t, "GET", "/messages/conversation/"+alice.ID.Hex(), &bob, nil)
	rec.AssertContains(t, `"total":1`)
	rec = e.do(t, "GET", "/messages/conversation/"+bob.ID.Hex(), &alice, nil)
	rec.AssertContains(t, `"total":2`)
}
