package pages_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/churchhub/internal/app/features/pages"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	db := testutil.SetupTestDB(t)
	r := chi.NewRouter()
	r.Mount("/legal", pages.Routes(pages.NewHandler(db, nil, zap.NewNop())))
	return r
}

func serve(r chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type pageResp struct {
	Item models.LegalPage `json:"item"`
}

func TestServeSeedsDefault(t *testing.T) {
	r := newRouter(t)

	rec := serve(r, testutil.NewRequest("GET", "/legal/privacy"))
	rec.AssertStatus(t, http.StatusOK)
	var out pageResp
	rec.Decode(t, &out)
	if out.Item.Title != "Privacy Policy" || len(out.Item.Sections) == 0 {
		t.Errorf("seeded page = %+v", out.Item)
	}

	serve(r, testutil.NewRequest("GET", "/legal/cookies")).AssertStatus(t, http.StatusBadRequest)
}

func TestEditSanitizes(t *testing.T) {
	r := newRouter(t)
	admin := testutil.SuperAdmin()
	body := map[string]any{
		"title": "<b>Terms</b>",
		"sections": []map[string]string{
			{"heading": "Use", "body": `<p onclick="x()">Be kind</p><script>alert(1)</script>`},
			{"heading": "", "body": ""},
			{"heading": "Plain", "body": "line one\nline two"},
		},
	}

	rec := serve(r, testutil.NewJSONRequest(t, "PUT", "/legal/terms", body))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "PUT", "/legal/terms", admin, body))
	rec.AssertStatus(t, http.StatusOK)
	var out pageResp
	rec.Decode(t, &out)
	if out.Item.Title != "Terms" {
		t.Errorf("title = %q", out.Item.Title)
	}
	if len(out.Item.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(out.Item.Sections))
	}
	if got := out.Item.Sections[0].Body; got != "<p>Be kind</p>" {
		t.Errorf("sanitized body = %q", got)
	}
	if got := out.Item.Sections[1].Body; got != "<p>line one<br>line two</p>" {
		t.Errorf("plain body = %q", got)
	}

	rec = serve(r, testutil.NewRequest("GET", "/legal/terms"))
	rec.Decode(t, &out)
	if out.Item.Title != "Terms" {
		t.Errorf("stored title = %q", out.Item.Title)
	}
}

func TestSeed(t *testing.T) {
	r := newRouter(t)
	admin := testutil.SuperAdmin()

	serve(r, testutil.NewAuthenticatedRequest(t, "PUT", "/legal/terms", admin, map[string]any{"title": "Custom"})).AssertStatus(t, http.StatusOK)

	rec := serve(r, testutil.WithUser(testutil.NewRequest("POST", "/legal/seed"), admin))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"seeded":["privacy"]`)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/legal/seed", admin, map[string]any{"overwrite": true}))
	rec.AssertContains(t, `"seeded":["terms","privacy"]`)

	var out pageResp
	serve(r, testutil.NewRequest("GET", "/legal/terms")).Decode(t, &out)
	if out.Item.Title != "Terms of Use" {
		t.Errorf("after overwrite title = %q", out.Item.Title)
	}
}
