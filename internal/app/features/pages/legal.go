// internal/app/features/pages/legal.go
package pages

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/churchhub/internal/app/features/shared"
	"github.com/dalemusser/churchhub/internal/app/store/audit"
	pagestore "github.com/dalemusser/churchhub/internal/app/store/pages"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// defaults seed a page the first time it is read.
var defaults = map[string]models.LegalPage{
	models.LegalTerms: {
		Type:  models.LegalTerms,
		Title: "Terms of Use",
		Sections: []models.LegalSection{
			{Heading: "Welcome", Body: "<p>By using this app you agree to these terms.</p>"},
			{Heading: "Acceptable Use", Body: "<p>Use the app lawfully and do not harm other members or the service.</p>"},
			{Heading: "Account Security", Body: "<p>Keep your credentials private. You are responsible for activity under your account.</p>"},
		},
	},
	models.LegalPrivacy: {
		Type:  models.LegalPrivacy,
		Title: "Privacy Policy",
		Sections: []models.LegalSection{
			{Heading: "What We Collect", Body: "<p>Your name, contact details and the records you enter for your unit.</p>"},
			{Heading: "How We Use It", Body: "<p>To run church operations and send you notifications. We do not sell your data.</p>"},
			{Heading: "Data Security", Body: "<p>Access is limited by role and church. No method of storage is completely secure.</p>"},
		},
	},
}

func pageType(r *http.Request) (string, error) {
	t := strings.ToLower(chi.URLParam(r, "type"))
	if !pagestore.ValidType(t) {
		return "", apierr.Validation("Invalid type")
	}
	return t, nil
}

// ServePage returns a legal page, seeding the default on first read.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	typ, err := pageType(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get legal page")
	defer cancel()
	page, err := h.Pages.GetByType(ctx, typ)
	if errors.Is(err, pagestore.ErrNotFound) {
		var seeded models.LegalPage
		seeded, err = h.Pages.Upsert(ctx, defaults[typ])
		page = &seeded
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Item(w, http.StatusOK, page)
}

type pageRequest struct {
	Title    string                `json:"title"`
	Sections []models.LegalSection `json:"sections"`
}

// HandleEdit replaces a page. Headings are plain text and bodies are
// sanitized rich text.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apierr.Unauthorized())
		return
	}
	typ, err := pageType(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in pageRequest
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	page := models.LegalPage{Type: typ, Title: htmlsanitize.StripTags(in.Title)}
	if page.Title == "" {
		respond.Error(w, h.Log, apierr.Validation("Page title is required"))
		return
	}
	for _, s := range in.Sections {
		sec := models.LegalSection{Heading: htmlsanitize.StripTags(s.Heading), Body: htmlsanitize.Prepare(s.Body)}
		if sec.Heading == "" && sec.Body == "" {
			continue
		}
		page.Sections = append(page.Sections, sec)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save legal page")
	defer cancel()
	saved, err := h.Pages.Upsert(ctx, page)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventLegalPageUpdated, u.ID, nil, nil, map[string]string{"type": typ})
	respond.Item(w, http.StatusOK, saved)
}

// HandleSeed writes the default pages that are missing, or all of them
// with {"overwrite": true}.
func (h *Handler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Overwrite bool `json:"overwrite"`
	}
	if r.ContentLength != 0 {
		if err := shared.Decode(w, r, &in); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "seed legal pages")
	defer cancel()
	seeded, err := h.seed(ctx, in.Overwrite)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.Fields(w, http.StatusOK, map[string]any{"seeded": seeded, "overwrite": in.Overwrite})
}

func (h *Handler) seed(ctx context.Context, overwrite bool) ([]string, error) {
	seeded := []string{}
	for _, typ := range []string{models.LegalTerms, models.LegalPrivacy} {
		if !overwrite {
			_, err := h.Pages.GetByType(ctx, typ)
			if err == nil {
				continue
			}
			if !errors.Is(err, pagestore.ErrNotFound) {
				return nil, err
			}
		}
		if _, err := h.Pages.Upsert(ctx, defaults[typ]); err != nil {
			return nil, err
		}
		seeded = append(seeded, typ)
	}
	return seeded, nil
}
