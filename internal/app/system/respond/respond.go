// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Item writes {"ok":true,"item":item}.
func Item(w http.ResponseWriter, status int, item any) {
	JSON(w, status, map[string]any{"ok": true, "item": item})
}

// Fields writes {"ok":true} merged with fields.
func Fields(w http.ResponseWriter, status int, fields map[string]any) {
	out := map[string]any{"ok": true}
	for k, v := range fields {
		out[k] = v
	}
	JSON(w, status, out)
}

// OK writes {"ok":true}.
func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Page describes a page of a list result.
type Page struct {
	Total int64
	Page  int
	Limit int
}

// List writes {"ok":true,"items":[...],"total","page","pages"}.
func List[T any](w http.ResponseWriter, items []T, p Page) {
	if items == nil {
		items = []T{}
	}
	pages := 1
	if p.Limit > 0 {
		pages = int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
		if pages == 0 {
			pages = 1
		}
	}
	JSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"items": items,
		"total": p.Total,
		"page":  p.Page,
		"pages": pages,
	})
}

// Error renders err as {"ok":false,"error":msg[,"code":code]}. Errors that
// are not *apierr.Error become a generic 500 and are logged with detail.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	e, ok := apierr.As(err)
	if !ok {
		e = apierr.Internal(err)
	}
	status := e.Status()
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.Int("status", status),
			zap.String("code", e.Code),
			zap.Error(err))
	}
	body := map[string]any{"ok": false, "error": e.Message}
	if e.Code != "" {
		body["code"] = e.Code
	}
	JSON(w, status, body)
}
