// internal/app/features/uploads/handler.go
package uploads

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/auth"
	"github.com/dalemusser/churchhub/internal/app/system/respond"
	"github.com/dalemusser/churchhub/internal/app/system/storage"
	"github.com/dalemusser/churchhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultMaxBytes caps an upload when no limit is configured.
const DefaultMaxBytes = 10 << 20

// Handler accepts signed-in uploads and stores them in the configured
// backend.
type Handler struct {
	Files    storage.Store
	MaxBytes int64
	Log      *zap.Logger
}

func NewHandler(files storage.Store, maxBytes int64, logger *zap.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{Files: files, MaxBytes: maxBytes, Log: logger}
}

// Routes mounts uploads (typically at "/api/uploads").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Post("/", h.HandleUpload)
	})
	return r
}

// HandleUpload stores the multipart field "file" and returns its URL and
// attachment kind.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, h.Log, apierr.Validation("file too large"))
			return
		}
		respond.Error(w, h.Log, apierr.Validation("multipart form with a file field required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, h.Log, apierr.Validation("file required"))
		return
	}
	defer f.Close()
	if hdr.Size > h.MaxBytes {
		respond.Error(w, h.Log, apierr.Validation("file too large"))
		return
	}

	contentType := hdr.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniff(f)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "upload")
	defer cancel()
	url, err := h.Files.Put(ctx, storage.NewKey("uploads", hdr.Filename, time.Now()), f, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			respond.Error(w, h.Log, apierr.Validation(err.Error()))
			return
		}
		respond.Error(w, h.Log, apierr.Upstream("Upload failed", "storage", err))
		return
	}
	respond.Fields(w, http.StatusCreated, map[string]any{
		"url":          url,
		"kind":         storage.Kind(contentType),
		"content_type": contentType,
		"size":         hdr.Size,
		"name":         hdr.Filename,
	})
}

// sniff detects the type from the first bytes and rewinds the file.
func sniff(f io.ReadSeeker) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "application/octet-stream"
	}
	ct := http.DetectContentType(buf[:n])
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.TrimSpace(ct)
}
