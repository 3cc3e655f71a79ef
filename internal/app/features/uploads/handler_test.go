package uploads_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/churchhub/internal/app/features/uploads"
	"github.com/dalemusser/churchhub/internal/app/system/storage"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/churchhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T, max int64) (chi.Router, string) {
	t.Helper()
	root := t.TempDir()
	files, err := storage.NewLocal(root, "/files")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	r := chi.NewRouter()
	r.Mount("/uploads", uploads.Routes(uploads.NewHandler(files, max, zap.NewNop())))
	return r, root
}

func multipartReq(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	req := httptest.NewRequest("POST", "/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func member() *models.User {
	return testutil.Member(models.Unit{ID: primitive.NewObjectID()})
}

func TestUpload(t *testing.T) {
	r, root := setup(t, 0)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.WithUser(multipartReq(t, "file", "Photo.PNG", png), member()))
	rec.AssertStatus(t, http.StatusCreated)

	var out struct {
		URL  string `json:"url"`
		Kind string `json:"kind"`
	}
	rec.Decode(t, &out)
	if !strings.HasPrefix(out.URL, "/files/uploads/") || !strings.HasSuffix(out.URL, ".png") {
		t.Errorf("url = %q", out.URL)
	}
	if out.Kind != "image" {
		t.Errorf("kind = %q, want image", out.Kind)
	}
	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(out.URL, "/files/"))))
	if err != nil || !bytes.Equal(got, png) {
		t.Errorf("stored file mismatch: %v", err)
	}
}

func TestUploadRejects(t *testing.T) {
	r, _ := setup(t, 16)

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, multipartReq(t, "file", "a.txt", []byte("hi")))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.WithUser(multipartReq(t, "other", "a.txt", []byte("hi")), member()))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "file required")

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.WithUser(multipartReq(t, "file", "big.txt", bytes.Repeat([]byte("x"), 64)), member()))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "file too large")
}
