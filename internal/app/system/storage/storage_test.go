package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	k := NewKey("/uploads/", `C:\photos\Baptism.JPG`, now)
	if !strings.HasPrefix(k, "uploads/2026/03/") {
		t.Errorf("key = %q, want uploads/2026/03/ prefix", k)
	}
	if !strings.HasSuffix(k, ".jpg") {
		t.Errorf("key = %q, want .jpg suffix", k)
	}
	if NewKey("", "a.png", now) == NewKey("", "a.png", now) {
		t.Error("keys should be unique")
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a/b.png", "a/b.png", false},
		{"/a/./b.png", "a/b.png", false},
		{"../../etc/passwd", "etc/passwd", false},
		{"", "", true},
		{"/", "", true},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("cleanKey(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("cleanKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKind(t *testing.T) {
	tests := map[string]string{
		"image/png":       "image",
		"application/pdf": "file",
		"text/plain":      "file",
		"video/mp4":       "other",
		"":                "other",
	}
	for ct, want := range tests {
		if got := Kind(ct); got != want {
			t.Errorf("Kind(%q) = %q, want %q", ct, got, want)
		}
	}
}

func TestLocal_PutDelete(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "/files/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	url, err := l.Put(ctx, "2026/03/x.txt", strings.NewReader("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "/files/2026/03/x.txt" {
		t.Errorf("url = %q", url)
	}
	b, err := os.ReadFile(filepath.Join(root, "2026", "03", "x.txt"))
	if err != nil || string(b) != "hello" {
		t.Fatalf("read back = %q, %v", b, err)
	}

	if err := l.Delete(ctx, "2026/03/x.txt"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := l.Delete(ctx, "2026/03/x.txt"); err != nil {
		t.Errorf("Delete missing should be nil, got %v", err)
	}
}

func TestLocal_PutCanceled(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Put(ctx, "a.txt", strings.NewReader("x"), ""); err == nil {
		t.Error("expected error for canceled context")
	}
}
