// Package storage saves uploaded files and returns the URL they are served
// from.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists an object under key and returns its public URL.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("invalid storage key")

// NewKey builds an object key of the form prefix/2006/01/<uuid><ext>. The
// extension is taken from the original filename and lowercased.
func NewKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format("2006/01"), uuid.NewString()+ext)
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.HasPrefix(k, "..") {
		return "", ErrInvalidKey
	}
	return k, nil
}

// Kind classifies a content type as image, file or other, matching message
// attachment types.
func Kind(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "image"
	case ct == "application/pdf", strings.HasPrefix(ct, "text/"),
		strings.Contains(ct, "officedocument"), ct == "application/msword":
		return "file"
	default:
		return "other"
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
