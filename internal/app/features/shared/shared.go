// Package shared holds request helpers used across the API features.
package shared

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	unitstore "github.com/dalemusser/churchhub/internal/app/store/units"
	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/app/system/authz"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// Decode reads a JSON body into v. Unknown fields are ignored.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.Validation("request body required")
		}
		return apierr.Validation("invalid JSON body")
	}
	return nil
}

// IDParam parses the named chi URL parameter as an ObjectID.
func IDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apierr.Validation("invalid " + name)
	}
	return id, nil
}

// OptionalID parses s when non-empty. field names the input in the error.
func OptionalID(s, field string) (*primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, apierr.Validation("invalid " + field)
	}
	return &id, nil
}

// RequiredID parses s, rejecting empty input.
func RequiredID(s, field string) (primitive.ObjectID, error) {
	id, err := OptionalID(s, field)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if id == nil {
		return primitive.NilObjectID, apierr.Validation(field + " required")
	}
	return *id, nil
}

// ParseTime accepts RFC 3339 timestamps and plain 2006-01-02 dates (UTC).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, apierr.Validation("invalid date " + s)
}

// DateRange reads the from and to query parameters. A date-only to value
// includes the whole day.
func DateRange(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		t, err := ParseTime(s)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := ParseTime(s)
		if err != nil {
			return nil, nil, err
		}
		if len(strings.TrimSpace(s)) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	return from, to, nil
}

// DateOr parses s, or returns def when s is empty.
func DateOr(s string, def time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return ParseTime(s)
}

// UnitGetter loads a unit by id, normally through the unit cache.
type UnitGetter interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Unit, error)
}

// LoadUnit fetches a unit and its scope descriptor. A missing unit is a 404.
func LoadUnit(ctx context.Context, units UnitGetter, id primitive.ObjectID) (*models.Unit, *authz.UnitRef, error) {
	u, err := units.Get(ctx, id)
	if errors.Is(err, unitstore.ErrNotFound) {
		return nil, nil, apierr.NotFound("Unit not found")
	}
	if err != nil {
		return nil, nil, err
	}
	return u, authz.UnitRefOf(u), nil
}

// StoredUnitRef describes the unit a stored document points at. A unit that
// was removed yields an id-only ref, so only global SuperAdmins and the
// document's owner still reach the document.
func StoredUnitRef(ctx context.Context, units UnitGetter, id primitive.ObjectID) (*authz.UnitRef, error) {
	u, err := units.Get(ctx, id)
	if errors.Is(err, unitstore.ErrNotFound) {
		return &authz.UnitRef{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	return authz.UnitRefOf(u), nil
}

// TargetUnit picks the unit a write applies to: the id given in the body,
// or the caller's resolved unit when the body names none.
func TargetUnit(ctx context.Context, units UnitGetter, raw string, resolved *primitive.ObjectID) (*models.Unit, *authz.UnitRef, error) {
	id, err := OptionalID(raw, "unit_id")
	if err != nil {
		return nil, nil, err
	}
	if id == nil {
		id = resolved
	}
	if id == nil {
		return nil, nil, apierr.Validation("unit_id required")
	}
	return LoadUnit(ctx, units, *id)
}
