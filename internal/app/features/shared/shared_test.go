package shared

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/churchhub/internal/app/system/apierr"
	"github.com/dalemusser/churchhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecode(t *testing.T) {
	var v struct{ Name string }
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Choir"}`))
	if err := Decode(httptest.NewRecorder(), r, &v); err != nil || v.Name != "Choir" {
		t.Fatalf("Decode = %v, %+v", err, v)
	}
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	if err := Decode(httptest.NewRecorder(), r, &v); !apierr.IsKind(err, apierr.KindValidation) {
		t.Errorf("bad JSON: %v", err)
	}
	r = httptest.NewRequest("POST", "/", strings.NewReader(``))
	if err := Decode(httptest.NewRecorder(), r, &v); err == nil {
		t.Error("empty body should fail")
	}
}

func TestIDParam(t *testing.T) {
	id := primitive.NewObjectID()
	r := testutil.WithChiURLParam(httptest.NewRequest("GET", "/", nil), "id", id.Hex())
	got, err := IDParam(r, "id")
	if err != nil || got != id {
		t.Errorf("IDParam = %v, %v", got, err)
	}
	r = testutil.WithChiURLParam(httptest.NewRequest("GET", "/", nil), "id", "nope")
	if _, err := IDParam(r, "id"); !apierr.IsKind(err, apierr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestOptionalAndRequiredID(t *testing.T) {
	if id, err := OptionalID("", "unitId"); id != nil || err != nil {
		t.Errorf("empty = %v, %v", id, err)
	}
	if _, err := RequiredID("", "unitId"); err == nil || err.Error() != "unitId required" {
		t.Errorf("required = %v", err)
	}
	if _, err := OptionalID("zzz", "unitId"); err == nil {
		t.Error("expected invalid id error")
	}
}

func TestParseTimeAndRange(t *testing.T) {
	got, err := ParseTime("2026-02-01")
	if err != nil || !got.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, %v", got, err)
	}
	if _, err := ParseTime("2026-02-01T10:00:00+01:00"); err != nil {
		t.Errorf("rfc3339: %v", err)
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error")
	}

	r := httptest.NewRequest("GET", "/?from=2026-01-01&to=2026-01-31", nil)
	from, to, err := DateRange(r)
	if err != nil {
		t.Fatal(err)
	}
	if from.Day() != 1 || to.Day() != 31 || to.Hour() != 23 {
		t.Errorf("range = %v .. %v", from, to)
	}
}
