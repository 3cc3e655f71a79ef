package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantPage  int
		wantLimit int
		wantSkip  int64
	}{
		{"defaults", "/api/souls", 1, DefaultLimit, 0},
		{"explicit", "/api/souls?page=3&limit=10", 3, 10, 20},
		{"limit capped", "/api/souls?limit=5000", 1, MaxLimit, 0},
		{"garbage ignored", "/api/souls?page=abc&limit=-4", 1, DefaultLimit, 0},
		{"zero page", "/api/souls?page=0", 1, DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(httptest.NewRequest("GET", tt.target, nil))
			if p.Page != tt.wantPage || p.Limit != tt.wantLimit {
				t.Errorf("Parse = %+v, want page=%d limit=%d", p, tt.wantPage, tt.wantLimit)
			}
			if got := p.Skip(); got != tt.wantSkip {
				t.Errorf("Skip = %d, want %d", got, tt.wantSkip)
			}
		})
	}
}

func TestFindOptions(t *testing.T) {
	o := Params{Page: 2, Limit: 15}.FindOptions(Newest)
	if o.Skip == nil || *o.Skip != 15 {
		t.Errorf("skip = %v, want 15", o.Skip)
	}
	if o.Limit == nil || *o.Limit != 15 {
		t.Errorf("limit = %v, want 15", o.Limit)
	}
	if o.Sort == nil {
		t.Error("sort not applied")
	}
}
