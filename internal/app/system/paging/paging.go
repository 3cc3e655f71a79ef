// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size when the request does not name one.
const DefaultLimit = 20

// MaxLimit caps the limit query parameter.
const MaxLimit = 100

// Params is a 1-based page with a bounded limit.
type Params struct {
	Page  int
	Limit int
}

// Parse reads page and limit from the query string. Missing or invalid
// values fall back to page 1 and DefaultLimit.
func Parse(r *http.Request) Params {
	return Params{
		Page:  positive(query.Get(r, "page"), 1),
		Limit: min(positive(query.Get(r, "limit"), DefaultLimit), MaxLimit),
	}
}

func positive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Skip is the number of documents before this page.
func (p Params) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// FindOptions applies skip, limit and sort to a Mongo find.
func (p Params) FindOptions(sort bson.D) *options.FindOptions {
	o := options.Find().SetSkip(p.Skip()).SetLimit(int64(p.Limit))
	if len(sort) > 0 {
		o.SetSort(sort)
	}
	return o
}

// Newest sorts by created_at descending with _id as the tie-break.
var Newest = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
