// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Index names referenced by stores when translating duplicate-key errors.
const (
	UsersPhone         = "uniq_users_phone"
	UsersEmail         = "uniq_users_email_ci"
	MembershipsKey     = "uniq_memberships_user_key"
	MembershipsLeader  = "uniq_memberships_unit_leader"
	UnitsAttendance    = "uniq_units_attendance_per_church"
	FinanceCategoryKey = "uniq_fincat_unit_type_name"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, set := range collectionSets {
		if err := ensureIndexSet(ctx, db.Collection(set.name), set.models()); err != nil {
			problems = append(problems, set.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func duplicateHint(coll, sig string) string {
	field := strings.SplitN(sig, ":", 2)[0]
	return fmt.Sprintf(": duplicates exist on %s.%s. Example finder:\n"+
		`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
		coll, field, coll, field)
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			defer cur.Close(ctx)
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// --- Name alignment: if the name differs, drop & recreate with the desired name.
				if desiredName != "" && ex.Name != desiredName {
					zap.L().Info("renaming index to align with desired name",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName),
						zap.String("keys", desiredSig))

					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						zap.L().Warn("drop existing index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", ex.Name),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						zap.L().Warn("create index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					zap.L().Info("index renamed",
						zap.String("collection", coll.Name()),
						zap.String("name", desiredName),
						zap.String("keys", desiredSig),
						zap.String("took", time.Since(start).String()))
					continue
				}

				// Names aligned (or we don't care) → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Bool("unique", ex.Unique != nil && *ex.Unique),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), desiredName, duplicateHint(coll.Name(), desiredSig)))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		if created, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				cur2, e2 := coll.Indexes().List(ctx)
				if e2 == nil {
					var match *existingIndex
					for cur2.Next(ctx) {
						var idx existingIndex
						if err := cur2.Decode(&idx); err != nil {
							zap.L().Warn("failed to decode existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.Error(err))
							continue
						}
						if keySig(idx.Key) == desiredSig {
							match = &idx
							break
						}
					}
					cur2.Close(ctx)
					if match != nil {
						if sameBoolPtr(desiredUnique, match.Unique) {
							// Optional: we could perform the same rename logic here, but it's
							// rare to hit this branch immediately after CreateOne().
							zap.L().Info("reusing existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.String("keys", desiredSig),
								zap.Bool("unique", match.Unique != nil && *match.Unique),
								zap.String("took", time.Since(start).String()))
							continue
						}
						if _, dropErr := coll.Indexes().DropOne(ctx, match.Name); dropErr != nil {
							zap.L().Warn("failed to drop conflicting index",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.Error(dropErr))
						}
						if _, e3 := coll.Indexes().CreateOne(ctx, m); e3 != nil {
							if isDuplicateKeyErr(e3) && desiredUnique != nil && *desiredUnique {
								errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), desiredName, duplicateHint(coll.Name(), desiredSig)))
							} else {
								errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, e3))
							}
							continue
						}
						zap.L().Info("index dropped and recreated (post-conflict)",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.String("keys", desiredSig),
							zap.Bool("unique", desiredUnique != nil && *desiredUnique),
							zap.String("took", time.Since(start).String()))
						continue
					}
				}

				zap.L().Warn("index ensure failed",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.Bool("unique", desiredUnique != nil && *desiredUnique),
					zap.String("took", time.Since(start).String()),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}

			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		} else {
			zap.L().Info("index ensured",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("created_name", created),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

type indexSet struct {
	name   string
	models func() []mongo.IndexModel
}

func idx(name string, keys ...string) mongo.IndexModel {
	d := bson.D{}
	for _, k := range keys {
		dir := 1
		if strings.HasPrefix(k, "-") {
			dir, k = -1, k[1:]
		}
		d = append(d, bson.E{Key: k, Value: dir})
	}
	return mongo.IndexModel{Keys: d, Options: options.Index().SetName(name)}
}

func unique(m mongo.IndexModel) mongo.IndexModel {
	m.Options.SetUnique(true)
	return m
}

func partial(m mongo.IndexModel, filter bson.M) mongo.IndexModel {
	m.Options.SetPartialFilterExpression(filter)
	return m
}

var collectionSets = []indexSet{
	{"users", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			unique(idx(UsersPhone, "phone")),
			// email is optional; only non-empty values must be unique
			partial(unique(idx(UsersEmail, "email_ci")), bson.M{"email_ci": bson.M{"$gt": ""}}),
			idx("idx_users_approved_pending", "approved", "super_admin_pending", "-created_at"),
			idx("idx_users_church", "church_id", "full_name_ci"),
		}
	}},
	{"memberships", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			unique(idx(MembershipsKey, "user_id", "key")),
			// one leader per unit, enforced by the database
			partial(unique(idx(MembershipsLeader, "unit_id")), bson.M{"role": "UnitLeader"}),
			idx("idx_memberships_unit_role", "unit_id", "role", "created_at"),
			idx("idx_memberships_user_created", "user_id", "created_at", "_id"),
			idx("idx_memberships_role_church", "role", "church_id", "ministry_name_ci"),
		}
	}},
	{"organizations", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			unique(idx("uniq_orgs_slug", "slug")),
			idx("idx_orgs_nameci__id", "name_ci", "_id"),
		}
	}},
	{"churches", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			unique(idx("uniq_churches_slug", "slug")),
			unique(idx("uniq_churches_org_nameci", "organization_id", "name_ci")),
		}
	}},
	{"units", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			unique(idx("uniq_units_nameci", "name_ci")),
			partial(unique(idx(UnitsAttendance, "church_id")), bson.M{"attendance_taking": true}),
			idx("idx_units_church_ministry", "church_id", "ministry_name_ci", "name_ci"),
		}
	}},
	{"access_codes", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			unique(idx("uniq_access_codes_code", "code")),
			idx("idx_access_codes_expires", "expires_at"),
		}
	}},
	{"mail_otps", func() []mongo.IndexModel {
		ttl := idx("idx_mail_otps_expires_ttl", "expires_at")
		ttl.Options.SetExpireAfterSeconds(0)
		return []mongo.IndexModel{ttl, idx("idx_mail_otps_email", "email")}
	}},
	{"finance", func() []mongo.IndexModel {
		return []mongo.IndexModel{idx("idx_finance_unit_date", "unit_id", "-date", "-_id")}
	}},
	{"finance_categories", func() []mongo.IndexModel {
		return []mongo.IndexModel{unique(idx(FinanceCategoryKey, "unit_id", "type", "name_lower"))}
	}},
	{"attendance", func() []mongo.IndexModel {
		return []mongo.IndexModel{idx("idx_attendance_unit_date", "unit_id", "-date")}
	}},
	{"events", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			idx("idx_events_date", "date"),
			idx("idx_events_church_unit_date", "church_id", "unit_id", "date"),
		}
	}},
	{"announcements", func() []mongo.IndexModel {
		return []mongo.IndexModel{idx("idx_announcements_church_pinned", "church_id", "-pinned", "-created_at")}
	}},
	{"messages", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			idx("idx_messages_to", "to", "-created_at"),
			idx("idx_messages_to_unit", "to_unit", "-created_at"),
			idx("idx_messages_from_to", "from", "to", "-created_at"),
		}
	}},
	{"device_tokens", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			unique(idx("uniq_device_tokens_token", "token")),
			idx("idx_device_tokens_user", "user_id"),
		}
	}},
	{"work_plans", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			idx("idx_work_plans_unit_created", "unit_id", "-created_at"),
			idx("idx_work_plans_owner_created", "owner_id", "-created_at"),
			idx("idx_work_plans_status_end", "status", "end_date"),
		}
	}},
	{"legal_pages", func() []mongo.IndexModel {
		return []mongo.IndexModel{unique(idx("uniq_legal_pages_type", "type"))}
	}},
	{"support_tickets", func() []mongo.IndexModel {
		return []mongo.IndexModel{idx("idx_support_status_created", "status", "-created_at")}
	}},
	{"testimonies", func() []mongo.IndexModel {
		return []mongo.IndexModel{idx("idx_testimonies_approved_created", "approved", "-created_at")}
	}},
	{"audit_events", func() []mongo.IndexModel {
		return []mongo.IndexModel{
			idx("idx_audit_timestamp", "-timestamp"),
			idx("idx_audit_church_timestamp", "church_id", "-timestamp"),
			idx("idx_audit_user_timestamp", "user_id", "-timestamp"),
			idx("idx_audit_category_type_timestamp", "category", "event_type", "-timestamp"),
		}
	}},
}

// RecordCollections are the unit-scoped record collections, which share
// one index layout.
var RecordCollections = []string{"souls", "invites", "achievements", "assists", "marriages", "recovered_addicts", "songs"}

func init() {
	for _, name := range RecordCollections {
		collectionSets = append(collectionSets, indexSet{name, func() []mongo.IndexModel {
			return []mongo.IndexModel{
				idx("idx_"+name+"_unit_created", "unit_id", "-created_at"),
				idx("idx_"+name+"_addedby_created", "added_by", "-created_at"),
			}
		}})
	}
}
