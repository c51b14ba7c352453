// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// index is one desired index. Names are fixed so a changed definition is
// detected and rebuilt on the next start.
type index struct {
	name   string
	keys   bson.D
	unique bool
}

// desired lists the indexes per collection. audit_events indexes belong to
// the audit store (audit.Store.EnsureIndexes).
var desired = []struct {
	coll    string
	indexes []index
}{
	// Unassigned-users query: group_id == null, sorted by name.
	{"profiles", []index{
		{name: "idx_profiles_group_nameci", keys: bson.D{{Key: "group_id", Value: 1}, {Key: "display_name_ci", Value: 1}}},
	}},
	// Group names are not unique; member_ids serves the reverse lookup
	// from a user to the groups listing them.
	{"groups", []index{
		{name: "idx_groups_nameci", keys: bson.D{{Key: "name_ci", Value: 1}}},
		{name: "idx_groups_members", keys: bson.D{{Key: "member_ids", Value: 1}}},
	}},
	// Group timeline, newest first.
	{"events", []index{
		{name: "idx_events_group_ts", keys: bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	}},
	{"login_records", []index{
		{name: "idx_logins_uid_created", keys: bson.D{{Key: "uid", Value: 1}, {Key: "created_at", Value: -1}}},
	}},
}

// EnsureAll is called at startup and is idempotent. Errors are aggregated
// so every problem is visible at once.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, d := range desired {
		if err := ensure(ctx, db.Collection(d.coll), d.indexes); err != nil {
			problems = append(problems, d.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique,omitempty"`
}

func signature(keys bson.D) string {
	var b strings.Builder
	for i, kv := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%s:%v", kv.Key, kv.Value)
	}
	return b.String()
}

// current maps key signature to the index holding it. A listing failure
// yields an empty map and every index is (re)created.
func current(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	var all []existingIndex
	if err := cur.All(ctx, &all); err != nil {
		zap.L().Warn("list indexes failed", zap.String("collection", coll.Name()), zap.Error(err))
		return out
	}
	for _, ix := range all {
		out[signature(ix.Key)] = ix
	}
	return out
}

func ensure(ctx context.Context, coll *mongo.Collection, want []index) error {
	var errs []string
	have := current(ctx, coll)

	for _, w := range want {
		sig := signature(w.keys)
		log := zap.L().With(zap.String("collection", coll.Name()), zap.String("name", w.name), zap.String("keys", sig))

		if ex, ok := have[sig]; ok {
			if ex.Name == w.name && ex.Unique == w.unique {
				log.Debug("index up to date")
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop stale index failed", zap.String("stale", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s: drop %s: %v", w.name, ex.Name, err))
				continue
			}
			log.Info("dropped stale index", zap.String("stale", ex.Name))
		}

		start := time.Now()
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    w.keys,
			Options: options.Index().SetName(w.name).SetUnique(w.unique),
		})
		switch {
		case err == nil:
			log.Info("index ensured", zap.Bool("unique", w.unique), zap.Duration("took", time.Since(start)))
		case w.unique && wafflemongo.IsDup(err):
			log.Warn("unique index blocked by duplicates", zap.Error(err))
			errs = append(errs, w.name+": duplicates present")
		default:
			log.Warn("index ensure failed", zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s: %v", w.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
