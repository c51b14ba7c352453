package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	"github.com/dalemusser/foodjournal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/foodjournal/internal/app/system/normalize"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxInQuery is the most ids ListByUIDs accepts in one call.
const MaxInQuery = 30

var (
	// ErrNotFound is returned when no profile exists for the uid.
	ErrNotFound = errors.New("profile not found")
	// ErrTooManyIDs is returned when ListByUIDs is given more than MaxInQuery ids.
	ErrTooManyIDs = fmt.Errorf("at most %d ids per membership query", MaxInQuery)
	// ErrDisplayNameRequired is returned when a display name is blank after cleaning.
	ErrDisplayNameRequired = errors.New("display name is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// Get loads a profile by uid.
func (s *Store) Get(ctx context.Context, uid string) (models.Profile, error) {
	var p models.Profile
	if err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}

// Prepare normalizes a profile for a full write. It is shared with the
// in-memory store so both backends store identical documents.
func Prepare(p models.Profile, now time.Time) (models.Profile, error) {
	name, err := CleanDisplayName(p.DisplayName)
	if err != nil {
		return models.Profile{}, err
	}
	p.Email = normalize.Email(p.Email)
	p.DisplayName = name
	p.DisplayNameCI = text.Fold(p.DisplayName)
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return p, nil
}

// Put overwrites the whole profile document. It is used at account
// creation and when re-creating a missing profile.
func (s *Store) Put(ctx context.Context, p models.Profile) (models.Profile, error) {
	p, err := Prepare(p, time.Now().UTC())
	if err != nil {
		return models.Profile{}, err
	}
	_, err = s.c.ReplaceOne(ctx, bson.M{"_id": p.UID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// SelfUpdate holds the fields a user may change on their own profile.
// Nil fields are left untouched. Role and group assignment are not here
// on purpose: only the membership protocol writes them.
type SelfUpdate struct {
	DisplayName       *string
	NotificationToken *string // empty string clears the token
}

// UpdateSelf applies a SelfUpdate.
func (s *Store) UpdateSelf(ctx context.Context, uid string, upd SelfUpdate) error {
	set, err := selfUpdateFields(upd)
	if err != nil {
		return err
	}
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func selfUpdateFields(upd SelfUpdate) (bson.M, error) {
	set := bson.M{}
	if upd.DisplayName != nil {
		name, err := CleanDisplayName(*upd.DisplayName)
		if err != nil {
			return nil, err
		}
		set["display_name"] = name
		set["display_name_ci"] = text.Fold(name)
	}
	if upd.NotificationToken != nil {
		if *upd.NotificationToken == "" {
			set["notification_token"] = nil
		} else {
			set["notification_token"] = *upd.NotificationToken
		}
	}
	return set, nil
}

// CleanDisplayName strips markup and extra whitespace from a display name.
func CleanDisplayName(s string) (string, error) {
	name := normalize.Name(htmlsanitize.PlainText(s))
	if name == "" {
		return "", ErrDisplayNameRequired
	}
	return name, nil
}

// ListUnassigned returns every profile whose group_id is null, ordered by
// display name.
func (s *Store) ListUnassigned(ctx context.Context) ([]models.Profile, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "display_name_ci", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, bson.M{"group_id": nil}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Profile{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUIDs returns the profiles for up to MaxInQuery uids in a single
// $in query. Missing uids are skipped.
func (s *Store) ListByUIDs(ctx context.Context, uids []string) ([]models.Profile, error) {
	if len(uids) == 0 {
		return []models.Profile{}, nil
	}
	if len(uids) > MaxInQuery {
		return nil, ErrTooManyIDs
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Profile{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyMembership writes group_id and role together. It is called from
// inside a transaction by the committer. A guard that does not match
// (or a missing profile) yields batch.ErrConflict.
func (s *Store) ApplyMembership(ctx context.Context, op batch.PatchMembership) error {
	filter := bson.M{"_id": op.UID}
	if op.Guard != nil {
		filter["group_id"] = op.Guard.GroupID
	}
	var gid any
	if op.GroupID != nil {
		gid = *op.GroupID
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"group_id":   gid,
		"role":       op.Role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("profile %s: %w", op.UID, batch.ErrConflict)
	}
	return nil
}
