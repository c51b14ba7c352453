package groupstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	"github.com/dalemusser/foodjournal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/foodjournal/internal/app/system/normalize"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound     = errors.New("group not found")
	ErrNameRequired = errors.New("group name is required")
	ErrDuplicateID  = errors.New("a group with this id already exists")
	errMixedSets    = errors.New("cannot add to and remove from the same set in one update")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// NewID returns a fresh group id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// CleanName strips markup and extra whitespace from a group name.
func CleanName(s string) (string, error) {
	name := normalize.Name(htmlsanitize.PlainText(s))
	if name == "" {
		return "", ErrNameRequired
	}
	return name, nil
}

// Prepare fills derived fields on a new group.
func Prepare(g models.Group, now time.Time) (models.Group, error) {
	name, err := CleanName(g.Name)
	if err != nil {
		return models.Group{}, err
	}
	if g.ID == "" {
		g.ID = NewID()
	}
	g.Name = name
	g.NameCI = text.Fold(name)
	if g.AdminIDs == nil {
		g.AdminIDs = []string{}
	}
	if g.MemberIDs == nil {
		g.MemberIDs = []string{}
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	return g, nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// ApplyCreate inserts a prepared group. Called inside a transaction.
func (s *Store) ApplyCreate(ctx context.Context, g models.Group) error {
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

// ApplySets updates member_ids and admin_ids with $addToSet / $pull.
// The full arrays are never read back and rewritten, so concurrent adds
// and removes on different users do not lose each other's changes.
func (s *Store) ApplySets(ctx context.Context, op batch.UpdateGroupSets) error {
	update, err := setsUpdate(op)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": op.GroupID}
	if g := op.Guard; g != nil {
		if g.RequireMember != "" {
			filter["member_ids"] = g.RequireMember
		}
		if g.KeepAdminBesides != "" {
			filter["admin_ids"] = bson.M{"$elemMatch": bson.M{"$ne": g.KeepAdminBesides}}
		}
	}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("group %s: %w", op.GroupID, batch.ErrConflict)
	}
	return nil
}

func setsUpdate(op batch.UpdateGroupSets) (bson.M, error) {
	if (len(op.AddMembers) > 0 && len(op.RemoveMembers) > 0) ||
		(len(op.AddAdmins) > 0 && len(op.RemoveAdmins) > 0) {
		return nil, errMixedSets
	}

	add := bson.M{}
	if len(op.AddMembers) > 0 {
		add["member_ids"] = bson.M{"$each": op.AddMembers}
	}
	if len(op.AddAdmins) > 0 {
		add["admin_ids"] = bson.M{"$each": op.AddAdmins}
	}
	pull := bson.M{}
	if len(op.RemoveMembers) > 0 {
		pull["member_ids"] = bson.M{"$in": op.RemoveMembers}
	}
	if len(op.RemoveAdmins) > 0 {
		pull["admin_ids"] = bson.M{"$in": op.RemoveAdmins}
	}

	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if len(add) > 0 {
		update["$addToSet"] = add
	}
	if len(pull) > 0 {
		update["$pull"] = pull
	}
	return update, nil
}
