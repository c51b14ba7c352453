package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit caps ListRecent when the caller passes a non-positive limit.
const DefaultLimit = 50

var ErrGroupRequired = errors.New("event must belong to a group")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// Prepare assigns an id and timestamp when missing.
func Prepare(e models.Event, now time.Time) (models.Event, error) {
	if e.GroupID == "" {
		return models.Event{}, ErrGroupRequired
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e, nil
}

// Log appends an event to its group's timeline.
func (s *Store) Log(ctx context.Context, e models.Event) (models.Event, error) {
	e, err := Prepare(e, time.Now().UTC())
	if err != nil {
		return models.Event{}, err
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// ListRecent returns a group's events, newest first.
func (s *Store) ListRecent(ctx context.Context, groupID string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
