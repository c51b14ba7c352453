package credentialstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/system/normalize"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound   = errors.New("credential not found")
	ErrEmailTaken = errors.New("an account with this email already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("credentials")}
}

// Create inserts a credential. Emails are unique because they are the _id.
func (s *Store) Create(ctx context.Context, cred models.Credential) error {
	cred.Email = normalize.Email(cred.Email)
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, cred); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetByEmail loads the credential for a (normalized) email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Credential, error) {
	var cred models.Credential
	err := s.c.FindOne(ctx, bson.M{"_id": normalize.Email(email)}).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Credential{}, ErrNotFound
		}
		return models.Credential{}, err
	}
	return cred, nil
}
