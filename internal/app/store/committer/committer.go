// Package committer applies membership batches to MongoDB inside a
// multi-document transaction.
package committer

import (
	"context"
	"fmt"

	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Mongo commits batches against the profiles and groups collections.
type Mongo struct {
	client   *mongo.Client
	profiles *profilestore.Store
	groups   *groupstore.Store
	log      *zap.Logger
}

// NewMongo builds a committer for db. The database's client must be
// connected to a replica set or sharded cluster.
func NewMongo(db *mongo.Database, logger *zap.Logger) *Mongo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mongo{
		client:   db.Client(),
		profiles: profilestore.New(db),
		groups:   groupstore.New(db),
		log:      logger,
	}
}

// Commit applies every op in b, or none of them.
func (m *Mongo) Commit(ctx context.Context, b *batch.Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}
	err := txn.Run(ctx, m.client, func(sc mongo.SessionContext) error {
		for i, op := range b.Ops() {
			if err := m.apply(sc, op); err != nil {
				return fmt.Errorf("op %d (%T): %w", i, op, err)
			}
		}
		return nil
	})
	if err != nil {
		m.log.Warn("batch commit failed", zap.Int("ops", b.Len()), zap.Error(err))
		return err
	}
	return nil
}

func (m *Mongo) apply(ctx context.Context, op batch.Op) error {
	switch o := op.(type) {
	case batch.CreateGroup:
		return m.groups.ApplyCreate(ctx, o.Group)
	case batch.PatchMembership:
		return m.profiles.ApplyMembership(ctx, o)
	case batch.UpdateGroupSets:
		return m.groups.ApplySets(ctx, o)
	default:
		return fmt.Errorf("unknown batch op %T", op)
	}
}
