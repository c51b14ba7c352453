package txn_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/foodjournal/internal/app/system/txn"
	"github.com/dalemusser/foodjournal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset by peer"), false},
		{"code 20", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"}, true},
		{"code 51", mongo.CommandError{Code: 51}, true},
		{"code 263", mongo.CommandError{Code: 263}, true},
		{"other code", mongo.CommandError{Code: 112, Message: "WriteConflict in transaction session"}, false},
		{"wrapped code", fmt.Errorf("commit batch: %w", mongo.CommandError{Code: 20}), true},
		{"two keywords", errors.New("Transaction requires a REPLICA SET"), true},
		{"one keyword", errors.New("transaction aborted"), false},
		{"session state", errors.New("cannot start transaction in current session state"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_CommitsAndRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := db.CreateCollection(ctx, "txn_scratch"); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	coll := db.Collection("txn_scratch")

	err := txn.Run(ctx, db.Client(), func(sc mongo.SessionContext) error {
		_, err := coll.InsertOne(sc, bson.M{"_id": "kept"})
		return err
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	errAbort := errors.New("abort")
	err = txn.Run(ctx, db.Client(), func(sc mongo.SessionContext) error {
		if _, err := coll.InsertOne(sc, bson.M{"_id": "dropped"}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected only the committed document, got %d", n)
	}
}
