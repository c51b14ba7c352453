package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/system/validators"
	"github.com/dalemusser/foodjournal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"profiles", "groups", "events", "credentials", "login_records", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		name       string
		collection string
		doc        bson.M
		wantErr    bool
	}{
		{"valid profile", "profiles", bson.M{"_id": "u1", "display_name": "Ann", "role": "member", "group_id": nil}, false},
		{"profile bad role", "profiles", bson.M{"_id": "u2", "display_name": "Ann", "role": "owner"}, true},
		{"profile blank name", "profiles", bson.M{"_id": "u3", "display_name": "  ", "role": "member"}, true},
		{"valid group", "groups", bson.M{"_id": "g1", "name": "Kitchen", "name_ci": "kitchen", "admin_ids": bson.A{"u1"}, "member_ids": bson.A{"u1"}}, false},
		{"group without admins", "groups", bson.M{"_id": "g2", "name": "Kitchen", "name_ci": "kitchen", "admin_ids": bson.A{}, "member_ids": bson.A{"u1"}}, true},
		{"valid event", "events", bson.M{"_id": "e1", "group_id": "g1", "user_id": "u1", "type": "FOOD_INTAKE", "timestamp": time.Now()}, false},
		{"event bad type", "events", bson.M{"_id": "e2", "group_id": "g1", "user_id": "u1", "type": "SNACK", "timestamp": time.Now()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.collection).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
