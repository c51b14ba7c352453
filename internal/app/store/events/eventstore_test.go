package eventstore_test

import (
	"errors"
	"testing"
	"time"

	eventstore "github.com/dalemusser/foodjournal/internal/app/store/events"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/dalemusser/foodjournal/internal/testutil"
)

func TestPrepare_RequiresGroup(t *testing.T) {
	_, err := eventstore.Prepare(models.Event{Type: models.EventFoodIntake}, time.Now())
	if !errors.Is(err, eventstore.ErrGroupRequired) {
		t.Errorf("expected ErrGroupRequired, got %v", err)
	}
}

func TestStore_LogAndListRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := eventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, typ := range []models.EventType{models.EventFoodIntake, models.EventFridgeStorage, models.EventFoodIntake} {
		_, err := store.Log(ctx, models.Event{
			GroupID:   "g1",
			Type:      typ,
			UserID:    "u1",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	if _, err := store.Log(ctx, models.Event{GroupID: "g2", Type: models.EventFoodIntake, UserID: "u9"}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	got, err := store.ListRecent(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if !got[0].Timestamp.After(got[1].Timestamp) {
		t.Errorf("expected newest first: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
	if got[0].Type != models.EventFoodIntake {
		t.Errorf("newest event type: got %s", got[0].Type)
	}
}
