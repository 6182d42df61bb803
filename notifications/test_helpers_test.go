package notifications

import (
	"testing"
	"time"

	"github.com/openlar/openlar/events"
	"github.com/openlar/openlar/models"
	"github.com/openlar/openlar/repo"
	"gorm.io/gorm"
)

// testEngine bundles a fully wired notification engine on top of an
// in-memory database.
type testEngine struct {
	db       repo.Database
	store    *Store
	cache    *WorkingSet
	bus      events.Bus
	state    *StateMachine
	ingestor *Ingestor
	queries  *Queries
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	cache := NewWorkingSet()
	bus := events.NewBus()
	state := NewStateMachine(store, db, bus, cache)
	return &testEngine{
		db:       db,
		store:    store,
		cache:    cache,
		bus:      bus,
		state:    state,
		ingestor: NewIngestor(store, cache, bus),
		queries:  NewQueries(store),
	}
}

func (e *testEngine) saveUser(t *testing.T, user *models.User) {
	t.Helper()
	err := e.db.Update(func(tx *gorm.DB) error {
		return tx.Save(user).Error
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (e *testEngine) activeCount(t *testing.T, kind models.NotificationKind) int {
	t.Helper()
	list, err := e.store.ActiveMatching(kind, nil)
	if err != nil {
		t.Fatal(err)
	}
	return len(list)
}

// waitForActive polls until exactly want active notifications of the kind
// exist or the deadline passes.
func (e *testEngine) waitForActive(t *testing.T, kind models.NotificationKind, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.activeCount(t, kind) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d active %s notifications, have %d", want, kind, e.activeCount(t, kind))
}

func snapshotContains(snapshot []models.Notification, id string) bool {
	for _, n := range snapshot {
		if n.ID == id {
			return true
		}
	}
	return false
}
