package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openlar/openlar/events"
	"github.com/openlar/openlar/models"
	"github.com/openlar/openlar/notifications"
	"github.com/openlar/openlar/repo"
	"gorm.io/gorm"
)

const (
	managerToken  = "manager-token"
	relativeToken = "relative-token"
)

// testGateway bundles a gateway serving from an httptest server together
// with the engine pieces the tests drive directly.
type testGateway struct {
	ts      *httptest.Server
	gateway *Gateway
	db      repo.Database
	store   *notifications.Store
	cache   *notifications.WorkingSet
	state   *notifications.StateMachine
	queries *notifications.Queries
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	users := []*models.User{
		{ID: 1, Name: "Ana", Email: "ana@openlar.test", Role: models.RoleManager},
		{ID: 2, Name: "Rita", Email: "rita@openlar.test", Role: models.RoleRelative},
	}
	sessions := []*models.Session{
		{Token: managerToken, UserID: 1, ExpiresAt: time.Now().Add(time.Hour)},
		{Token: relativeToken, UserID: 2, ExpiresAt: time.Now().Add(time.Hour)},
	}
	err = db.Update(func(tx *gorm.DB) error {
		for _, u := range users {
			if err := tx.Save(u).Error; err != nil {
				return err
			}
		}
		for _, s := range sessions {
			if err := tx.Save(s).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	store := notifications.NewStore(db)
	cache := notifications.NewWorkingSet()
	bus := events.NewBus()
	state := notifications.NewStateMachine(store, db, bus, cache)
	queries := notifications.NewQueries(store)

	gateway := NewGateway(db, state, cache, queries, &GatewayConfig{})
	ts := httptest.NewServer(gateway.handler)
	t.Cleanup(ts.Close)
	t.Cleanup(gateway.hub.stop)

	return &testGateway{
		ts:      ts,
		gateway: gateway,
		db:      db,
		store:   store,
		cache:   cache,
		state:   state,
		queries: queries,
	}
}
