package notifications

import (
	"testing"
	"time"

	"github.com/openlar/openlar/models"
)

func pendingNotification(kind models.NotificationKind) models.Notification {
	return models.Notification{
		ID:        models.NewNotificationID(),
		Kind:      kind,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
}

func TestWorkingSetSubscribe(t *testing.T) {
	ws := NewWorkingSet()

	n := pendingNotification(models.KindAppointment)
	ws.Upsert(n)

	sub := ws.Subscribe()
	defer sub.Close()

	// The current snapshot is delivered immediately.
	snapshot := <-sub.Out()
	if len(snapshot) != 1 || snapshot[0].ID != n.ID {
		t.Fatal("Expected the current snapshot on subscribe")
	}

	n2 := pendingNotification(models.KindMedicamentDose)
	ws.Upsert(n2)

	snapshot = <-sub.Out()
	if len(snapshot) != 2 {
		t.Fatalf("Expected 2 notifications in the snapshot, got %d", len(snapshot))
	}
}

func TestWorkingSetCoalesces(t *testing.T) {
	ws := NewWorkingSet()
	sub := ws.Subscribe()
	defer sub.Close()

	// Drain the initial snapshot.
	<-sub.Out()

	// A slow subscriber misses intermediates but always gets the newest
	// snapshot.
	for i := 0; i < 10; i++ {
		ws.Upsert(pendingNotification(models.KindAppointment))
	}

	var last []models.Notification
	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-sub.Out():
			last = snap
			if len(last) == 10 {
				return
			}
		case <-deadline:
			t.Fatalf("Expected a snapshot with 10 notifications, last had %d", len(last))
		}
	}
}

func TestWorkingSetEligibility(t *testing.T) {
	ws := NewWorkingSet()

	// Recipient-scoped kinds do not participate in fan-out.
	shift := pendingNotification(models.KindShiftChange)
	ws.Upsert(shift)
	if len(ws.Snapshot()) != 0 {
		t.Error("Expected shift notices to stay out of the working set")
	}

	// Terminal records are removed.
	n := pendingNotification(models.KindAppointment)
	ws.Upsert(n)
	if len(ws.Snapshot()) != 1 {
		t.Fatal("Expected the pending notification in the working set")
	}
	n.Status = models.StatusDone
	ws.Upsert(n)
	if len(ws.Snapshot()) != 0 {
		t.Error("Expected the done notification to be removed")
	}

	// Records older than the retention window are ignored.
	old := pendingNotification(models.KindAppointment)
	old.CreatedAt = time.Now().Add(-25 * time.Hour)
	ws.Upsert(old)
	if len(ws.Snapshot()) != 0 {
		t.Error("Expected the expired notification to stay out of the working set")
	}
}

func TestWorkingSetReplaceOrders(t *testing.T) {
	ws := NewWorkingSet()

	newer := pendingNotification(models.KindAppointment)
	older := pendingNotification(models.KindMedicamentDose)
	older.CreatedAt = newer.CreatedAt.Add(-time.Hour)

	ws.Replace([]models.Notification{newer, older})

	snapshot := ws.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(snapshot))
	}
	if snapshot[0].ID != older.ID {
		t.Error("Expected the snapshot ordered oldest first")
	}
}

func TestWorkingSetHydrate(t *testing.T) {
	e := newTestEngine(t)

	fanout := &models.Notification{Kind: models.KindAppointment}
	if err := e.store.Insert(fanout); err != nil {
		t.Fatal(err)
	}
	scoped := &models.Notification{Kind: models.KindShiftChange}
	if err := e.store.Insert(scoped); err != nil {
		t.Fatal(err)
	}

	if err := e.cache.Hydrate(e.store); err != nil {
		t.Fatal(err)
	}

	snapshot := e.cache.Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != fanout.ID {
		t.Errorf("Expected only the fan-out notification after hydration, got %d records", len(snapshot))
	}
}
