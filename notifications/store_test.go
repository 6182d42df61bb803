package notifications

import (
	"testing"
	"time"

	"github.com/openlar/openlar/models"
)

func TestStoreInsertAndGet(t *testing.T) {
	e := newTestEngine(t)

	n := &models.Notification{
		Message: "Appointment scheduled for Maria",
		Kind:    models.KindAppointment,
	}
	if err := e.store.Insert(n); err != nil {
		t.Fatal(err)
	}
	if n.ID == "" {
		t.Error("Insert did not assign an id")
	}
	if n.Status != models.StatusPending {
		t.Errorf("Expected status %s, got %s", models.StatusPending, n.Status)
	}

	loaded, err := e.store.Get(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Message != n.Message {
		t.Errorf("Expected message %q, got %q", n.Message, loaded.Message)
	}

	if _, err := e.store.Get("nonexistent"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStoreCompareAndSetStatus(t *testing.T) {
	e := newTestEngine(t)

	n := &models.Notification{Kind: models.KindAppointment}
	if err := e.store.Insert(n); err != nil {
		t.Fatal(err)
	}

	assignee := uint(7)
	swapped, err := e.store.CompareAndSetStatus(n.ID, models.StatusPending, models.StatusOngoing, &assignee)
	if err != nil {
		t.Fatal(err)
	}
	if !swapped {
		t.Fatal("Expected compare-and-set to succeed")
	}

	loaded, err := e.store.Get(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != models.StatusOngoing {
		t.Errorf("Expected status %s, got %s", models.StatusOngoing, loaded.Status)
	}
	if loaded.AssigneeID == nil || *loaded.AssigneeID != assignee {
		t.Error("Expected assignee to be set")
	}

	// The expected status no longer matches.
	swapped, err = e.store.CompareAndSetStatus(n.ID, models.StatusPending, models.StatusOngoing, &assignee)
	if err != nil {
		t.Fatal(err)
	}
	if swapped {
		t.Error("Expected compare-and-set to miss on a stale expected status")
	}

	// Returning to pending clears the assignee.
	swapped, err = e.store.CompareAndSetStatus(n.ID, models.StatusOngoing, models.StatusPending, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !swapped {
		t.Fatal("Expected compare-and-set to succeed")
	}
	loaded, err = e.store.Get(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AssigneeID != nil {
		t.Error("Expected assignee to be cleared")
	}
}

func TestStoreCancelActive(t *testing.T) {
	e := newTestEngine(t)

	n := &models.Notification{Kind: models.KindShiftChange}
	if err := e.store.Insert(n); err != nil {
		t.Fatal(err)
	}

	swapped, err := e.store.CancelActive(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !swapped {
		t.Error("Expected cancel of an active record to succeed")
	}

	// Second cancel is a no-op.
	swapped, err = e.store.CancelActive(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if swapped {
		t.Error("Expected cancel of a terminal record to be a no-op")
	}
}

func TestStoreActiveWithinWindow(t *testing.T) {
	e := newTestEngine(t)

	fresh := &models.Notification{Kind: models.KindAppointment}
	if err := e.store.Insert(fresh); err != nil {
		t.Fatal(err)
	}

	old := &models.Notification{
		Kind:      models.KindAppointment,
		CreatedAt: time.Now().Add(-25 * time.Hour),
	}
	if err := e.store.Insert(old); err != nil {
		t.Fatal(err)
	}

	shift := &models.Notification{Kind: models.KindShiftChange}
	if err := e.store.Insert(shift); err != nil {
		t.Fatal(err)
	}

	list, err := e.store.ActiveWithinWindow(models.FanoutKinds, time.Now().Add(-RetentionWindow))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 notification in window, got %d", len(list))
	}
	if list[0].ID != fresh.ID {
		t.Error("Expected the fresh notification in the window")
	}
}

func TestStoreActiveForRecipient(t *testing.T) {
	e := newTestEngine(t)

	userA, userB := uint(1), uint(2)
	for _, recipient := range []uint{userA, userA, userB} {
		r := recipient
		n := &models.Notification{Kind: models.KindRelativeMessage, RecipientID: &r}
		if err := e.store.Insert(n); err != nil {
			t.Fatal(err)
		}
	}

	list, err := e.store.ActiveForRecipient(models.KindRelativeMessage, userA)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 notifications for user %d, got %d", userA, len(list))
	}
}
