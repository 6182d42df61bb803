package notifications

import (
	"sort"
	"sync"
	"time"

	"github.com/openlar/openlar/models"
)

// WorkingSet is the in-process snapshot of active notifications eligible
// for real-time fan-out. It always holds a complete, consistent snapshot;
// mutations replace the snapshot and publish it to all subscribers.
//
// Subscribers observe the latest snapshot plus all future ones. A
// subscriber that falls behind is caught up with the newest snapshot
// rather than a backlog of intermediate ones.
type WorkingSet struct {
	mtx           sync.Mutex
	notifications []models.Notification
	subs          map[*CacheSubscription]struct{}
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		subs: make(map[*CacheSubscription]struct{}),
	}
}

// CacheSubscription is a subscription to working-set snapshots.
type CacheSubscription struct {
	ch chan []models.Notification
	ws *WorkingSet
}

// Out returns the channel from which to consume snapshots.
func (s *CacheSubscription) Out() <-chan []models.Notification {
	return s.ch
}

// Close removes the subscription from the working set.
func (s *CacheSubscription) Close() error {
	s.ws.mtx.Lock()
	defer s.ws.mtx.Unlock()
	delete(s.ws.subs, s)
	return nil
}

// Subscribe registers a new subscriber. The current snapshot is delivered
// immediately.
func (w *WorkingSet) Subscribe() *CacheSubscription {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	sub := &CacheSubscription{
		ch: make(chan []models.Notification, 1),
		ws: w,
	}
	w.subs[sub] = struct{}{}
	sub.ch <- w.snapshotLocked()
	return sub
}

// Snapshot returns a copy of the current working set.
func (w *WorkingSet) Snapshot() []models.Notification {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.snapshotLocked()
}

// Replace swaps in a full snapshot, used on hydration and after the
// expiry sweep.
func (w *WorkingSet) Replace(list []models.Notification) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	w.notifications = make([]models.Notification, len(list))
	copy(w.notifications, list)
	sort.SliceStable(w.notifications, func(i, j int) bool {
		return w.notifications[i].CreatedAt.Before(w.notifications[j].CreatedAt)
	})
	w.publishLocked()
}

// Upsert adds or updates a single record. Records that are terminal, out
// of the retention window, or of a kind that does not participate in
// fan-out are removed instead.
func (w *WorkingSet) Upsert(n models.Notification) {
	if !eligible(&n) {
		w.Remove(n.ID)
		return
	}

	w.mtx.Lock()
	defer w.mtx.Unlock()

	for i := range w.notifications {
		if w.notifications[i].ID == n.ID {
			w.notifications[i] = n
			w.publishLocked()
			return
		}
	}
	w.notifications = append(w.notifications, n)
	w.publishLocked()
}

// Remove drops the record with the given id from the working set, if
// present.
func (w *WorkingSet) Remove(id string) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	for i := range w.notifications {
		if w.notifications[i].ID == id {
			w.notifications = append(w.notifications[:i], w.notifications[i+1:]...)
			w.publishLocked()
			return
		}
	}
}

// Hydrate loads the eligible active notifications from the store and
// replaces the snapshot with them.
func (w *WorkingSet) Hydrate(store *Store) error {
	list, err := store.ActiveWithinWindow(models.FanoutKinds, time.Now().Add(-RetentionWindow))
	if err != nil {
		return err
	}
	w.Replace(list)
	return nil
}

func (w *WorkingSet) snapshotLocked() []models.Notification {
	snap := make([]models.Notification, len(w.notifications))
	copy(snap, w.notifications)
	return snap
}

func (w *WorkingSet) publishLocked() {
	snap := w.snapshotLocked()
	for sub := range w.subs {
		// Coalesce: replace an undelivered snapshot with the newest one.
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}

func eligible(n *models.Notification) bool {
	if !n.Active() {
		return false
	}
	if time.Since(n.CreatedAt) > RetentionWindow {
		return false
	}
	for _, k := range models.FanoutKinds {
		if n.Kind == k {
			return true
		}
	}
	return false
}
