package notifications

import "github.com/openlar/openlar/models"

// Queries answers the caller-scoped read endpoints. These go to the store
// directly rather than through the working set because results are
// per-recipient rather than global.
type Queries struct {
	store *Store
}

// NewQueries returns a new Queries facade.
func NewQueries(store *Store) *Queries {
	return &Queries{store: store}
}

// ShiftNotice returns the most recent active shift notice for the given
// user, canceling any older ones as a side effect: only the newest shift
// change matters. Returns nil when there is none.
func (q *Queries) ShiftNotice(userID uint) (*models.Notification, error) {
	list, err := q.store.ActiveForRecipient(models.KindShiftChange, userID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	for _, stale := range list[1:] {
		if _, err := q.store.CancelActive(stale.ID); err != nil {
			return nil, err
		}
	}
	return &list[0], nil
}

// AcknowledgeShift marks the user's current shift notice as done.
func (q *Queries) AcknowledgeShift(userID uint) error {
	n, err := q.ShiftNotice(userID)
	if err != nil || n == nil {
		return err
	}
	_, err = q.store.AcknowledgeActive(n.ID)
	return err
}

// RelativeMessages returns the active per-relative message notices
// addressed to the given user, newest first.
func (q *Queries) RelativeMessages(userID uint) ([]models.Notification, error) {
	return q.store.ActiveForRecipient(models.KindRelativeMessage, userID)
}

// AcknowledgeMessages marks all of the user's message notices as done.
func (q *Queries) AcknowledgeMessages(userID uint) error {
	list, err := q.RelativeMessages(userID)
	if err != nil {
		return err
	}
	for _, n := range list {
		if _, err := q.store.AcknowledgeActive(n.ID); err != nil {
			return err
		}
	}
	return nil
}
