package notifications

import (
	"time"

	"github.com/op/go-logging"
	"github.com/openlar/openlar/models"
	"github.com/openlar/openlar/repo"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("NOTF")

// RetentionWindow is how long a notification stays part of the working
// set before the expiry sweep is allowed to cancel it.
const RetentionWindow = 24 * time.Hour

var activeStatuses = []models.NotificationStatus{
	models.StatusPending,
	models.StatusOngoing,
}

// Store is the persistence layer for notification records. All writes are
// single-record upserts; storage failures are wrapped and propagated to the
// caller, which owns the retry policy.
type Store struct {
	db repo.Database
}

// NewStore returns a Store backed by the given database.
func NewStore(db repo.Database) *Store {
	return &Store{db: db}
}

// Insert persists a new notification record. An ID is assigned if the
// record does not carry one and the status defaults to pending.
func (s *Store) Insert(n *models.Notification) error {
	if n.ID == "" {
		n.ID = models.NewNotificationID()
	}
	if n.Status == "" {
		n.Status = models.StatusPending
	}
	err := s.db.Update(func(tx *gorm.DB) error {
		return tx.Create(n).Error
	})
	if err != nil {
		return errors.Wrap(err, "insert notification")
	}
	return nil
}

// Get returns the notification with the given id or ErrNotFound.
func (s *Store) Get(id string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.View(func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&n).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get notification")
	}
	return &n, nil
}

// ActiveMatching returns the non-terminal notifications of the given kind
// matching the where conditions. This is the dedup lookup used by the
// ingestion handlers.
func (s *Store) ActiveMatching(kind models.NotificationKind, where map[string]interface{}) ([]models.Notification, error) {
	var list []models.Notification
	err := s.db.View(func(tx *gorm.DB) error {
		q := tx.Where("kind = ? AND status IN ?", kind, activeStatuses)
		if len(where) > 0 {
			q = q.Where(where)
		}
		return q.Order("created_at asc").Find(&list).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "query active notifications")
	}
	return list, nil
}

// ActiveWithinWindow returns the non-terminal notifications of the given
// kinds created at or after since, ordered by creation time. Used to
// hydrate the working-set cache.
func (s *Store) ActiveWithinWindow(kinds []models.NotificationKind, since time.Time) ([]models.Notification, error) {
	var list []models.Notification
	err := s.db.View(func(tx *gorm.DB) error {
		return tx.Where("kind IN ? AND status IN ? AND created_at >= ?", kinds, activeStatuses, since).
			Order("created_at asc").
			Find(&list).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "query working set")
	}
	return list, nil
}

// ActiveForRecipient returns the non-terminal notifications of the given
// kind addressed to the given user, newest first. Used by the
// caller-scoped query endpoints.
func (s *Store) ActiveForRecipient(kind models.NotificationKind, userID uint) ([]models.Notification, error) {
	var list []models.Notification
	err := s.db.View(func(tx *gorm.DB) error {
		return tx.Where("kind = ? AND status IN ? AND recipient_id = ?", kind, activeStatuses, userID).
			Order("created_at desc").
			Find(&list).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "query recipient notifications")
	}
	return list, nil
}

// StalePending returns the pending notifications of the given kinds
// created before the cutoff. Used by the expiry sweep.
func (s *Store) StalePending(kinds []models.NotificationKind, before time.Time) ([]models.Notification, error) {
	var list []models.Notification
	err := s.db.View(func(tx *gorm.DB) error {
		return tx.Where("kind IN ? AND status = ? AND created_at < ?", kinds, models.StatusPending, before).
			Find(&list).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "query stale notifications")
	}
	return list, nil
}

// CompareAndSetStatus transitions the record's status from expected to
// target in a single conditional write. It returns false if the record's
// persisted status no longer matches expected, which means another actor
// got there first. The assignee column is set alongside the status so the
// assignee-iff-ongoing invariant holds atomically.
func (s *Store) CompareAndSetStatus(id string, expected, target models.NotificationStatus, assignee *uint) (bool, error) {
	var rows int64
	err := s.db.Update(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(map[string]interface{}{
				"status":      target,
				"assignee_id": assignee,
			})
		rows = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, errors.Wrap(err, "compare-and-set notification status")
	}
	return rows > 0, nil
}

// CancelActive cancels the record if it is still in a non-terminal status.
// Returns false if it was already terminal (or missing). Used for
// supersession and safe to call repeatedly.
func (s *Store) CancelActive(id string) (bool, error) {
	return s.setIfActive(id, models.StatusCanceled)
}

// AcknowledgeActive marks the record done if it is still in a non-terminal
// status. Used by the caller-scoped acknowledge endpoints, which complete
// recipient-scoped notices without the claim step.
func (s *Store) AcknowledgeActive(id string) (bool, error) {
	return s.setIfActive(id, models.StatusDone)
}

func (s *Store) setIfActive(id string, target models.NotificationStatus) (bool, error) {
	var rows int64
	err := s.db.Update(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND status IN ?", id, activeStatuses).
			Updates(map[string]interface{}{
				"status":      target,
				"assignee_id": nil,
			})
		rows = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, errors.Wrap(err, "update notification status")
	}
	return rows > 0, nil
}
