package notifications

import (
	"github.com/openlar/openlar/events"
	"github.com/openlar/openlar/models"
	"github.com/openlar/openlar/repo"
	"gorm.io/gorm"
)

// allowedTransitions is the lifecycle of a notification. Done and
// canceled are terminal.
var allowedTransitions = map[models.NotificationStatus][]models.NotificationStatus{
	models.StatusPending: {models.StatusOngoing, models.StatusCanceled},
	models.StatusOngoing: {models.StatusPending, models.StatusDone, models.StatusCanceled},
}

// StateMachine applies status transitions to notification records. The
// store's compare-and-set write is the sole serialization point, so two
// racing operators resolve to exactly one winner without extra locking.
type StateMachine struct {
	store *Store
	db    repo.Database
	bus   events.Bus
	cache *WorkingSet
}

// NewStateMachine returns a StateMachine. The db handle is used for the
// medicament stock side effect, which writes outside the notifications
// table.
func NewStateMachine(store *Store, db repo.Database, bus events.Bus, cache *WorkingSet) *StateMachine {
	return &StateMachine{
		store: store,
		db:    db,
		bus:   bus,
		cache: cache,
	}
}

// Transition moves the notification to the target status on behalf of the
// actor. The actor may be nil for system-initiated transitions (the expiry
// sweep) but is required when claiming a notification.
//
// Returns ErrNotFound for an unknown id, ErrInvalidTransition when the
// move is not allowed from the current status, and ErrConcurrencyLost when
// another actor transitioned the record first. In every error case the
// record is unchanged.
func (m *StateMachine) Transition(id string, target models.NotificationStatus, actor *models.User) (*models.Notification, error) {
	if !target.Valid() {
		return nil, ErrInvalidTransition
	}

	n, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(n.Status, target) {
		// A record already in the target status means another actor got
		// there first; that is a lost race, not an illegal move.
		if n.Status == target {
			return nil, ErrConcurrencyLost
		}
		return nil, ErrInvalidTransition
	}

	var assignee *uint
	if target == models.StatusOngoing {
		if actor == nil {
			return nil, ErrUnauthorized
		}
		assignee = &actor.ID
	}

	swapped, err := m.store.CompareAndSetStatus(id, n.Status, target, assignee)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// The conditional write missed: someone else transitioned the
		// record between our read and write.
		return nil, ErrConcurrencyLost
	}

	updated, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	if target == models.StatusDone && updated.Kind == models.KindMedicamentDose {
		m.decrementStock(updated)
	}

	if m.cache != nil {
		if updated.Active() {
			m.cache.Upsert(*updated)
		} else {
			m.cache.Remove(updated.ID)
		}
	}
	return updated, nil
}

func transitionAllowed(from, to models.NotificationStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// decrementStock applies the administered dose to the medicament's stock
// and feeds the resulting depletion events back into ingestion. Failures
// here are logged rather than returned; the notification transition has
// already committed.
func (m *StateMachine) decrementStock(n *models.Notification) {
	if n.AdministrationID == nil {
		log.Warningf("Dose notification %s has no administration reference", n.ID)
		return
	}

	var med models.Medicament
	err := m.db.Update(func(tx *gorm.DB) error {
		var admin models.MedicamentAdministration
		if err := tx.Preload("Medicament").First(&admin, *n.AdministrationID).Error; err != nil {
			return err
		}
		med = admin.Medicament
		if med.Quantity > 0 {
			med.Quantity -= admin.Dose
			if err := tx.Save(&med).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error updating stock for notification %s: %s", n.ID, err)
		return
	}

	if med.Quantity <= 0 {
		log.Warningf("Medicament %s is out of stock", med.Name)
		m.bus.Emit(&events.MedicamentOutOfStock{
			MedicamentID:   med.ID,
			MedicamentName: med.Name,
		})
	} else if med.Quantity <= med.LowStockThreshold {
		log.Warningf("Medicament %s is running low", med.Name)
		m.bus.Emit(&events.MedicamentLowStock{
			MedicamentID:   med.ID,
			MedicamentName: med.Name,
		})
	}
}
