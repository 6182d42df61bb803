package notifications

import (
	"fmt"
	"time"

	"github.com/openlar/openlar/events"
	"github.com/openlar/openlar/models"
)

// Ingestor converts domain events emitted by the other modules into
// durable notification records, deduplicating or superseding competing
// notifications of the same subject.
type Ingestor struct {
	store    *Store
	cache    *WorkingSet
	bus      events.Bus
	shutdown chan struct{}
}

// NewIngestor returns a new Ingestor.
func NewIngestor(store *Store, cache *WorkingSet, bus events.Bus) *Ingestor {
	return &Ingestor{
		store:    store,
		cache:    cache,
		bus:      bus,
		shutdown: make(chan struct{}),
	}
}

// Start subscribes to the domain events and processes them until Stop is
// called. This should use its own goroutine. A failure while handling one
// event is logged and does not block subsequent events.
func (in *Ingestor) Start() {
	sub, err := in.bus.Subscribe([]interface{}{
		&events.AppointmentDue{},
		&events.MedicamentDoseDue{},
		&events.MedicamentOutOfStock{},
		&events.MedicamentLowStock{},
		&events.ResidentMessageCreated{},
		&events.ShiftUpdated{},
	})
	if err != nil {
		log.Errorf("Error subscribing to events: %s", err)
		return
	}

	for {
		select {
		case event := <-sub.Out():
			if err := in.Handle(event); err != nil {
				log.Errorf("Error handling %T: %s", event, err)
			}
		case <-in.shutdown:
			sub.Close()
			return
		}
	}
}

// Stop shuts down the ingestor.
func (in *Ingestor) Stop() {
	close(in.shutdown)
}

// Handle dispatches a single domain event to its handler. A storage error
// is returned to the caller, which owns the retry policy; a dropped event
// would mean a missed alert.
func (in *Ingestor) Handle(event interface{}) error {
	switch e := event.(type) {
	case *events.AppointmentDue:
		return in.handleAppointmentDue(e)
	case *events.MedicamentDoseDue:
		return in.handleMedicamentDoseDue(e)
	case *events.MedicamentOutOfStock:
		return in.handleStockEvent(models.KindMedicamentOutOfStock, e.MedicamentID,
			fmt.Sprintf("Medicament %s is out of stock", e.MedicamentName))
	case *events.MedicamentLowStock:
		return in.handleStockEvent(models.KindMedicamentLowStock, e.MedicamentID,
			fmt.Sprintf("Medicament %s is running low", e.MedicamentName))
	case *events.ResidentMessageCreated:
		return in.handleResidentMessageCreated(e)
	case *events.ShiftUpdated:
		return in.handleShiftUpdated(e)
	default:
		return fmt.Errorf("unknown event type %T", event)
	}
}

// handleAppointmentDue creates a pending notification for the appointment
// unless one is already active for it.
func (in *Ingestor) handleAppointmentDue(evt *events.AppointmentDue) error {
	existing, err := in.store.ActiveMatching(models.KindAppointment, map[string]interface{}{
		"appointment_id": evt.AppointmentID,
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	scheduledAt := evt.ScheduledAt
	n := &models.Notification{
		Message:       fmt.Sprintf("Appointment scheduled for %s", evt.ResidentName),
		Kind:          models.KindAppointment,
		Status:        models.StatusPending,
		ScheduledAt:   &scheduledAt,
		AppointmentID: &evt.AppointmentID,
	}
	if err := in.store.Insert(n); err != nil {
		return err
	}
	in.cache.Upsert(*n)
	log.Infof("Notification created for appointment %d", evt.AppointmentID)
	return nil
}

// handleMedicamentDoseDue creates a pending notification for the
// administration schedule entry unless one is already active for it. The
// scheduled time is today's date at the administration's hour and minute.
func (in *Ingestor) handleMedicamentDoseDue(evt *events.MedicamentDoseDue) error {
	existing, err := in.store.ActiveMatching(models.KindMedicamentDose, map[string]interface{}{
		"administration_id": evt.AdministrationID,
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now()
	scheduledAt := time.Date(now.Year(), now.Month(), now.Day(), evt.Hour, evt.Minute, 0, 0, time.Local)
	n := &models.Notification{
		Message:          fmt.Sprintf("Medication %s", evt.MedicamentName),
		Kind:             models.KindMedicamentDose,
		Status:           models.StatusPending,
		ScheduledAt:      &scheduledAt,
		AdministrationID: &evt.AdministrationID,
	}
	if err := in.store.Insert(n); err != nil {
		return err
	}
	in.cache.Upsert(*n)
	log.Infof("Notification created for medicament administration %d", evt.AdministrationID)
	return nil
}

// handleStockEvent covers both the out-of-stock and low-stock kinds. A new
// occurrence supersedes any active notice of the same kind for the same
// medicament so a single depletion episode never shows duplicate alerts.
func (in *Ingestor) handleStockEvent(kind models.NotificationKind, medicamentID uint, message string) error {
	if err := in.supersede(kind, map[string]interface{}{"medicament_id": medicamentID}); err != nil {
		return err
	}

	id := medicamentID
	n := &models.Notification{
		Message:      message,
		Kind:         kind,
		Status:       models.StatusPending,
		MedicamentID: &id,
	}
	if err := in.store.Insert(n); err != nil {
		return err
	}
	in.cache.Upsert(*n)
	log.Infof("Notification created for medicament %d (%s)", medicamentID, kind)
	return nil
}

// handleResidentMessageCreated produces two notification shapes from one
// event: a generic staff notice, at most one active per resident, and an
// independent per-relative notice for every relative on the resident's
// record except the author. Generic and per-relative notices never cancel
// each other.
func (in *Ingestor) handleResidentMessageCreated(evt *events.ResidentMessageCreated) error {
	if err := in.supersede(models.KindResidentMessage, map[string]interface{}{
		"resident_id": evt.ResidentID,
	}); err != nil {
		return err
	}

	messageID := evt.MessageID
	residentID := evt.ResidentID
	generic := &models.Notification{
		Message:    fmt.Sprintf("New message about resident %s", evt.ResidentName),
		Kind:       models.KindResidentMessage,
		Status:     models.StatusPending,
		MessageID:  &messageID,
		ResidentID: &residentID,
	}
	if err := in.store.Insert(generic); err != nil {
		return err
	}
	in.cache.Upsert(*generic)

	for _, relativeID := range evt.RelativeIDs {
		if relativeID == evt.AuthorID {
			continue
		}
		if err := in.supersede(models.KindRelativeMessage, map[string]interface{}{
			"resident_id":  evt.ResidentID,
			"recipient_id": relativeID,
		}); err != nil {
			return err
		}

		recipientID := relativeID
		notice := &models.Notification{
			Message:     fmt.Sprintf("New message about resident %s", evt.ResidentName),
			Kind:        models.KindRelativeMessage,
			Status:      models.StatusPending,
			MessageID:   &messageID,
			ResidentID:  &residentID,
			RecipientID: &recipientID,
		}
		if err := in.store.Insert(notice); err != nil {
			return err
		}
	}
	log.Infof("Notifications created for message on resident %d", evt.ResidentID)
	return nil
}

// handleShiftUpdated keeps at most one active shift notice per employee;
// only the latest shift change matters.
func (in *Ingestor) handleShiftUpdated(evt *events.ShiftUpdated) error {
	if err := in.supersede(models.KindShiftChange, map[string]interface{}{
		"recipient_id": evt.EmployeeUserID,
	}); err != nil {
		return err
	}

	recipientID := evt.EmployeeUserID
	n := &models.Notification{
		Message:     "Shift updated",
		Kind:        models.KindShiftChange,
		Status:      models.StatusPending,
		RecipientID: &recipientID,
	}
	if err := in.store.Insert(n); err != nil {
		return err
	}
	log.Infof("Notification created for employee %d shift change", evt.EmployeeID)
	return nil
}

// supersede cancels every active notification of the given kind matching
// where and removes it from the working set.
func (in *Ingestor) supersede(kind models.NotificationKind, where map[string]interface{}) error {
	existing, err := in.store.ActiveMatching(kind, where)
	if err != nil {
		return err
	}
	for _, old := range existing {
		swapped, err := in.store.CancelActive(old.ID)
		if err != nil {
			return err
		}
		if swapped {
			in.cache.Remove(old.ID)
		}
	}
	return nil
}
