package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// NotificationKind is the category of a notification. It determines the
// dedup rule, visibility and transition side effects of the record.
type NotificationKind string

const (
	KindAppointment          NotificationKind = "APPOINTMENT"
	KindMedicamentDose       NotificationKind = "MEDICAMENT_DOSE"
	KindMedicamentOutOfStock NotificationKind = "MEDICAMENT_OUT_OF_STOCK"
	KindMedicamentLowStock   NotificationKind = "MEDICAMENT_LOW_STOCK"
	KindResidentMessage      NotificationKind = "RESIDENT_MESSAGE"
	KindRelativeMessage      NotificationKind = "RELATIVE_MESSAGE"
	KindShiftChange          NotificationKind = "SHIFT_CHANGE"
)

// NotificationStatus is the lifecycle state of a notification.
type NotificationStatus string

const (
	StatusPending  NotificationStatus = "PENDING"
	StatusOngoing  NotificationStatus = "ONGOING"
	StatusDone     NotificationStatus = "DONE"
	StatusCanceled NotificationStatus = "CANCELED"
)

// Terminal returns true if no further transitions are allowed out of
// this status.
func (s NotificationStatus) Terminal() bool {
	return s == StatusDone || s == StatusCanceled
}

// Valid returns true if s is a known status.
func (s NotificationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOngoing, StatusDone, StatusCanceled:
		return true
	}
	return false
}

// FanoutKinds are the notification kinds which participate in the real-time
// working set pushed to connected operators. Per-relative messages and shift
// notices are recipient-scoped and served through the query endpoints instead.
var FanoutKinds = []NotificationKind{
	KindAppointment,
	KindMedicamentDose,
	KindMedicamentOutOfStock,
	KindMedicamentLowStock,
	KindResidentMessage,
}

// Notification is the durable record produced by the ingestion handlers.
//
// Only Status and AssigneeID are mutable after creation. The subject
// reference columns identify the originating domain object and are used
// for deduplication; at most one is populated per kind.
type Notification struct {
	ID          string             `gorm:"primaryKey" json:"id"`
	Message     string             `json:"message"`
	Kind        NotificationKind   `gorm:"index:idx_notifications_kind_status" json:"kind"`
	Status      NotificationStatus `gorm:"index:idx_notifications_kind_status" json:"status"`
	ScheduledAt *time.Time         `json:"scheduledAt,omitempty"`
	AssigneeID  *uint              `json:"assigneeID,omitempty"`

	AppointmentID    *uint `json:"appointmentID,omitempty"`
	AdministrationID *uint `json:"administrationID,omitempty"`
	MedicamentID     *uint `json:"medicamentID,omitempty"`
	MessageID        *uint `json:"messageID,omitempty"`
	ResidentID       *uint `json:"residentID,omitempty"`
	RecipientID      *uint `json:"recipientID,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Active returns true if the notification is in a non-terminal status.
func (n *Notification) Active() bool {
	return n.Status == StatusPending || n.Status == StatusOngoing
}

// NewNotificationID returns a random notification ID.
func NewNotificationID() string {
	r := make([]byte, 20)
	rand.Read(r)
	return hex.EncodeToString(r)
}
