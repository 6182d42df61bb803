package events

import "time"

// AppointmentDue is emitted by the appointments module when an upcoming
// appointment enters its notice window.
type AppointmentDue struct {
	AppointmentID uint      `json:"appointmentID"`
	ResidentID    uint      `json:"residentID"`
	ResidentName  string    `json:"residentName"`
	ScheduledAt   time.Time `json:"scheduledAt"`
}

// MedicamentDoseDue is emitted by the administration scheduler when a
// resident's dose comes due.
type MedicamentDoseDue struct {
	AdministrationID uint   `json:"administrationID"`
	MedicamentID     uint   `json:"medicamentID"`
	MedicamentName   string `json:"medicamentName"`
	ResidentID       uint   `json:"residentID"`
	Hour             int    `json:"hour"`
	Minute           int    `json:"minute"`
}

// MedicamentOutOfStock is emitted when a medicament's quantity drops to
// zero or below. The notification engine emits this itself after a dose
// administration depletes the stock.
type MedicamentOutOfStock struct {
	MedicamentID   uint   `json:"medicamentID"`
	MedicamentName string `json:"medicamentName"`
}

// MedicamentLowStock is emitted when a medicament's quantity drops to or
// below its low-stock threshold.
type MedicamentLowStock struct {
	MedicamentID   uint   `json:"medicamentID"`
	MedicamentName string `json:"medicamentName"`
}

// ResidentMessageCreated is emitted by the messages module whenever a new
// message is posted on a resident's board.
type ResidentMessageCreated struct {
	MessageID    uint   `json:"messageID"`
	ResidentID   uint   `json:"residentID"`
	ResidentName string `json:"residentName"`
	AuthorID     uint   `json:"authorID"`
	AuthorRole   string `json:"authorRole"`
	RelativeIDs  []uint `json:"relativeIDs"`
}

// ShiftUpdated is emitted by the shifts module when an employee's shift
// assignment changes.
type ShiftUpdated struct {
	EmployeeID     uint `json:"employeeID"`
	EmployeeUserID uint `json:"employeeUserID"`
}
