package models

import (
	"time"

	"gorm.io/gorm"
)

// The models below are owned by their respective CRUD modules. The
// notification engine reads them for dedup joins and, in the case of
// Medicament, writes the stock decrement that follows an administered dose.

// Resident is a care-home resident.
type Resident struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `json:"name"`
	Relatives []User `gorm:"many2many:resident_relatives" json:"relatives,omitempty"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Employee links a staff user to their shift schedule.
type Employee struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	UserID    uint `json:"userID"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Appointment is a scheduled event for a resident.
type Appointment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResidentID uint      `json:"residentID"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Medicament is a stocked medicament assigned to a resident.
type Medicament struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	ResidentID        uint   `json:"residentID"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `gorm:"default:5" json:"lowStockThreshold"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// MedicamentAdministration is a recurring dose schedule entry.
type MedicamentAdministration struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	MedicamentID uint       `json:"medicamentID"`
	Medicament   Medicament `json:"medicament"`
	Dose         int        `json:"dose"`
	Hour         int        `json:"hour"`
	Minute       int        `json:"minute"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Message is a message posted on a resident's board.
type Message struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ResidentID uint   `json:"residentID"`
	AuthorID   uint   `json:"authorID"`
	Content    string `json:"content"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
