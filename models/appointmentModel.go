package models

import (
	"time"

	"gorm.io/datatypes"
)

// Location model
type Location struct {
	ID        uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name      string     `gorm:"size:100;column:name;not null;uniqueIndex" json:"name"`
	Hospitals []Hospital `gorm:"foreignKey:LocationID;references:ID" json:"-"`
}

func (Location) TableName() string {
	return "location"
}

// Hospital model
type Hospital struct {
	ID         uint     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name       string   `gorm:"size:200;column:name;not null" json:"name"`
	LocationID uint     `gorm:"column:location_id;not null;index" json:"location_id"`
	Location   Location `gorm:"foreignKey:LocationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Hospital) TableName() string {
	return "hospital"
}

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment model
type Appointment struct {
	ID         uint              `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID  uint              `gorm:"column:patient_id;not null;index" json:"patient_id"`
	DoctorID   uint              `gorm:"column:doctor_id;not null;index" json:"doctor_id"`
	HospitalID *uint             `gorm:"column:hospital_id;index" json:"hospital_id,omitempty"`
	Date       datatypes.Date    `gorm:"column:date;not null" json:"date"`
	Time       datatypes.Time    `gorm:"column:time;not null" json:"time"`
	Status     AppointmentStatus `gorm:"size:20;column:status;not null;default:pending;index;check:status IN ('pending', 'confirmed', 'completed', 'cancelled')" json:"status"`
	Reason     string            `gorm:"type:text;column:reason" json:"reason"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Patient    User              `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"patient"`
	Doctor     User              `gorm:"foreignKey:DoctorID;references:ID;constraint:OnDelete:CASCADE" json:"doctor"`
	Hospital   *Hospital         `gorm:"foreignKey:HospitalID;references:ID;constraint:OnDelete:SET NULL" json:"hospital,omitempty"`
}

func (Appointment) TableName() string {
	return "appointment"
}

// HospitalName is empty when no hospital is attached.
func (a Appointment) HospitalName() string {
	if a.Hospital == nil {
		return ""
	}
	return a.Hospital.Name
}
