package models

import "time"

// Message between two users. Deletion only sets IsDeleted.
type Message struct {
	ID         uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	SenderID   uint      `gorm:"column:sender_id;not null;index:idx_message_pair" json:"sender_id"`
	ReceiverID uint      `gorm:"column:receiver_id;not null;index:idx_message_pair" json:"receiver_id"`
	Content    string    `gorm:"type:text;column:content;not null" json:"content"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	IsDeleted  bool      `gorm:"column:is_deleted;not null;default:false" json:"-"`
	Sender     User      `gorm:"foreignKey:SenderID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Receiver   User      `gorm:"foreignKey:ReceiverID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Message) TableName() string {
	return "message"
}

type SOSStatus string

const (
	SOSActive       SOSStatus = "active"
	SOSAcknowledged SOSStatus = "acknowledged"
	SOSResolved     SOSStatus = "resolved"
)

// SOSAlert needs both a doctor and a therapist acknowledgment before it
// counts as acknowledged. Resolved is terminal.
type SOSAlert struct {
	ID                      uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID               uint       `gorm:"column:patient_id;not null;index" json:"patient_id"`
	Message                 *string    `gorm:"type:text;column:message" json:"message"`
	Status                  SOSStatus  `gorm:"size:20;column:status;not null;default:active;index;check:status IN ('active', 'acknowledged', 'resolved')" json:"status"`
	CreatedAt               time.Time  `gorm:"column:created_at;not null;index" json:"created_at"`
	AcknowledgedAt          *time.Time `gorm:"column:acknowledged_at" json:"acknowledged_at,omitempty"`
	ResolvedAt              *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	AcknowledgedByDoctor    bool       `gorm:"column:acknowledged_by_doctor;not null;default:false" json:"acknowledged_by_doctor"`
	AcknowledgedByTherapist bool       `gorm:"column:acknowledged_by_therapist;not null;default:false" json:"acknowledged_by_therapist"`
	Patient                 User       `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"patient"`
}

func (SOSAlert) TableName() string {
	return "sos_alert"
}

// ApplyAcknowledgment applies one role's acknowledgment to the in-memory alert
// the same way the repository's single UPDATE does.
func (a *SOSAlert) ApplyAcknowledgment(role Role, at time.Time) {
	switch role {
	case RoleDoctor:
		a.AcknowledgedByDoctor = true
	case RoleTherapist:
		a.AcknowledgedByTherapist = true
	default:
		return
	}
	if a.AcknowledgedAt == nil {
		t := at
		a.AcknowledgedAt = &t
	}
	if a.Status != SOSResolved && a.AcknowledgedByDoctor && a.AcknowledgedByTherapist {
		a.Status = SOSAcknowledged
	}
}
