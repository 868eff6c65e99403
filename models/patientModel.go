package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// HealthLog is an immutable vitals entry submitted by a patient
type HealthLog struct {
	ID            uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID     uint      `gorm:"column:patient_id;not null;index" json:"patient_id"`
	Date          time.Time `gorm:"column:date;autoCreateTime" json:"date"`
	BloodPressure string    `gorm:"size:20;column:blood_pressure;not null" json:"blood_pressure"`
	HeartRate     string    `gorm:"size:20;column:heart_rate;not null" json:"heart_rate"`
	Notes         string    `gorm:"type:text;column:notes" json:"notes"`
	Patient       User      `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (HealthLog) TableName() string {
	return "health_log"
}

// PatientVisit is the free-form visit a patient reports
type PatientVisit struct {
	ID               uint           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID        uint           `gorm:"column:patient_id;not null;index" json:"patient_id"`
	DoctorID         *uint          `gorm:"column:doctor_id;index" json:"doctor_id,omitempty"`
	VisitDate        datatypes.Date `gorm:"column:visit_date;not null" json:"visit_date"`
	HospitalName     string         `gorm:"size:255;column:hospital_name;not null" json:"hospital_name"`
	DoctorName       string         `gorm:"size:255;column:doctor_name;not null" json:"doctor_name"`
	ReportFile       string         `gorm:"size:255;column:report_file" json:"report_file,omitempty"`
	PrescriptionFile string         `gorm:"size:255;column:prescription_file" json:"prescription_file,omitempty"`
	MedicineDetails  string         `gorm:"type:text;column:medicine_details" json:"medicine_details"`
	TherapistNotes   string         `gorm:"type:text;column:therapist_notes" json:"therapist_notes"`
	Patient          User           `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"patient"`
	Doctor           *User          `gorm:"foreignKey:DoctorID;references:ID;constraint:OnDelete:SET NULL" json:"-"`
}

func (PatientVisit) TableName() string {
	return "patient_visit"
}

type VisitStatus string

const (
	VisitPending   VisitStatus = "pending"
	VisitStable    VisitStatus = "stable"
	VisitImproving VisitStatus = "improving"
	VisitCritical  VisitStatus = "critical"
	VisitRecovered VisitStatus = "recovered"
)

var VisitStatuses = []VisitStatus{VisitPending, VisitStable, VisitImproving, VisitCritical, VisitRecovered}

// VisitRecord is the structured record a doctor keeps per patient visit.
// One record per doctor, patient and day.
type VisitRecord struct {
	ID               uint           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID        uint           `gorm:"column:patient_id;not null;index;uniqueIndex:idx_visit_record_day" json:"patient_id"`
	DoctorID         uint           `gorm:"column:doctor_id;not null;index;uniqueIndex:idx_visit_record_day" json:"doctor_id"`
	VisitDate        datatypes.Date `gorm:"column:visit_date;not null;uniqueIndex:idx_visit_record_day" json:"visit_date"`
	HospitalName     string         `gorm:"size:255;column:hospital_name" json:"hospital_name"`
	DoctorName       string         `gorm:"size:255;column:doctor_name" json:"doctor_name"`
	CurrentStatus    VisitStatus    `gorm:"size:20;column:current_status;not null;check:current_status IN ('pending', 'stable', 'improving', 'critical', 'recovered')" json:"current_status"`
	ImprovementScore int            `gorm:"column:improvement_score;not null;default:0;check:improvement_score BETWEEN 0 AND 100" json:"improvement_score"`
	DoctorNotes      string         `gorm:"type:text;column:doctor_notes" json:"doctor_notes"`
	ReportFile       string         `gorm:"size:255;column:report_file" json:"report_file,omitempty"`
	PrescriptionFile string         `gorm:"size:255;column:prescription_file" json:"prescription_file,omitempty"`
	Summary          string         `gorm:"type:text;column:summary" json:"summary"`
	Patient          User           `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Doctor           User           `gorm:"foreignKey:DoctorID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (VisitRecord) TableName() string {
	return "visit_record"
}

// FillSummary sets the derived summary when none was written.
func (v *VisitRecord) FillSummary() {
	if v.Summary == "" {
		v.Summary = VisitSummary(time.Time(v.VisitDate), v.CurrentStatus, v.ImprovementScore)
	}
}

// VisitSummary renders "<date>: <status> (<score>%)".
func VisitSummary(date time.Time, status VisitStatus, score int) string {
	return fmt.Sprintf("%s: %s (%d%%)", date.Format("2006-01-02"), status, score)
}

type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
	MoodAnxious Mood = "anxious"
	MoodExcited Mood = "excited"
	MoodTired   Mood = "tired"
)

var Moods = []Mood{MoodHappy, MoodNeutral, MoodSad, MoodAnxious, MoodExcited, MoodTired}

var moodColors = map[Mood]string{
	MoodHappy:   "#4caf50",
	MoodNeutral: "#9e9e9e",
	MoodSad:     "#f44336",
	MoodAnxious: "#3f51b5",
	MoodExcited: "#ff9800",
	MoodTired:   "#795548",
}

const DefaultMoodColor = "#2196f3"

func MoodColor(m Mood) string {
	if c, ok := moodColors[m]; ok {
		return c
	}
	return DefaultMoodColor
}

func (m Mood) Valid() bool {
	_, ok := moodColors[m]
	return ok
}

// MoodLog is append-only
type MoodLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID uint      `gorm:"column:patient_id;not null;index" json:"patient_id"`
	Mood      Mood      `gorm:"size:20;column:mood;not null" json:"mood"`
	LoggedAt  time.Time `gorm:"column:logged_at;not null;index" json:"logged_at"`
	Patient   User      `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (MoodLog) TableName() string {
	return "mood_log"
}

// ImprovementScore is append-only
type ImprovementScore struct {
	ID         uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID  uint      `gorm:"column:patient_id;not null;index" json:"patient_id"`
	Score      float64   `gorm:"column:score;not null" json:"score"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null;index" json:"recorded_at"`
	Patient    User      `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ImprovementScore) TableName() string {
	return "improvement_score"
}
