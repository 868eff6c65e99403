package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"SmartHealth/models"
)

// MoodCount is one row of a mood histogram.
type MoodCount struct {
	Mood  models.Mood `json:"mood"`
	Count int64       `json:"count"`
}

type ClinicalRepository interface {
	CreateHealthLog(ctx context.Context, entry *models.HealthLog) error
	ListHealthLogs(ctx context.Context, patientID uint) ([]models.HealthLog, error)

	CreatePatientVisit(ctx context.Context, visit *models.PatientVisit) error
	GetPatientVisit(ctx context.Context, id uint) (*models.PatientVisit, error)
	ListPatientVisits(ctx context.Context, patientID uint) ([]models.PatientVisit, error)
	ListAllPatientVisits(ctx context.Context) ([]models.PatientVisit, error)
	ListPatientVisitsByDoctor(ctx context.Context, doctorID uint, limit int) ([]models.PatientVisit, error)
	UpdateTherapistNotes(ctx context.Context, id uint, notes string) error

	CreateVisitRecord(ctx context.Context, record *models.VisitRecord) error
	GetVisitRecord(ctx context.Context, id uint) (*models.VisitRecord, error)
	UpdateVisitRecord(ctx context.Context, record *models.VisitRecord) error
	VisitRecordExists(ctx context.Context, doctorID, patientID uint, date time.Time) (bool, error)
	ListVisitRecordsByPatient(ctx context.Context, patientID uint) ([]models.VisitRecord, error)
	ListVisitRecordsByDoctor(ctx context.Context, doctorID uint) ([]models.VisitRecord, error)

	CreateMoodLog(ctx context.Context, entry *models.MoodLog) error
	LatestMood(ctx context.Context, patientID uint) (*models.MoodLog, error)
	MoodCountsSince(ctx context.Context, patientID uint, since time.Time) ([]MoodCount, error)

	CreateImprovementScore(ctx context.Context, score *models.ImprovementScore) error
	AverageScoreSince(ctx context.Context, patientID uint, since time.Time) (*float64, error)
}

type clinicalRepository struct {
	db *gorm.DB
}

func NewClinicalRepository(db *gorm.DB) ClinicalRepository {
	return &clinicalRepository{db: db}
}

func (r *clinicalRepository) CreateHealthLog(ctx context.Context, entry *models.HealthLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "failed to create health log")
}

func (r *clinicalRepository) ListHealthLogs(ctx context.Context, patientID uint) ([]models.HealthLog, error) {
	var logs []models.HealthLog
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("date DESC").Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list health logs")
	}
	return logs, nil
}

func (r *clinicalRepository) CreatePatientVisit(ctx context.Context, visit *models.PatientVisit) error {
	return translate(r.db.WithContext(ctx).Create(visit).Error, "failed to create patient visit")
}

func (r *clinicalRepository) GetPatientVisit(ctx context.Context, id uint) (*models.PatientVisit, error) {
	var visit models.PatientVisit
	if err := r.db.WithContext(ctx).Preload("Patient").First(&visit, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get patient visit")
	}
	return &visit, nil
}

func (r *clinicalRepository) ListPatientVisits(ctx context.Context, patientID uint) ([]models.PatientVisit, error) {
	var visits []models.PatientVisit
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("patient_id = ?", patientID).
		Order("visit_date DESC").
		Find(&visits).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patient visits")
	}
	return visits, nil
}

func (r *clinicalRepository) ListAllPatientVisits(ctx context.Context) ([]models.PatientVisit, error) {
	var visits []models.PatientVisit
	if err := r.db.WithContext(ctx).Preload("Patient").Order("visit_date DESC").Find(&visits).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list all patient visits")
	}
	return visits, nil
}

func (r *clinicalRepository) ListPatientVisitsByDoctor(ctx context.Context, doctorID uint, limit int) ([]models.PatientVisit, error) {
	var visits []models.PatientVisit
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("visit_date DESC").
		Limit(limit).
		Find(&visits).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list doctor visits")
	}
	return visits, nil
}

func (r *clinicalRepository) UpdateTherapistNotes(ctx context.Context, id uint, notes string) error {
	err := r.db.WithContext(ctx).Model(&models.PatientVisit{}).
		Where("id = ?", id).
		Update("therapist_notes", notes).Error
	return errors.Wrap(err, "failed to update therapist notes")
}

func (r *clinicalRepository) CreateVisitRecord(ctx context.Context, record *models.VisitRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error, "failed to create visit record")
}

func (r *clinicalRepository) GetVisitRecord(ctx context.Context, id uint) (*models.VisitRecord, error) {
	var record models.VisitRecord
	if err := r.db.WithContext(ctx).Preload("Patient").First(&record, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get visit record")
	}
	return &record, nil
}

func (r *clinicalRepository) UpdateVisitRecord(ctx context.Context, record *models.VisitRecord) error {
	err := r.db.WithContext(ctx).Model(&models.VisitRecord{}).
		Where("id = ?", record.ID).
		Select("current_status", "improvement_score", "doctor_notes", "summary").
		Updates(record).Error
	return errors.Wrap(err, "failed to update visit record")
}

func (r *clinicalRepository) VisitRecordExists(ctx context.Context, doctorID, patientID uint, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VisitRecord{}).
		Where("doctor_id = ? AND patient_id = ? AND visit_date = ?", doctorID, patientID, date.Format("2006-01-02")).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check visit record")
	}
	return count > 0, nil
}

func (r *clinicalRepository) ListVisitRecordsByPatient(ctx context.Context, patientID uint) ([]models.VisitRecord, error) {
	var records []models.VisitRecord
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("visit_date").Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list visit records")
	}
	return records, nil
}

func (r *clinicalRepository) ListVisitRecordsByDoctor(ctx context.Context, doctorID uint) ([]models.VisitRecord, error) {
	var records []models.VisitRecord
	err := r.db.WithContext(ctx).Where("doctor_id = ?", doctorID).Order("visit_date DESC").Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list doctor visit records")
	}
	return records, nil
}

func (r *clinicalRepository) CreateMoodLog(ctx context.Context, entry *models.MoodLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "failed to create mood log")
}

func (r *clinicalRepository) LatestMood(ctx context.Context, patientID uint) (*models.MoodLog, error) {
	var entry models.MoodLog
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("logged_at DESC").First(&entry).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get latest mood")
	}
	return &entry, nil
}

func (r *clinicalRepository) MoodCountsSince(ctx context.Context, patientID uint, since time.Time) ([]MoodCount, error) {
	var counts []MoodCount
	err := r.db.WithContext(ctx).Model(&models.MoodLog{}).
		Select("mood, COUNT(*) AS count").
		Where("patient_id = ? AND logged_at >= ?", patientID, since).
		Group("mood").
		Order("mood").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count moods")
	}
	return counts, nil
}

func (r *clinicalRepository) CreateImprovementScore(ctx context.Context, score *models.ImprovementScore) error {
	return translate(r.db.WithContext(ctx).Create(score).Error, "failed to record improvement score")
}

// AverageScoreSince is nil when no score was recorded in the window.
func (r *clinicalRepository) AverageScoreSince(ctx context.Context, patientID uint, since time.Time) (*float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).Model(&models.ImprovementScore{}).
		Select("AVG(score)").
		Where("patient_id = ? AND recorded_at >= ?", patientID, since).
		Scan(&avg).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to average improvement scores")
	}
	return avg, nil
}
