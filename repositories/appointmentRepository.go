package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"SmartHealth/models"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	TransitionStatus(ctx context.Context, id uint, from []models.AppointmentStatus, to models.AppointmentStatus) error
	CompleteWithVisit(ctx context.Context, appointmentID uint, record *models.VisitRecord) error
	ListForDoctor(ctx context.Context, doctorID uint, status models.AppointmentStatus) ([]models.Appointment, error)
	LatestForPatient(ctx context.Context, patientID uint) (*models.Appointment, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	return translate(r.db.WithContext(ctx).Create(appointment).Error, "failed to create appointment")
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Preload("Hospital").
		First(&appointment, id).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get appointment")
	}
	return &appointment, nil
}

// TransitionStatus moves the appointment to "to" only while it is still in one
// of the "from" states, so two concurrent requests cannot both apply.
func (r *appointmentRepository) TransitionStatus(ctx context.Context, id uint, from []models.AppointmentStatus, to models.AppointmentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update appointment status")
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// CompleteWithVisit creates the visit record and completes the confirmed
// appointment in one transaction.
func (r *appointmentRepository) CompleteWithVisit(ctx context.Context, appointmentID uint, record *models.VisitRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return translate(err, "failed to create visit record")
		}
		result := tx.Model(&models.Appointment{}).
			Where("id = ? AND status = ?", appointmentID, models.AppointmentConfirmed).
			Update("status", models.AppointmentCompleted)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to complete appointment")
		}
		if result.RowsAffected == 0 {
			return ErrStale
		}
		return nil
	})
}

func (r *appointmentRepository) ListForDoctor(ctx context.Context, doctorID uint, status models.AppointmentStatus) ([]models.Appointment, error) {
	order := "date, time"
	if status == models.AppointmentCompleted {
		order = "date DESC, time DESC"
	}
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Hospital").
		Where("doctor_id = ? AND status = ?", doctorID, status).
		Order(order).
		Find(&appointments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list doctor appointments")
	}
	return appointments, nil
}

func (r *appointmentRepository) LatestForPatient(ctx context.Context, patientID uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		Preload("Hospital").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		First(&appointment).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get latest appointment")
	}
	return &appointment, nil
}
