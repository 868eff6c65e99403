package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"SmartHealth/models"
)

type SOSRepository interface {
	Create(ctx context.Context, alert *models.SOSAlert) error
	GetByID(ctx context.Context, id uint) (*models.SOSAlert, error)
	Acknowledge(ctx context.Context, id uint, role models.Role, at time.Time) error
	Resolve(ctx context.Context, id uint, at time.Time) error
	ListActive(ctx context.Context) ([]models.SOSAlert, error)
	ListRecentAcknowledged(ctx context.Context, limit int) ([]models.SOSAlert, error)
	ListByPatient(ctx context.Context, patientID uint) ([]models.SOSAlert, error)
}

type sosRepository struct {
	db *gorm.DB
}

func NewSOSRepository(db *gorm.DB) SOSRepository {
	return &sosRepository{db: db}
}

func (r *sosRepository) Create(ctx context.Context, alert *models.SOSAlert) error {
	return translate(r.db.WithContext(ctx).Create(alert).Error, "failed to create sos alert")
}

func (r *sosRepository) GetByID(ctx context.Context, id uint) (*models.SOSAlert, error) {
	var alert models.SOSAlert
	if err := r.db.WithContext(ctx).Preload("Patient").First(&alert, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get sos alert")
	}
	return &alert, nil
}

// Acknowledge records one role's acknowledgment in a single UPDATE. The SET
// expressions read the row as it was before the update, so acknowledged_at
// keeps the first acknowledgment and the status flips only when the other
// role had already acknowledged.
func (r *sosRepository) Acknowledge(ctx context.Context, id uint, role models.Role, at time.Time) error {
	var flag, other string
	switch role {
	case models.RoleDoctor:
		flag, other = "acknowledged_by_doctor", "acknowledged_by_therapist"
	case models.RoleTherapist:
		flag, other = "acknowledged_by_therapist", "acknowledged_by_doctor"
	default:
		return errors.Errorf("role %s cannot acknowledge alerts", role)
	}

	result := r.db.WithContext(ctx).Model(&models.SOSAlert{}).
		Where("id = ? AND status <> ?", id, models.SOSResolved).
		Updates(map[string]interface{}{
			flag:              true,
			"acknowledged_at": gorm.Expr("COALESCE(acknowledged_at, ?)", at),
			"status":          gorm.Expr("CASE WHEN "+other+" THEN ? ELSE status END", models.SOSAcknowledged),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to acknowledge sos alert")
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *sosRepository) Resolve(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SOSAlert{}).
		Where("id = ? AND status <> ?", id, models.SOSResolved).
		Updates(map[string]interface{}{
			"status":      models.SOSResolved,
			"resolved_at": at,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to resolve sos alert")
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *sosRepository) ListActive(ctx context.Context) ([]models.SOSAlert, error) {
	var alerts []models.SOSAlert
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("status = ?", models.SOSActive).
		Order("created_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active alerts")
	}
	return alerts, nil
}

func (r *sosRepository) ListRecentAcknowledged(ctx context.Context, limit int) ([]models.SOSAlert, error) {
	var alerts []models.SOSAlert
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("status = ?", models.SOSAcknowledged).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list acknowledged alerts")
	}
	return alerts, nil
}

func (r *sosRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.SOSAlert, error) {
	var alerts []models.SOSAlert
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patient alerts")
	}
	return alerts, nil
}
