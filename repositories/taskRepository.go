package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"SmartHealth/models"
)

type TaskRepository interface {
	Create(ctx context.Context, task *models.PatientTask) error
	GetByID(ctx context.Context, id uint) (*models.PatientTask, error)
	ActiveForPatient(ctx context.Context, patientID uint) (*models.PatientTask, error)
	Complete(ctx context.Context, task *models.PatientTask) error
	UpdateFeedback(ctx context.Context, id uint, feedback string) error
	ListByPatient(ctx context.Context, patientID uint) ([]models.PatientTask, error)
	CountCompletedSince(ctx context.Context, patientID uint, since time.Time) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create returns ErrDuplicate when the patient already has an in_progress task.
func (r *taskRepository) Create(ctx context.Context, task *models.PatientTask) error {
	return translate(r.db.WithContext(ctx).Create(task).Error, "failed to create task")
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.PatientTask, error) {
	var task models.PatientTask
	if err := r.db.WithContext(ctx).Preload("Patient").First(&task, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get task")
	}
	return &task, nil
}

func (r *taskRepository) ActiveForPatient(ctx context.Context, patientID uint) (*models.PatientTask, error) {
	var task models.PatientTask
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status = ?", patientID, models.TaskInProgress).
		First(&task).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get active task")
	}
	return &task, nil
}

// Complete writes the completion fields only if the task is still in progress.
func (r *taskRepository) Complete(ctx context.Context, task *models.PatientTask) error {
	result := r.db.WithContext(ctx).Model(&models.PatientTask{}).
		Where("id = ? AND status = ?", task.ID, models.TaskInProgress).
		Updates(map[string]interface{}{
			"status":           models.TaskCompleted,
			"completed_at":     task.CompletedAt,
			"duration_minutes": task.DurationMinutes,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to complete task")
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *taskRepository) UpdateFeedback(ctx context.Context, id uint, feedback string) error {
	err := r.db.WithContext(ctx).Model(&models.PatientTask{}).
		Where("id = ?", id).
		Update("feedback", feedback).Error
	return errors.Wrap(err, "failed to update task feedback")
}

// ListByPatient returns every task, most recently completed first.
func (r *taskRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.PatientTask, error) {
	var tasks []models.PatientTask
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("completed_at DESC NULLS LAST, id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	return tasks, nil
}

func (r *taskRepository) CountCompletedSince(ctx context.Context, patientID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PatientTask{}).
		Where("patient_id = ? AND status = ? AND completed_at >= ?", patientID, models.TaskCompleted, since).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count completed tasks")
	}
	return count, nil
}
