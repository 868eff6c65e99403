package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"SmartHealth/models"
)

// VideoFilter narrows the patient library. Empty fields match everything.
type VideoFilter struct {
	ExerciseType models.ExerciseType
	Difficulty   models.Difficulty
}

type VideoRepository interface {
	Create(ctx context.Context, video *models.ExerciseVideo) error
	GetByID(ctx context.Context, id uint) (*models.ExerciseVideo, error)
	ListActive(ctx context.Context, filter VideoFilter) ([]models.ExerciseVideo, error)
	ListByTherapist(ctx context.Context, therapistID uint) ([]models.ExerciseVideo, error)
	IncrementViews(ctx context.Context, id uint) error
	Related(ctx context.Context, exerciseType models.ExerciseType, excludeID uint, limit int) ([]models.ExerciseVideo, error)
	Delete(ctx context.Context, id uint) error
}

type videoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Create(ctx context.Context, video *models.ExerciseVideo) error {
	return translate(r.db.WithContext(ctx).Create(video).Error, "failed to create video")
}

func (r *videoRepository) GetByID(ctx context.Context, id uint) (*models.ExerciseVideo, error) {
	var video models.ExerciseVideo
	if err := r.db.WithContext(ctx).Preload("Therapist").First(&video, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get video")
	}
	return &video, nil
}

func (r *videoRepository) ListActive(ctx context.Context, filter VideoFilter) ([]models.ExerciseVideo, error) {
	query := r.db.WithContext(ctx).Preload("Therapist").Where("is_active = ?", true)
	if filter.ExerciseType != "" {
		query = query.Where("exercise_type = ?", filter.ExerciseType)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty_level = ?", filter.Difficulty)
	}
	var videos []models.ExerciseVideo
	if err := query.Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list videos")
	}
	return videos, nil
}

func (r *videoRepository) ListByTherapist(ctx context.Context, therapistID uint) ([]models.ExerciseVideo, error) {
	var videos []models.ExerciseVideo
	err := r.db.WithContext(ctx).
		Where("therapist_id = ?", therapistID).
		Order("created_at DESC").
		Find(&videos).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list therapist videos")
	}
	return videos, nil
}

// IncrementViews adds one view in the database so concurrent watches all count.
func (r *videoRepository) IncrementViews(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.ExerciseVideo{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1))
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to count video view")
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *videoRepository) Related(ctx context.Context, exerciseType models.ExerciseType, excludeID uint, limit int) ([]models.ExerciseVideo, error) {
	var videos []models.ExerciseVideo
	err := r.db.WithContext(ctx).
		Where("exercise_type = ? AND is_active = ? AND id <> ?", exerciseType, true, excludeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list related videos")
	}
	return videos, nil
}

func (r *videoRepository) Delete(ctx context.Context, id uint) error {
	return errors.Wrap(r.db.WithContext(ctx).Delete(&models.ExerciseVideo{}, id).Error, "failed to delete video")
}
