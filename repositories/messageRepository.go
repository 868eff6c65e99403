package repositories

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"SmartHealth/models"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	Conversation(ctx context.Context, userA, userB uint) ([]models.Message, error)
	SoftDelete(ctx context.Context, id uint) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return translate(r.db.WithContext(ctx).Create(message).Error, "failed to create message")
}

// GetByID returns deleted messages too; callers decide what a deleted message means.
func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get message")
	}
	return &message, nil
}

func (r *messageRepository) Conversation(ctx context.Context, userA, userB uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("timestamp, id").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load conversation")
	}
	return messages, nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error
	return errors.Wrap(err, "failed to delete message")
}
