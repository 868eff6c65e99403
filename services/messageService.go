package services

import (
	"context"
	"strings"
	"time"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/utils"
)

// MessageBox is the inbox page: contacts of one role and, when a contact is
// selected, the conversation with them.
type MessageBox struct {
	RoleFilter models.Role      `json:"role_filter,omitempty"`
	Users      []models.User    `json:"users"`
	Selected   *models.User     `json:"selected_user,omitempty"`
	Messages   []models.Message `json:"messages"`
}

type MessageService struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	now      Clock
}

func NewMessageService(messages repositories.MessageRepository, users repositories.UserRepository) *MessageService {
	return &MessageService{messages: messages, users: users, now: time.Now}
}

func (s *MessageService) MessageBox(ctx context.Context, p access.Principal, roleFilter models.Role, selectedID uint) (*MessageBox, error) {
	if err := authorize(p, access.ListMessages, access.None); err != nil {
		return nil, err
	}
	box := &MessageBox{Users: []models.User{}, Messages: []models.Message{}}
	if roleFilter.Valid() {
		box.RoleFilter = roleFilter
		users, err := s.users.ListUsersByRole(ctx, roleFilter, p.UserID)
		if err != nil {
			return nil, err
		}
		box.Users = users
	}
	if selectedID == 0 {
		return box, nil
	}

	selected, err := s.users.GetUserByID(ctx, selectedID)
	if err != nil {
		return nil, err
	}
	if selected == nil {
		return nil, ErrNotFound
	}
	box.Selected = selected
	if box.Messages, err = s.Conversation(ctx, p, selected.ID); err != nil {
		return nil, err
	}
	return box, nil
}

// Conversation returns the non-deleted messages between the caller and
// other in either direction, oldest first.
func (s *MessageService) Conversation(ctx context.Context, p access.Principal, other uint) ([]models.Message, error) {
	if err := authorize(p, access.ListMessages, access.None); err != nil {
		return nil, err
	}
	return s.messages.Conversation(ctx, p.UserID, other)
}

func (s *MessageService) Send(ctx context.Context, p access.Principal, receiverID uint, content string) (*models.Message, error) {
	if err := authorize(p, access.SendMessage, access.None); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, utils.FieldError("content", "cannot be blank")
	}
	receiver, err := s.users.GetUserByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, utils.FieldError("receiver_id", "Recipient not found.")
	}
	message := &models.Message{
		SenderID:   p.UserID,
		ReceiverID: receiver.ID,
		Content:    content,
		Timestamp:  s.now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// Delete hides a message from both participants. Only the sender may delete
// it; anyone else gets ErrNotFound.
func (s *MessageService) Delete(ctx context.Context, p access.Principal, id uint) error {
	if err := authorize(p, access.DeleteMessage, access.None); err != nil {
		return err
	}
	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if message == nil || message.IsDeleted {
		return ErrNotFound
	}
	if err := authorize(p, access.DeleteMessage, access.Owned(message.SenderID)); err != nil {
		return err
	}
	return s.messages.SoftDelete(ctx, message.ID)
}
