package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SmartHealth/models"
	"SmartHealth/repositories"
)

type memUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (m *memUsers) add(role models.Role, username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{
		ID:        uint(len(m.users) + 1),
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		FirstName: username,
	}
	u.UniqueID = fmt.Sprintf("%s_%d", role.Prefix(), 1000+u.ID)
	m.users = append(m.users, u)
	cp := *u
	return &cp
}

func (m *memUsers) find(match func(*models.User) bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memUsers) CreateUser(_ context.Context, user *models.User) error {
	if m.find(func(u *models.User) bool {
		return u.Username == user.Username || u.Email == user.Email || u.UniqueID == user.UniqueID
	}) != nil {
		return repositories.ErrDuplicate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uint(len(m.users) + 1)
	cp := *user
	m.users = append(m.users, &cp)
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (m *memUsers) GetUserByUniqueID(_ context.Context, uniqueID string, role models.Role) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.UniqueID == uniqueID && u.Role == role }), nil
}

func (m *memUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	u, _ := m.GetUserByUsername(ctx, username)
	return u != nil, nil
}

func (m *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	u, _ := m.GetUserByEmail(ctx, email)
	return u != nil, nil
}

func (m *memUsers) UniqueIDExists(_ context.Context, uniqueID string) (bool, error) {
	return m.find(func(u *models.User) bool { return u.UniqueID == uniqueID }) != nil, nil
}

func (m *memUsers) ListUsersByRole(_ context.Context, role models.Role, excludeID uint) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.Role == role && u.ID != excludeID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) update(id uint, fn func(*models.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			fn(u)
		}
	}
}

func (m *memUsers) UpdateUserProfile(_ context.Context, user *models.User) error {
	m.update(user.ID, func(u *models.User) { *u = *user })
	return nil
}

func (m *memUsers) UpdateProfilePhoto(_ context.Context, userID uint, path string) error {
	m.update(userID, func(u *models.User) { u.ProfilePhoto = path })
	return nil
}

func (m *memUsers) UpdateUserPassword(_ context.Context, userID uint, hashed string) error {
	m.update(userID, func(u *models.User) { u.Password = hashed })
	return nil
}

type memMessages struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (m *memMessages) Create(_ context.Context, message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	message.ID = uint(len(m.messages) + 1)
	cp := *message
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memMessages) GetByID(_ context.Context, id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memMessages) Conversation(_ context.Context, a, b uint) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Message{}
	for _, msg := range m.messages {
		pair := (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a)
		if pair && !msg.IsDeleted {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *memMessages) SoftDelete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			msg.IsDeleted = true
		}
	}
	return nil
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

type memCodes struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *memCodes) SetResetCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *memCodes) GetResetCode(_ context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email], nil
}

func (m *memCodes) DeleteResetCode(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, email)
	return nil
}

type memMailer struct {
	mu   sync.Mutex
	sent map[string]string
}

func (m *memMailer) SendResetCodeEmail(email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[email] = code
	return nil
}
