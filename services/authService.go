package services

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"SmartHealth/database"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/utils"
)

const (
	// uniqueIDAttempts random draws are tried per digit width before widening.
	uniqueIDAttempts = 8
	uniqueIDDigits   = 4
	uniqueIDMaxWidth = 9

	registerLockTTL = 10 * time.Second
	createAttempts  = 3
)

var errInvalidCredentials = utils.FieldError("credentials", "Please enter a correct username and password.")

type resetCodeStore interface {
	SetResetCode(ctx context.Context, email, code string) error
	GetResetCode(ctx context.Context, email string) (string, error)
	DeleteResetCode(ctx context.Context, email string) error
}

type resetMailer interface {
	SendResetCodeEmail(email, code string) error
}

type AuthService struct {
	users  repositories.UserRepository
	locker database.Locker
	codes  resetCodeStore
	mailer resetMailer

	mu  sync.Mutex
	rng *rand.Rand
}

func NewAuthService(users repositories.UserRepository, locker database.Locker, codes resetCodeStore, mailer resetMailer) *AuthService {
	return &AuthService{
		users:  users,
		locker: locker,
		codes:  codes,
		mailer: mailer,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register validates the form, allocates a unique id and stores the user
// with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, form utils.RegistrationForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(strings.ToLower(form.Email))
	if err := utils.ValidateRegistration(form); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, "register_lock:"+form.Username, registerLockTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock registration")
	}
	defer unlock()

	if err := s.checkAvailable(ctx, form); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(form.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		uniqueID, err := s.allocateUniqueID(ctx, form.Role)
		if err != nil {
			return nil, err
		}
		user := &models.User{
			Username: form.Username,
			Email:    form.Email,
			Phone:    form.Phone,
			Role:     form.Role,
			Password: hashed,
			UniqueID: uniqueID,
		}
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			log.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Str("unique_id", uniqueID).Msg("user registered")
			return user, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, err
		}
		// Lost a race on username, email or unique_id. Report the first two,
		// retry the last with a fresh id.
		if err := s.checkAvailable(ctx, form); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("failed to allocate a unique id")
}

func (s *AuthService) checkAvailable(ctx context.Context, form utils.RegistrationForm) error {
	taken, err := s.users.UsernameExists(ctx, form.Username)
	if err != nil {
		return err
	}
	if taken {
		return utils.FieldError("username", "A user with that username already exists.")
	}
	taken, err = s.users.EmailExists(ctx, form.Email)
	if err != nil {
		return err
	}
	if taken {
		return utils.FieldError("email", "A user with that email already exists.")
	}
	return nil
}

// allocateUniqueID draws random ids, widening by one digit whenever a width
// keeps colliding.
func (s *AuthService) allocateUniqueID(ctx context.Context, role models.Role) (string, error) {
	for digits := uniqueIDDigits; digits <= uniqueIDMaxWidth; digits++ {
		for i := 0; i < uniqueIDAttempts; i++ {
			candidate := s.draw(role, digits)
			exists, err := s.users.UniqueIDExists(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !exists {
				return candidate, nil
			}
		}
		log.Debug().Int("digits", digits).Str("role", string(role)).Msg("unique id width exhausted, widening")
	}
	return "", errors.New("unique id space exhausted")
}

func (s *AuthService) draw(role models.Role, digits int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.GenerateUniqueID(role, digits, s.rng)
}

// Authenticate checks username and password.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPassword(password, user.Password) {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset emails a reset code. Unknown emails succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		log.Info().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}

	s.mu.Lock()
	code := utils.GenerateResetCode(s.rng)
	s.mu.Unlock()

	if err := s.codes.SetResetCode(ctx, email, code); err != nil {
		return errors.Wrap(err, "failed to store reset code")
	}
	return s.mailer.SendResetCodeEmail(email, code)
}

// ResetPassword replaces the password when the emailed code matches.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	role := models.RolePatient
	if user != nil {
		role = user.Role
	}
	if err := utils.ValidatePasswordReset(code, newPassword, role); err != nil {
		return err
	}
	stored, err := s.codes.GetResetCode(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || stored == "" || stored != code {
		return utils.FieldError("code", utils.ErrInvalidResetCode.Error())
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
		return err
	}
	if err := s.codes.DeleteResetCode(ctx, email); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("failed to delete reset code")
	}
	return nil
}
