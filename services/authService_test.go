package services

import (
	"context"
	"regexp"
	"sync"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"

	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/utils"
)

type memoryCodes struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *memoryCodes) SetResetCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *memoryCodes) GetResetCode(_ context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email], nil
}

func (m *memoryCodes) DeleteResetCode(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, email)
	return nil
}

type capturedMail struct {
	to, code string
}

type memoryMailer struct {
	sent []capturedMail
}

func (m *memoryMailer) SendResetCodeEmail(email, code string) error {
	m.sent = append(m.sent, capturedMail{email, code})
	return nil
}

func newAuthFixture() (*AuthService, *fakeUsers, *noopLocker, *memoryCodes, *memoryMailer) {
	users := newFakeUsers()
	locker := &noopLocker{}
	codes := &memoryCodes{}
	mailer := &memoryMailer{}
	return NewAuthService(users, locker, codes, mailer), users, locker, codes, mailer
}

func fieldErr(err error, field string) bool {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return false
	}
	_, ok := verrs[field]
	return ok
}

func registration(username string, role models.Role, password string) utils.RegistrationForm {
	return utils.RegistrationForm{
		Username:        username,
		Email:           username + "@example.com",
		Phone:           "0712345678",
		Role:            role,
		Password:        password,
		ConfirmPassword: password,
	}
}

func TestRegister(t *testing.T) {
	svc, users, locker, _, _ := newAuthFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, registration("alice", models.RoleTherapist, "admin-secret"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !regexp.MustCompile(`^THE_\d{4}$`).MatchString(user.UniqueID) {
		t.Errorf("unique id = %q", user.UniqueID)
	}
	if user.Password == "admin-secret" || !utils.CheckPassword("admin-secret", user.Password) {
		t.Error("password was not stored as a bcrypt hash")
	}
	if len(locker.locks) != 1 || locker.locks[0] != "register_lock:alice" {
		t.Errorf("locks = %v", locker.locks)
	}
	if stored, _ := users.GetUserByUsername(ctx, "alice"); stored == nil || stored.Role != models.RoleTherapist {
		t.Errorf("stored user = %+v", stored)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		form  utils.RegistrationForm
		field string
	}{
		{"staff password without prefix", registration("bob", models.RoleDoctor, "password123"), "password"},
		{"short password", registration("bob", models.RolePatient, "short"), "password"},
		{"short username", registration("bo", models.RolePatient, "password123"), "username"},
		{"unknown role", registration("bob", models.Role("admin"), "password123"), "role"},
		{"mismatched confirmation", func() utils.RegistrationForm {
			f := registration("bob", models.RolePatient, "password123")
			f.ConfirmPassword = "password124"
			return f
		}(), "password_confirm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, _, _, _ := newAuthFixture()
			_, err := svc.Register(context.Background(), tt.form)
			if !fieldErr(err, tt.field) {
				t.Fatalf("expected %s error, got %v", tt.field, err)
			}
			if taken, _ := users.UsernameExists(context.Background(), tt.form.Username); taken {
				t.Error("invalid registration created a user")
			}
		})
	}
}

func TestRegisterStaffPasswordMessage(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	_, err := svc.Register(context.Background(), registration("doc", models.RoleDoctor, "password123"))
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if got := verrs["password"].Error(); got != "Invalid Password. Doctor/Therapist passwords must start with 'admin'." {
		t.Errorf("message = %q", got)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, users, _, _, _ := newAuthFixture()
	ctx := context.Background()
	users.add(models.RolePatient, "carol")

	_, err := svc.Register(ctx, registration("carol", models.RolePatient, "password123"))
	if !fieldErr(err, "username") {
		t.Errorf("duplicate username: %v", err)
	}

	form := registration("dave", models.RolePatient, "password123")
	form.Email = "carol@example.com"
	_, err = svc.Register(ctx, form)
	if !fieldErr(err, "email") {
		t.Errorf("duplicate email: %v", err)
	}
}

func TestRegisterRetriesUniqueIDRace(t *testing.T) {
	svc, users, _, _, _ := newAuthFixture()
	users.createErr = repositories.ErrDuplicate

	user, err := svc.Register(context.Background(), registration("erin", models.RolePatient, "password123"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Error("user was not created on retry")
	}
}

// uniqueIDIndex only answers UniqueIDExists, which is all allocation needs.
type uniqueIDIndex struct {
	repositories.UserRepository
	taken map[string]bool
	// takenWidth marks every id of this many digits as taken.
	takenWidth int
}

func (u *uniqueIDIndex) UniqueIDExists(_ context.Context, id string) (bool, error) {
	if u.takenWidth > 0 && len(id) == len("PAT_")+u.takenWidth {
		return true, nil
	}
	return u.taken[id], nil
}

func TestAllocateUniqueIDDistinct(t *testing.T) {
	index := &uniqueIDIndex{taken: map[string]bool{}}
	svc := NewAuthService(index, &noopLocker{}, &memoryCodes{}, &memoryMailer{})
	pattern := regexp.MustCompile(`^PAT_\d{4,9}$`)
	ctx := context.Background()

	const n = 10000
	wide := 0
	for i := 0; i < n; i++ {
		id, err := svc.allocateUniqueID(ctx, models.RolePatient)
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("id %q does not match pattern", id)
		}
		if index.taken[id] {
			t.Fatalf("id %q allocated twice", id)
		}
		index.taken[id] = true
		if len(id) > len("PAT_0000") {
			wide++
		}
	}
	if len(index.taken) != n {
		t.Errorf("allocated %d distinct ids, want %d", len(index.taken), n)
	}
	// 10,000 ids do not fit into the 9,000 four-digit values.
	if wide == 0 {
		t.Error("expected some ids to use a wider number")
	}
}

func TestAllocateUniqueIDWidens(t *testing.T) {
	index := &uniqueIDIndex{taken: map[string]bool{}, takenWidth: 4}
	svc := NewAuthService(index, &noopLocker{}, &memoryCodes{}, &memoryMailer{})

	id, err := svc.allocateUniqueID(context.Background(), models.RolePatient)
	if err != nil {
		t.Fatalf("allocateUniqueID: %v", err)
	}
	if !regexp.MustCompile(`^PAT_\d{5}$`).MatchString(id) {
		t.Errorf("id = %q, want five digits", id)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()
	ctx := context.Background()
	if _, err := svc.Register(ctx, registration("frank", models.RolePatient, "password123")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := svc.Authenticate(ctx, "frank", "password123")
	if err != nil || user.Username != "frank" {
		t.Fatalf("Authenticate = %v, %v", user, err)
	}
	if _, err := svc.Authenticate(ctx, "frank", "wrong-password"); !fieldErr(err, "credentials") {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "password123"); !fieldErr(err, "credentials") {
		t.Errorf("unknown user: %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	svc, users, _, codes, mailer := newAuthFixture()
	ctx := context.Background()
	user, err := svc.Register(ctx, registration("grace", models.RolePatient, "password123"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("mail sent for unknown email")
	}

	if err := svc.RequestPasswordReset(ctx, "GRACE@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != user.Email {
		t.Fatalf("sent = %+v", mailer.sent)
	}
	code := mailer.sent[0].code

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if err := svc.ResetPassword(ctx, user.Email, wrong, "newpassword1"); !fieldErr(err, "code") {
		t.Errorf("wrong code: %v", err)
	}
	if err := svc.ResetPassword(ctx, user.Email, code, "newpassword1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	stored, _ := users.GetUserByID(ctx, user.ID)
	if !utils.CheckPassword("newpassword1", stored.Password) {
		t.Error("password was not replaced")
	}
	if got, _ := codes.GetResetCode(ctx, user.Email); got != "" {
		t.Error("reset code was not deleted")
	}
}
