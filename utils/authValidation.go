package utils

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pkg/errors"

	"SmartHealth/models"
)

// Validation errors
var (
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrStaffPasswordPrefix = errors.New("Invalid Password. Doctor/Therapist passwords must start with 'admin'.")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrInvalidResetCode    = errors.New("invalid reset code")
)

// StaffPasswordPrefix is required at the start of doctor and therapist passwords.
const StaffPasswordPrefix = "admin"

// RegistrationForm is the sign-up payload.
type RegistrationForm struct {
	Username        string      `json:"username" form:"username"`
	Email           string      `json:"email" form:"email"`
	Phone           string      `json:"phone" form:"phone"`
	Role            models.Role `json:"role" form:"role"`
	Password        string      `json:"password" form:"password"`
	ConfirmPassword string      `json:"password_confirm" form:"password_confirm"`
}

// ValidateRegistration validates the form with ozzo-validation. Errors are
// keyed by the json field names.
func ValidateRegistration(form RegistrationForm) error {
	return validation.ValidateStruct(&form,
		validation.Field(&form.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&form.Email, validation.Required, is.Email),
		validation.Field(&form.Phone, validation.Required, validation.Length(1, 15)),
		validation.Field(&form.Role, validation.Required, validation.In(models.RolePatient, models.RoleDoctor, models.RoleTherapist)),
		validation.Field(&form.Password, validation.Required.Error("password cannot be blank"), PasswordRule(form.Role)),
		validation.Field(&form.ConfirmPassword, validation.Required, validation.By(matches(form.Password))),
	)
}

// ValidatePasswordReset validates the reset code and new password.
func ValidatePasswordReset(resetCode, newPassword string, role models.Role) error {
	return validation.Errors{
		"code":     validation.Validate(resetCode, validation.Required.Error("invalid reset code")),
		"password": validation.Validate(newPassword, validation.Required, PasswordRule(role)),
	}.Filter()
}

// PasswordRule enforces the minimum length and, for staff, the admin prefix.
func PasswordRule(role models.Role) validation.Rule {
	return validation.By(func(value interface{}) error {
		password, _ := value.(string)
		if len(password) < 8 {
			return ErrPasswordTooShort
		}
		if role.Staff() && !strings.HasPrefix(password, StaffPasswordPrefix) {
			return ErrStaffPasswordPrefix
		}
		return nil
	})
}

func matches(password string) validation.RuleFunc {
	return func(value interface{}) error {
		if confirm, _ := value.(string); confirm != password {
			return ErrPasswordMismatch
		}
		return nil
	}
}

// FieldError builds a single-field validation error, for checks that need
// the database such as username uniqueness.
func FieldError(field, message string) error {
	return validation.Errors{field: errors.New(message)}
}
