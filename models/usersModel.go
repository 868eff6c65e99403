package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Role tags every account and drives the access allow-list
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleTherapist Role = "therapist"
)

// Roles lists the assignable roles in display order.
var Roles = []Role{RolePatient, RoleDoctor, RoleTherapist}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleTherapist:
		return true
	}
	return false
}

// Prefix is the first three letters of the role, upper-cased.
func (r Role) Prefix() string {
	s := strings.ToUpper(string(r))
	if len(s) > 3 {
		s = s[:3]
	}
	return s
}

// Staff reports whether the role belongs to clinical staff.
func (r Role) Staff() bool {
	return r == RoleDoctor || r == RoleTherapist
}

// User is the single account entity for all three roles
type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Username     string     `gorm:"size:150;not null;uniqueIndex;column:username" json:"username"`
	Email        string     `gorm:"size:255;not null;uniqueIndex;column:email" json:"email"`
	Password     string     `gorm:"size:255;not null;column:password" json:"-"`
	FirstName    string     `gorm:"size:150;column:first_name" json:"first_name"`
	LastName     string     `gorm:"size:150;column:last_name" json:"last_name"`
	Role         Role       `gorm:"size:10;not null;index;column:role;check:role IN ('patient', 'doctor', 'therapist')" json:"role"`
	UniqueID     string     `gorm:"size:20;not null;uniqueIndex;column:unique_id" json:"unique_id"`
	Phone        string     `gorm:"size:15;column:phone" json:"phone"`
	DateOfBirth  *time.Time `gorm:"type:date;column:dob" json:"dob,omitempty"`
	Location     string     `gorm:"size:100;column:location" json:"location,omitempty"`
	ProfilePhoto string     `gorm:"size:255;column:profile_photo" json:"profile_photo,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// FullName falls back to the username when no name is set.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Age in whole years at now, nil without a date of birth.
func (u User) Age(now time.Time) *int {
	if u.DateOfBirth == nil {
		return nil
	}
	dob := *u.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return &age
}

// GenerateUniqueID builds "<PREFIX>_<n>" where n has exactly digits digits.
func GenerateUniqueID(role Role, digits int, rng *rand.Rand) string {
	if digits < 1 {
		digits = 1
	}
	low := 1
	for i := 1; i < digits; i++ {
		low *= 10
	}
	n := low + rng.Intn(9*low)
	return fmt.Sprintf("%s_%d", role.Prefix(), n)
}
