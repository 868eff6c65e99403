// Package access holds the role allow-list consulted before every
// operation, kept apart from HTTP handling so it can be checked directly.
package access

import (
	"github.com/pkg/errors"

	"SmartHealth/models"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("role not allowed")
	ErrNotOwner        = errors.New("record not owned by caller")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID   uint
	Role     models.Role
	UniqueID string
}

func (p Principal) Authenticated() bool {
	return p.UserID != 0 && p.Role.Valid()
}

type Action string

const (
	ViewPatientProfile   Action = "profile.patient"
	ViewDoctorProfile    Action = "profile.doctor"
	ViewTherapistProfile Action = "profile.therapist"
	DeleteProfilePhoto   Action = "profile.photo.delete"

	PatientDashboard   Action = "dashboard.patient"
	DoctorDashboard    Action = "dashboard.doctor"
	TherapistDashboard Action = "dashboard.therapist"

	StartTask    Action = "task.start"
	CompleteTask Action = "task.complete"
	TaskFeedback Action = "task.feedback"

	RequestAppointment Action = "appointment.request"
	ConfirmAppointment Action = "appointment.confirm"
	CancelAppointment  Action = "appointment.cancel"
	LogVisit           Action = "visit.log"
	UpdateVisitRecord  Action = "visitrecord.update"
	CreateVisitRecord  Action = "visitrecord.create"

	SubmitPatientVisit Action = "visit.submit"
	ListPatientVisits  Action = "visit.list"
	AddTherapistNotes  Action = "visit.notes"

	SubmitHealthLog Action = "healthlog.submit"
	ListHealthLogs  Action = "healthlog.list"
	LogMood         Action = "mood.log"
	RecordScore     Action = "score.record"

	LookupPatient Action = "patient.lookup"
	ViewPatient   Action = "patient.view"
	ViewProgress  Action = "progress.view"

	ListMessages  Action = "message.list"
	SendMessage   Action = "message.send"
	DeleteMessage Action = "message.delete"

	SendSOS        Action = "sos.send"
	AcknowledgeSOS Action = "sos.acknowledge"
	ResolveSOS     Action = "sos.resolve"

	UploadVideo   Action = "video.upload"
	ListOwnVideos Action = "video.mine"
	ListVideos    Action = "video.list"
	WatchVideo    Action = "video.watch"
	DeleteVideo   Action = "video.delete"
)

var (
	patientOnly   = []models.Role{models.RolePatient}
	doctorOnly    = []models.Role{models.RoleDoctor}
	therapistOnly = []models.Role{models.RoleTherapist}
	staff         = []models.Role{models.RoleDoctor, models.RoleTherapist}
	everyone      = models.Roles
)

type rule struct {
	roles []models.Role
	owned bool
}

var rules = map[Action]rule{
	ViewPatientProfile:   {roles: patientOnly},
	ViewDoctorProfile:    {roles: doctorOnly},
	ViewTherapistProfile: {roles: therapistOnly},
	DeleteProfilePhoto:   {roles: everyone, owned: true},

	PatientDashboard:   {roles: patientOnly},
	DoctorDashboard:    {roles: doctorOnly},
	TherapistDashboard: {roles: therapistOnly},

	StartTask:    {roles: patientOnly},
	CompleteTask: {roles: patientOnly, owned: true},
	TaskFeedback: {roles: therapistOnly},

	RequestAppointment: {roles: patientOnly},
	ConfirmAppointment: {roles: doctorOnly, owned: true},
	CancelAppointment:  {roles: doctorOnly, owned: true},
	LogVisit:           {roles: doctorOnly, owned: true},
	UpdateVisitRecord:  {roles: doctorOnly, owned: true},
	CreateVisitRecord:  {roles: doctorOnly},

	SubmitPatientVisit: {roles: patientOnly},
	ListPatientVisits:  {roles: []models.Role{models.RolePatient, models.RoleTherapist}},
	AddTherapistNotes:  {roles: therapistOnly},

	SubmitHealthLog: {roles: patientOnly},
	ListHealthLogs:  {roles: patientOnly},
	LogMood:         {roles: patientOnly},
	RecordScore:     {roles: staff},

	LookupPatient: {roles: staff},
	ViewPatient:   {roles: staff},
	ViewProgress:  {roles: everyone},

	ListMessages:  {roles: everyone},
	SendMessage:   {roles: everyone},
	DeleteMessage: {roles: everyone, owned: true},

	SendSOS:        {roles: patientOnly},
	AcknowledgeSOS: {roles: staff},
	ResolveSOS:     {roles: staff},

	UploadVideo:   {roles: therapistOnly},
	ListOwnVideos: {roles: therapistOnly},
	ListVideos:    {roles: patientOnly},
	WatchVideo:    {roles: patientOnly},
	DeleteVideo:   {roles: therapistOnly, owned: true},
}

// Resource identifies the record an action touches. A zero OwnerID skips
// the ownership check, e.g. before the record has been loaded.
type Resource struct {
	OwnerID uint
}

func Owned(ownerID uint) Resource {
	return Resource{OwnerID: ownerID}
}

var None = Resource{}

// Allowed reports whether role may perform action at all.
func Allowed(role models.Role, action Action) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Authorize checks the allow-list and, for owned actions, that the caller
// owns the resource. Unknown actions are always denied.
func Authorize(p Principal, action Action, res Resource) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	if !Allowed(p.Role, action) {
		return errors.Wrapf(ErrForbidden, "%s may not %s", p.Role, action)
	}
	if rules[action].owned && res.OwnerID != 0 && res.OwnerID != p.UserID {
		return errors.Wrapf(ErrNotOwner, "%s", action)
	}
	return nil
}

// ProfileAction maps a role to the profile page action it owns.
func ProfileAction(role models.Role) Action {
	switch role {
	case models.RoleDoctor:
		return ViewDoctorProfile
	case models.RoleTherapist:
		return ViewTherapistProfile
	}
	return ViewPatientProfile
}
