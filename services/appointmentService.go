package services

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/datatypes"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/utils"
)

const (
	timeLayout = "15:04"

	msgNotPending     = "This appointment is not pending or has already been processed."
	msgNotCancellable = "Only pending appointments can be cancelled."
	msgNotConfirmed   = "Only confirmed appointments can be logged as visits."
	msgVisitLogged    = "Visit already logged for this appointment."
	loggedVisitNotes  = "Visit logged. Awaiting update."
)

// AppointmentInput is the patient's booking form.
type AppointmentInput struct {
	LocationID uint   `json:"location_id" form:"location"`
	HospitalID uint   `json:"hospital_id" form:"hospital"`
	DoctorID   uint   `json:"doctor_id" form:"doctor"`
	Date       string `json:"date" form:"date"`
	Time       string `json:"time" form:"time"`
	Reason     string `json:"reason" form:"reason"`
}

func (in AppointmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.LocationID, validation.Required),
		validation.Field(&in.HospitalID, validation.Required),
		validation.Field(&in.DoctorID, validation.Required),
		validation.Field(&in.Date, validation.Required, validation.Date(dateLayout).Error("must be a valid date (YYYY-MM-DD)")),
		validation.Field(&in.Time, validation.Required, validation.Date(timeLayout).Error("must be a valid time (HH:MM)")),
	)
}

// Option is one entry of a dependent dropdown.
type Option struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type AppointmentService struct {
	appointments repositories.AppointmentRepository
	locations    repositories.LocationRepository
	users        repositories.UserRepository
	clinical     repositories.ClinicalRepository
}

func NewAppointmentService(
	appointments repositories.AppointmentRepository,
	locations repositories.LocationRepository,
	users repositories.UserRepository,
	clinical repositories.ClinicalRepository,
) *AppointmentService {
	return &AppointmentService{appointments: appointments, locations: locations, users: users, clinical: clinical}
}

// Request books a pending appointment for the calling patient.
func (s *AppointmentService) Request(ctx context.Context, p access.Principal, in AppointmentInput) (*models.Appointment, error) {
	if err := authorize(p, access.RequestAppointment, access.None); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hospital, err := s.locations.GetHospital(ctx, in.HospitalID)
	if err != nil {
		return nil, err
	}
	if hospital == nil || hospital.LocationID != in.LocationID {
		return nil, utils.FieldError("hospital", "Select a valid hospital for the chosen location.")
	}
	doctor, err := s.users.GetUserByID(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil || doctor.Role != models.RoleDoctor {
		return nil, utils.FieldError("doctor", "Select a valid doctor.")
	}

	date, _ := time.Parse(dateLayout, in.Date)
	clock, _ := time.Parse(timeLayout, in.Time)
	appointment := &models.Appointment{
		PatientID:  p.UserID,
		DoctorID:   doctor.ID,
		HospitalID: &hospital.ID,
		Date:       datatypes.Date(date),
		Time:       datatypes.NewTime(clock.Hour(), clock.Minute(), 0, 0),
		Status:     models.AppointmentPending,
		Reason:     strings.TrimSpace(in.Reason),
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, err
	}
	appointment.Doctor = *doctor
	appointment.Hospital = hospital
	log.Info().Uint("appointment_id", appointment.ID).Uint("patient_id", p.UserID).Uint("doctor_id", doctor.ID).Msg("appointment requested")
	return appointment, nil
}

// ownAppointment loads an appointment and checks the calling doctor owns it.
func (s *AppointmentService) ownAppointment(ctx context.Context, p access.Principal, action access.Action, id uint) (*models.Appointment, error) {
	if err := authorize(p, action, access.None); err != nil {
		return nil, err
	}
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrNotFound
	}
	if err := authorize(p, action, access.Owned(appointment.DoctorID)); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *AppointmentService) Confirm(ctx context.Context, p access.Principal, id uint) (*models.Appointment, error) {
	appointment, err := s.ownAppointment(ctx, p, access.ConfirmAppointment, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != models.AppointmentPending {
		return nil, conflict(msgNotPending)
	}
	if err := s.transition(ctx, appointment, []models.AppointmentStatus{models.AppointmentPending}, models.AppointmentConfirmed, msgNotPending); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Cancel applies to pending appointments only. A confirmed appointment
// leaves that state through visit logging.
func (s *AppointmentService) Cancel(ctx context.Context, p access.Principal, id uint) (*models.Appointment, error) {
	appointment, err := s.ownAppointment(ctx, p, access.CancelAppointment, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != models.AppointmentPending {
		return nil, conflict(msgNotCancellable)
	}
	if err := s.transition(ctx, appointment, []models.AppointmentStatus{models.AppointmentPending}, models.AppointmentCancelled, msgNotCancellable); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *AppointmentService) transition(ctx context.Context, appointment *models.Appointment, from []models.AppointmentStatus, to models.AppointmentStatus, staleMsg string) error {
	if err := s.appointments.TransitionStatus(ctx, appointment.ID, from, to); err != nil {
		if errors.Is(err, repositories.ErrStale) {
			return conflict(staleMsg)
		}
		return err
	}
	log.Info().Uint("appointment_id", appointment.ID).Str("from", string(appointment.Status)).Str("to", string(to)).Msg("appointment status changed")
	appointment.Status = to
	return nil
}

// LogVisit records a pending visit for a confirmed appointment and marks the
// appointment completed.
func (s *AppointmentService) LogVisit(ctx context.Context, p access.Principal, id uint) (*models.VisitRecord, error) {
	appointment, err := s.ownAppointment(ctx, p, access.LogVisit, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != models.AppointmentConfirmed {
		return nil, conflict(msgNotConfirmed)
	}
	exists, err := s.clinical.VisitRecordExists(ctx, appointment.DoctorID, appointment.PatientID, time.Time(appointment.Date))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, conflict(msgVisitLogged)
	}

	record := &models.VisitRecord{
		PatientID:        appointment.PatientID,
		DoctorID:         appointment.DoctorID,
		VisitDate:        appointment.Date,
		HospitalName:     appointment.HospitalName(),
		DoctorName:       appointment.Doctor.FullName(),
		CurrentStatus:    models.VisitPending,
		ImprovementScore: 0,
		DoctorNotes:      loggedVisitNotes,
	}
	record.FillSummary()
	if err := s.appointments.CompleteWithVisit(ctx, appointment.ID, record); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, conflict(msgVisitLogged)
		case errors.Is(err, repositories.ErrStale):
			return nil, conflict(msgNotConfirmed)
		}
		return nil, err
	}
	log.Info().Uint("appointment_id", appointment.ID).Uint("visit_record_id", record.ID).Msg("visit logged")
	record.Patient = appointment.Patient
	return record, nil
}

func (s *AppointmentService) Locations(ctx context.Context) ([]Option, error) {
	locations, err := s.locations.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(locations, func(l models.Location, _ int) Option {
		return Option{ID: l.ID, Name: l.Name}
	}), nil
}

// HospitalsForLocation feeds the hospital dropdown once a location is chosen.
func (s *AppointmentService) HospitalsForLocation(ctx context.Context, locationID uint) ([]Option, error) {
	hospitals, err := s.locations.HospitalsByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return lo.Map(hospitals, func(h models.Hospital, _ int) Option {
		return Option{ID: h.ID, Name: h.Name}
	}), nil
}

func (s *AppointmentService) Doctors(ctx context.Context) ([]Option, error) {
	doctors, err := s.users.ListUsersByRole(ctx, models.RoleDoctor, 0)
	if err != nil {
		return nil, err
	}
	return lo.Map(doctors, func(d models.User, _ int) Option {
		return Option{ID: d.ID, Name: d.FullName()}
	}), nil
}
