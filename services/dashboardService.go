package services

import (
	"context"

	"github.com/samber/lo"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/repositories"
)

const recentVisitLimit = 10

type PatientHome struct {
	User              *models.User         `json:"user"`
	TaskTypes         []models.Choice      `json:"task_types"`
	ActiveTask        *models.PatientTask  `json:"active_task,omitempty"`
	CompletedTasks    []models.PatientTask `json:"completed_tasks"`
	LatestAppointment *models.Appointment  `json:"latest_appointment,omitempty"`
	Locations         []Option             `json:"locations"`
	Doctors           []Option             `json:"doctors"`
}

type DoctorDashboard struct {
	Pending      []models.Appointment  `json:"pending_appointments"`
	Confirmed    []models.Appointment  `json:"confirmed_appointments"`
	Completed    []models.Appointment  `json:"completed_appointments"`
	Cancelled    []models.Appointment  `json:"cancelled_appointments"`
	RecentVisits []models.PatientVisit `json:"recent_visits"`
	VisitRecords []models.VisitRecord  `json:"visit_records"`
	AlertBoard
}

type TherapistDashboard struct {
	Patients []models.User `json:"patients"`
	AlertBoard
}

// DashboardService assembles the landing page of each role.
type DashboardService struct {
	users        repositories.UserRepository
	tasks        repositories.TaskRepository
	appointments repositories.AppointmentRepository
	clinical     repositories.ClinicalRepository
	booking      *AppointmentService
	sos          *SOSService
}

func NewDashboardService(
	users repositories.UserRepository,
	tasks repositories.TaskRepository,
	appointments repositories.AppointmentRepository,
	clinical repositories.ClinicalRepository,
	booking *AppointmentService,
	sos *SOSService,
) *DashboardService {
	return &DashboardService{users: users, tasks: tasks, appointments: appointments, clinical: clinical, booking: booking, sos: sos}
}

func (s *DashboardService) PatientHome(ctx context.Context, p access.Principal) (*PatientHome, error) {
	if err := authorize(p, access.PatientDashboard, access.None); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	home := &PatientHome{User: user, TaskTypes: models.TaskTypeChoices()}
	if home.ActiveTask, err = s.tasks.ActiveForPatient(ctx, user.ID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByPatient(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	home.CompletedTasks = lo.Filter(tasks, func(t models.PatientTask, _ int) bool {
		return t.Status == models.TaskCompleted
	})
	if home.LatestAppointment, err = s.appointments.LatestForPatient(ctx, user.ID); err != nil {
		return nil, err
	}
	if home.Locations, err = s.booking.Locations(ctx); err != nil {
		return nil, err
	}
	if home.Doctors, err = s.booking.Doctors(ctx); err != nil {
		return nil, err
	}
	return home, nil
}

func (s *DashboardService) DoctorDashboard(ctx context.Context, p access.Principal) (*DoctorDashboard, error) {
	if err := authorize(p, access.DoctorDashboard, access.None); err != nil {
		return nil, err
	}
	dashboard := &DoctorDashboard{}
	lists := map[models.AppointmentStatus]*[]models.Appointment{
		models.AppointmentPending:   &dashboard.Pending,
		models.AppointmentConfirmed: &dashboard.Confirmed,
		models.AppointmentCompleted: &dashboard.Completed,
		models.AppointmentCancelled: &dashboard.Cancelled,
	}
	for status, dest := range lists {
		appointments, err := s.appointments.ListForDoctor(ctx, p.UserID, status)
		if err != nil {
			return nil, err
		}
		*dest = appointments
	}

	var err error
	if dashboard.RecentVisits, err = s.clinical.ListPatientVisitsByDoctor(ctx, p.UserID, recentVisitLimit); err != nil {
		return nil, err
	}
	if dashboard.VisitRecords, err = s.clinical.ListVisitRecordsByDoctor(ctx, p.UserID); err != nil {
		return nil, err
	}
	if dashboard.AlertBoard, err = s.sos.board(ctx); err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (s *DashboardService) TherapistDashboard(ctx context.Context, p access.Principal) (*TherapistDashboard, error) {
	if err := authorize(p, access.TherapistDashboard, access.None); err != nil {
		return nil, err
	}
	patients, err := s.users.ListUsersByRole(ctx, models.RolePatient, 0)
	if err != nil {
		return nil, err
	}
	dashboard := &TherapistDashboard{Patients: patients}
	if dashboard.AlertBoard, err = s.sos.board(ctx); err != nil {
		return nil, err
	}
	return dashboard, nil
}
