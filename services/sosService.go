package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/notifications"
	"SmartHealth/repositories"
)

const (
	// RecentAcknowledgedLimit caps the acknowledged alerts shown on dashboards.
	RecentAcknowledgedLimit = 10

	msgAlertResolved = "This alert has already been resolved."
	notifyTimeout    = 10 * time.Second
)

type SOSService struct {
	alerts   repositories.SOSRepository
	users    repositories.UserRepository
	notifier notifications.Notifier
	now      Clock
	inflight sync.WaitGroup
}

func NewSOSService(alerts repositories.SOSRepository, users repositories.UserRepository, notifier notifications.Notifier) *SOSService {
	return &SOSService{alerts: alerts, users: users, notifier: notifier, now: time.Now}
}

// Send raises an alert for the calling patient and notifies all staff.
// Notification failures are logged and never fail the alert.
func (s *SOSService) Send(ctx context.Context, p access.Principal, message string) (*models.SOSAlert, error) {
	if err := authorize(p, access.SendSOS, access.None); err != nil {
		return nil, err
	}
	patient, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrUnauthenticated
	}

	alert := &models.SOSAlert{
		PatientID: patient.ID,
		Status:    models.SOSActive,
		CreatedAt: s.now(),
	}
	if message = strings.TrimSpace(message); message != "" {
		alert.Message = &message
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	alert.Patient = *patient
	log.Warn().Uint("alert_id", alert.ID).Str("patient", patient.UniqueID).Msg("sos alert raised")

	event := notifications.SOSEvent{
		AlertID:         alert.ID,
		PatientID:       alert.PatientID,
		PatientUniqueID: patient.UniqueID,
		PatientName:     patient.FullName(),
		Message:         lo.FromPtr(alert.Message),
		CreatedAt:       alert.CreatedAt,
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.notify(context.WithoutCancel(ctx), event)
	}()
	return alert, nil
}

// Drain blocks until every staff notification started by Send has finished.
func (s *SOSService) Drain() {
	s.inflight.Wait()
}

// notify runs after the request has been answered, on its own deadline.
func (s *SOSService) notify(ctx context.Context, event notifications.SOSEvent) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	recipients, err := s.staffEmails(ctx)
	if err != nil {
		log.Error().Err(err).Uint("alert_id", event.AlertID).Msg("failed to load sos recipients")
	}
	event.Recipients = recipients
	if err := s.notifier.NotifySOS(ctx, event); err != nil {
		log.Error().Err(err).Uint("alert_id", event.AlertID).Msg("failed to notify staff of sos alert")
	}
}

func (s *SOSService) staffEmails(ctx context.Context) ([]string, error) {
	var staff []models.User
	for _, role := range []models.Role{models.RoleDoctor, models.RoleTherapist} {
		users, err := s.users.ListUsersByRole(ctx, role, 0)
		if err != nil {
			return nil, err
		}
		staff = append(staff, users...)
	}
	emails := lo.FilterMap(staff, func(u models.User, _ int) (string, bool) {
		return u.Email, u.Email != ""
	})
	return lo.Uniq(emails), nil
}

// Acknowledge records the caller's role acknowledgment. The alert becomes
// acknowledged once both a doctor and a therapist have acknowledged it.
func (s *SOSService) Acknowledge(ctx context.Context, p access.Principal, id uint) (*models.SOSAlert, error) {
	alert, err := s.openAlert(ctx, p, access.AcknowledgeSOS, id)
	if err != nil {
		return nil, err
	}
	if err := s.alerts.Acknowledge(ctx, alert.ID, p.Role, s.now()); err != nil {
		if errors.Is(err, repositories.ErrStale) {
			return nil, conflict(msgAlertResolved)
		}
		return nil, err
	}
	log.Info().Uint("alert_id", alert.ID).Str("role", string(p.Role)).Uint("user_id", p.UserID).Msg("sos alert acknowledged")
	return s.reload(ctx, alert.ID)
}

func (s *SOSService) Resolve(ctx context.Context, p access.Principal, id uint) (*models.SOSAlert, error) {
	alert, err := s.openAlert(ctx, p, access.ResolveSOS, id)
	if err != nil {
		return nil, err
	}
	if err := s.alerts.Resolve(ctx, alert.ID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrStale) {
			return nil, conflict(msgAlertResolved)
		}
		return nil, err
	}
	log.Info().Uint("alert_id", alert.ID).Uint("user_id", p.UserID).Msg("sos alert resolved")
	return s.reload(ctx, alert.ID)
}

func (s *SOSService) openAlert(ctx context.Context, p access.Principal, action access.Action, id uint) (*models.SOSAlert, error) {
	if err := authorize(p, action, access.None); err != nil {
		return nil, err
	}
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	if alert.Status == models.SOSResolved {
		return nil, conflict(msgAlertResolved)
	}
	return alert, nil
}

func (s *SOSService) reload(ctx context.Context, id uint) (*models.SOSAlert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	return alert, nil
}

// AlertBoard is the alert panel shared by the staff dashboards.
type AlertBoard struct {
	Active       []models.SOSAlert `json:"active_alerts"`
	Acknowledged []models.SOSAlert `json:"acknowledged_alerts"`
}

func (s *SOSService) board(ctx context.Context) (AlertBoard, error) {
	active, err := s.alerts.ListActive(ctx)
	if err != nil {
		return AlertBoard{}, err
	}
	acknowledged, err := s.alerts.ListRecentAcknowledged(ctx, RecentAcknowledgedLimit)
	if err != nil {
		return AlertBoard{}, err
	}
	return AlertBoard{Active: active, Acknowledged: acknowledged}, nil
}
