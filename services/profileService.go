package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/storage"
	"SmartHealth/utils"
)

const (
	dateLayout  = "2006-01-02"
	chartLayout = "02 Jan"
	weekWindow  = 7 * 24 * time.Hour
)

// ProfileInput holds the editable profile fields. DateOfBirth and Location
// only apply to patients.
type ProfileInput struct {
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	Email       string `json:"email" form:"email"`
	Phone       string `json:"phone" form:"phone"`
	DateOfBirth string `json:"dob" form:"dob"`
	Location    string `json:"location" form:"location"`
	DeletePhoto bool   `json:"delete_photo" form:"delete_photo"`
}

func (in ProfileInput) Validate(role models.Role) error {
	rules := []*validation.FieldRules{
		validation.Field(&in.FirstName, validation.Length(0, 150)),
		validation.Field(&in.LastName, validation.Length(0, 150)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Phone, validation.Length(0, 15)),
	}
	if role == models.RolePatient {
		rules = append(rules,
			validation.Field(&in.DateOfBirth, validation.Date(dateLayout).Error("must be a valid date (YYYY-MM-DD)")),
			validation.Field(&in.Location, validation.Length(0, 100)),
		)
	}
	return validation.ValidateStruct(&in, rules...)
}

// WeeklyProgress summarises the last seven days for a patient.
type WeeklyProgress struct {
	CompletedTasks int64                     `json:"completed_tasks"`
	MoodCounts     []repositories.MoodCount `json:"mood_counts"`
	AverageScore   float64                   `json:"average_score"`
	Summary        string                    `json:"summary"`
}

type ProfileView struct {
	User           *models.User         `json:"user"`
	Age            *int                 `json:"age,omitempty"`
	CompletedTasks []models.PatientTask `json:"completed_tasks,omitempty"`
	ActiveTask     *models.PatientTask  `json:"active_task,omitempty"`
	WeeklyProgress *WeeklyProgress      `json:"weekly_progress,omitempty"`
	MoodColor      string               `json:"mood_color,omitempty"`
}

// Chart pairs visit dates with improvement scores.
type Chart struct {
	Dates  []string `json:"dates"`
	Scores []int    `json:"scores"`
}

type PatientOverview struct {
	Patient      *models.User          `json:"patient"`
	Age          *int                  `json:"age,omitempty"`
	Tasks        []models.PatientTask  `json:"tasks"`
	Visits       []models.PatientVisit `json:"visits"`
	VisitRecords []models.VisitRecord  `json:"visit_records"`
	TaskSummary  TaskSummary           `json:"task_summary"`
	Alerts       []models.SOSAlert     `json:"alerts"`
	Chart        Chart                 `json:"chart"`
}

type ProfileService struct {
	users    repositories.UserRepository
	tasks    repositories.TaskRepository
	clinical repositories.ClinicalRepository
	alerts   repositories.SOSRepository
	media    storage.MediaStore
	now      Clock
}

func NewProfileService(
	users repositories.UserRepository,
	tasks repositories.TaskRepository,
	clinical repositories.ClinicalRepository,
	alerts repositories.SOSRepository,
	media storage.MediaStore,
) *ProfileService {
	return &ProfileService{users: users, tasks: tasks, clinical: clinical, alerts: alerts, media: media, now: time.Now}
}

// GetProfile loads the caller's profile page. page is the role whose page
// was requested; a mismatch is denied.
func (s *ProfileService) GetProfile(ctx context.Context, p access.Principal, page models.Role) (*ProfileView, error) {
	if err := authorize(p, access.ProfileAction(page), access.Owned(p.UserID)); err != nil {
		return nil, err
	}
	user, err := s.loadSelf(ctx, p)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{User: user}
	if user.Role != models.RolePatient {
		return view, nil
	}

	now := s.now()
	view.Age = user.Age(now)
	tasks, err := s.tasks.ListByPatient(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	view.CompletedTasks = lo.Filter(tasks, func(t models.PatientTask, _ int) bool {
		return t.Status == models.TaskCompleted
	})
	if view.ActiveTask, err = s.tasks.ActiveForPatient(ctx, user.ID); err != nil {
		return nil, err
	}
	if view.WeeklyProgress, err = s.weeklyProgress(ctx, user.ID, now); err != nil {
		return nil, err
	}
	latest, err := s.clinical.LatestMood(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	view.MoodColor = models.DefaultMoodColor
	if latest != nil {
		view.MoodColor = models.MoodColor(latest.Mood)
	}
	return view, nil
}

// UpdateProfile saves the editable fields and, optionally, a new photo.
func (s *ProfileService) UpdateProfile(ctx context.Context, p access.Principal, page models.Role, in ProfileInput, photo *storage.Upload) (*models.User, error) {
	if err := authorize(p, access.ProfileAction(page), access.Owned(p.UserID)); err != nil {
		return nil, err
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := in.Validate(p.Role); err != nil {
		return nil, err
	}
	if photo != nil && (!strings.HasPrefix(photo.ContentType, "image/") || !storage.IsImage(photo.Filename)) {
		return nil, utils.FieldError("profile_photo", "Upload a valid image.")
	}

	user, err := s.loadSelf(ctx, p)
	if err != nil {
		return nil, err
	}
	if in.Email != user.Email {
		taken, err := s.users.EmailExists(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, utils.FieldError("email", "A user with that email already exists.")
		}
	}

	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Email = in.Email
	user.Phone = strings.TrimSpace(in.Phone)
	if user.Role == models.RolePatient {
		user.Location = strings.TrimSpace(in.Location)
		user.DateOfBirth = nil
		if in.DateOfBirth != "" {
			dob, _ := time.Parse(dateLayout, in.DateOfBirth)
			user.DateOfBirth = &dob
		}
	}
	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, utils.FieldError("email", "A user with that email already exists.")
		}
		return nil, err
	}

	switch {
	case photo != nil:
		key, err := s.media.Save(ctx, storage.ProfilePhotos, photo)
		if err != nil {
			return nil, err
		}
		if err := s.replacePhoto(ctx, user, key); err != nil {
			return nil, err
		}
	case in.DeletePhoto && user.ProfilePhoto != "":
		if err := s.replacePhoto(ctx, user, ""); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// DeletePhoto removes the caller's photo. It reports false when there was
// nothing to delete.
func (s *ProfileService) DeletePhoto(ctx context.Context, p access.Principal) (bool, error) {
	if err := authorize(p, access.DeleteProfilePhoto, access.Owned(p.UserID)); err != nil {
		return false, err
	}
	user, err := s.loadSelf(ctx, p)
	if err != nil {
		return false, err
	}
	if user.ProfilePhoto == "" {
		return false, nil
	}
	return true, s.replacePhoto(ctx, user, "")
}

func (s *ProfileService) replacePhoto(ctx context.Context, user *models.User, key string) error {
	old := user.ProfilePhoto
	if err := s.users.UpdateProfilePhoto(ctx, user.ID, key); err != nil {
		return err
	}
	user.ProfilePhoto = key
	if old != "" {
		if err := s.media.Delete(ctx, old); err != nil {
			log.Warn().Err(err).Str("key", old).Msg("failed to delete old profile photo")
		}
	}
	return nil
}

func (s *ProfileService) loadSelf(ctx context.Context, p access.Principal) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// LookupPatient finds a patient by unique id.
func (s *ProfileService) LookupPatient(ctx context.Context, p access.Principal, uniqueID string) (*models.User, error) {
	if err := authorize(p, access.LookupPatient, access.None); err != nil {
		return nil, err
	}
	return s.patientByUniqueID(ctx, uniqueID)
}

func (s *ProfileService) patientByUniqueID(ctx context.Context, uniqueID string) (*models.User, error) {
	patient, err := s.users.GetUserByUniqueID(ctx, strings.ToUpper(strings.TrimSpace(uniqueID)), models.RolePatient)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, errors.Wrap(ErrNotFound, "patient not found")
	}
	return patient, nil
}

// PatientOverview is the staff view of one patient.
func (s *ProfileService) PatientOverview(ctx context.Context, p access.Principal, uniqueID string) (*PatientOverview, error) {
	if err := authorize(p, access.ViewPatient, access.None); err != nil {
		return nil, err
	}
	patient, err := s.patientByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	overview := &PatientOverview{Patient: patient, Age: patient.Age(now)}
	if overview.Tasks, err = s.tasks.ListByPatient(ctx, patient.ID); err != nil {
		return nil, err
	}
	if overview.Visits, err = s.clinical.ListPatientVisits(ctx, patient.ID); err != nil {
		return nil, err
	}
	if overview.VisitRecords, err = s.clinical.ListVisitRecordsByPatient(ctx, patient.ID); err != nil {
		return nil, err
	}
	if overview.Alerts, err = s.alerts.ListByPatient(ctx, patient.ID); err != nil {
		return nil, err
	}
	overview.TaskSummary = SummarizeTasks(overview.Tasks, now)
	overview.Chart = BuildChart(overview.VisitRecords)
	return overview, nil
}

// ProgressChart plots a patient's visit record scores. Patients may only
// see their own chart.
func (s *ProfileService) ProgressChart(ctx context.Context, p access.Principal, patientID uint) (*Chart, error) {
	if err := authorize(p, access.ViewProgress, access.None); err != nil {
		return nil, err
	}
	if p.Role == models.RolePatient && p.UserID != patientID {
		return nil, ErrNotFound
	}
	patient, err := s.users.GetUserByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient == nil || patient.Role != models.RolePatient {
		return nil, errors.Wrap(ErrNotFound, "patient not found")
	}
	records, err := s.clinical.ListVisitRecordsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	chart := BuildChart(records)
	return &chart, nil
}

// BuildChart expects records in visit date order.
func BuildChart(records []models.VisitRecord) Chart {
	return Chart{
		Dates: lo.Map(records, func(r models.VisitRecord, _ int) string {
			return time.Time(r.VisitDate).Format(chartLayout)
		}),
		Scores: lo.Map(records, func(r models.VisitRecord, _ int) int {
			return r.ImprovementScore
		}),
	}
}

func (s *ProfileService) weeklyProgress(ctx context.Context, patientID uint, now time.Time) (*WeeklyProgress, error) {
	since := now.Add(-weekWindow)
	completed, err := s.tasks.CountCompletedSince(ctx, patientID, since)
	if err != nil {
		return nil, err
	}
	moods, err := s.clinical.MoodCountsSince(ctx, patientID, since)
	if err != nil {
		return nil, err
	}
	avg, err := s.clinical.AverageScoreSince(ctx, patientID, since)
	if err != nil {
		return nil, err
	}
	return NewWeeklyProgress(completed, moods, avg), nil
}

// NewWeeklyProgress rounds the average to one decimal; no scores count as 0.
func NewWeeklyProgress(completed int64, moods []repositories.MoodCount, avg *float64) *WeeklyProgress {
	score := 0.0
	if avg != nil {
		score = math.Round(*avg*10) / 10
	}
	if moods == nil {
		moods = []repositories.MoodCount{}
	}
	return &WeeklyProgress{
		CompletedTasks: completed,
		MoodCounts:     moods,
		AverageScore:   score,
		Summary:        weeklySummary(completed, score),
	}
}

func weeklySummary(completed int64, score float64) string {
	return fmt.Sprintf("You’ve completed %d tasks and improved your score to %d this week.", completed, int(math.RoundToEven(score)))
}
