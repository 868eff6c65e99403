package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/notifications"
	"SmartHealth/repositories"
	"SmartHealth/storage"
)

var testNow = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func principal(u *models.User) access.Principal {
	return access.Principal{UserID: u.ID, Role: u.Role, UniqueID: u.UniqueID}
}

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*models.User
	// createErr is returned once by the next CreateUser call.
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]*models.User{}}
}

func (f *fakeUsers) add(role models.Role, username string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &models.User{
		ID:       f.nextID,
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		UniqueID: fmt.Sprintf("%s_%d", role.Prefix(), 1000+f.nextID),
	}
	f.byID[u.ID] = u
	cp := *u
	return &cp
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	for _, u := range f.byID {
		if u.Username == user.Username || u.Email == user.Email || u.UniqueID == user.UniqueID {
			return repositories.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*models.User) bool) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (f *fakeUsers) GetUserByUniqueID(_ context.Context, uniqueID string, role models.Role) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.UniqueID == uniqueID && u.Role == role }), nil
}

func (f *fakeUsers) UsernameExists(_ context.Context, username string) (bool, error) {
	return f.find(func(u *models.User) bool { return u.Username == username }) != nil, nil
}

func (f *fakeUsers) EmailExists(_ context.Context, email string) (bool, error) {
	return f.find(func(u *models.User) bool { return u.Email == email }) != nil, nil
}

func (f *fakeUsers) UniqueIDExists(_ context.Context, uniqueID string) (bool, error) {
	return f.find(func(u *models.User) bool { return u.UniqueID == uniqueID }) != nil, nil
}

func (f *fakeUsers) ListUsersByRole(_ context.Context, role models.Role, excludeID uint) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []models.User
	for _, u := range f.byID {
		if u.Role == role && u.ID != excludeID {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (f *fakeUsers) UpdateUserProfile(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.byID[user.ID]
	stored.FirstName, stored.LastName = user.FirstName, user.LastName
	stored.Email, stored.Phone = user.Email, user.Phone
	stored.DateOfBirth, stored.Location = user.DateOfBirth, user.Location
	return nil
}

func (f *fakeUsers) UpdateProfilePhoto(_ context.Context, userID uint, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[userID].ProfilePhoto = path
	return nil
}

func (f *fakeUsers) UpdateUserPassword(_ context.Context, userID uint, hashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[userID].Password = hashed
	return nil
}

// fakeTasks enforces the one-in-progress-task rule like the partial index.
type fakeTasks struct {
	mu     sync.Mutex
	nextID uint
	tasks  map[uint]*models.PatientTask
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: map[uint]*models.PatientTask{}}
}

func (f *fakeTasks) Create(_ context.Context, task *models.PatientTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.Status == models.TaskInProgress {
		for _, t := range f.tasks {
			if t.PatientID == task.PatientID && t.Status == models.TaskInProgress {
				return repositories.ErrDuplicate
			}
		}
	}
	f.nextID++
	task.ID = f.nextID
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeTasks) GetByID(_ context.Context, id uint) (*models.PatientTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) ActiveForPatient(_ context.Context, patientID uint) (*models.PatientTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.PatientID == patientID && t.Status == models.TaskInProgress {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTasks) Complete(_ context.Context, task *models.PatientTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[task.ID]
	if !ok || t.Status != models.TaskInProgress {
		return repositories.ErrStale
	}
	t.Status = models.TaskCompleted
	t.CompletedAt = task.CompletedAt
	t.DurationMinutes = task.DurationMinutes
	return nil
}

func (f *fakeTasks) UpdateFeedback(_ context.Context, id uint, feedback string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[id].Feedback = feedback
	return nil
}

func (f *fakeTasks) ListByPatient(_ context.Context, patientID uint) ([]models.PatientTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tasks []models.PatientTask
	for _, t := range f.tasks {
		if t.PatientID == patientID {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	return tasks, nil
}

func (f *fakeTasks) CountCompletedSince(_ context.Context, patientID uint, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tasks {
		if t.PatientID == patientID && t.Status == models.TaskCompleted && t.CompletedAt != nil && !t.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// fakeClinical keeps each clinical table as a slice.
type fakeClinical struct {
	mu      sync.Mutex
	nextID  uint
	logs    []models.HealthLog
	visits  []models.PatientVisit
	records []models.VisitRecord
	moods   []models.MoodLog
	scores  []models.ImprovementScore
}

func (f *fakeClinical) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeClinical) CreateHealthLog(_ context.Context, entry *models.HealthLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.id()
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeClinical) ListHealthLogs(_ context.Context, patientID uint) ([]models.HealthLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.HealthLog
	for i := len(f.logs) - 1; i >= 0; i-- {
		if f.logs[i].PatientID == patientID {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

func (f *fakeClinical) CreatePatientVisit(_ context.Context, visit *models.PatientVisit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	visit.ID = f.id()
	f.visits = append(f.visits, *visit)
	return nil
}

func (f *fakeClinical) GetPatientVisit(_ context.Context, id uint) (*models.PatientVisit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.visits {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, nil
}

func (f *fakeClinical) ListPatientVisits(_ context.Context, patientID uint) ([]models.PatientVisit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PatientVisit
	for _, v := range f.visits {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeClinical) ListAllPatientVisits(_ context.Context) ([]models.PatientVisit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.PatientVisit(nil), f.visits...), nil
}

func (f *fakeClinical) ListPatientVisitsByDoctor(_ context.Context, doctorID uint, limit int) ([]models.PatientVisit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PatientVisit
	for _, v := range f.visits {
		if v.DoctorID != nil && *v.DoctorID == doctorID && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeClinical) UpdateTherapistNotes(_ context.Context, id uint, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.visits {
		if f.visits[i].ID == id {
			f.visits[i].TherapistNotes = notes
		}
	}
	return nil
}

func sameDay(a datatypes.Date, b time.Time) bool {
	return time.Time(a).Format("2006-01-02") == b.Format("2006-01-02")
}

func (f *fakeClinical) CreateVisitRecord(_ context.Context, record *models.VisitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createRecordLocked(record)
}

func (f *fakeClinical) createRecordLocked(record *models.VisitRecord) error {
	for _, r := range f.records {
		if r.DoctorID == record.DoctorID && r.PatientID == record.PatientID && sameDay(r.VisitDate, time.Time(record.VisitDate)) {
			return repositories.ErrDuplicate
		}
	}
	record.ID = f.id()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeClinical) GetVisitRecord(_ context.Context, id uint) (*models.VisitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeClinical) UpdateVisitRecord(_ context.Context, record *models.VisitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == record.ID {
			f.records[i].CurrentStatus = record.CurrentStatus
			f.records[i].ImprovementScore = record.ImprovementScore
			f.records[i].DoctorNotes = record.DoctorNotes
			f.records[i].Summary = record.Summary
		}
	}
	return nil
}

func (f *fakeClinical) VisitRecordExists(_ context.Context, doctorID, patientID uint, date time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.DoctorID == doctorID && r.PatientID == patientID && sameDay(r.VisitDate, date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeClinical) ListVisitRecordsByPatient(_ context.Context, patientID uint) ([]models.VisitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VisitRecord
	for _, r := range f.records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return time.Time(out[i].VisitDate).Before(time.Time(out[j].VisitDate)) })
	return out, nil
}

func (f *fakeClinical) ListVisitRecordsByDoctor(_ context.Context, doctorID uint) ([]models.VisitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VisitRecord
	for _, r := range f.records {
		if r.DoctorID == doctorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeClinical) CreateMoodLog(_ context.Context, entry *models.MoodLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.id()
	f.moods = append(f.moods, *entry)
	return nil
}

func (f *fakeClinical) LatestMood(_ context.Context, patientID uint) (*models.MoodLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.moods) - 1; i >= 0; i-- {
		if f.moods[i].PatientID == patientID {
			m := f.moods[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeClinical) MoodCountsSince(_ context.Context, patientID uint, since time.Time) ([]repositories.MoodCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[models.Mood]int64{}
	for _, m := range f.moods {
		if m.PatientID == patientID && !m.LoggedAt.Before(since) {
			counts[m.Mood]++
		}
	}
	var out []repositories.MoodCount
	for mood, n := range counts {
		out = append(out, repositories.MoodCount{Mood: mood, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mood < out[j].Mood })
	return out, nil
}

func (f *fakeClinical) CreateImprovementScore(_ context.Context, score *models.ImprovementScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	score.ID = f.id()
	f.scores = append(f.scores, *score)
	return nil
}

func (f *fakeClinical) AverageScoreSince(_ context.Context, patientID uint, since time.Time) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum float64
	var n int
	for _, s := range f.scores {
		if s.PatientID == patientID && !s.RecordedAt.Before(since) {
			sum += s.Score
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

// fakeAppointments shares the clinical fake so CompleteWithVisit can
// enforce the visit record unique index.
type fakeAppointments struct {
	mu           sync.Mutex
	nextID       uint
	appointments map[uint]*models.Appointment
	users        *fakeUsers
	clinical     *fakeClinical
}

func newFakeAppointments(users *fakeUsers, clinical *fakeClinical) *fakeAppointments {
	return &fakeAppointments{appointments: map[uint]*models.Appointment{}, users: users, clinical: clinical}
}

func (f *fakeAppointments) Create(_ context.Context, a *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = testNow.Add(time.Duration(a.ID) * time.Second)
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeAppointments) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	f.mu.Lock()
	a, ok := f.appointments[id]
	var cp models.Appointment
	if ok {
		cp = *a
	}
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	if doctor, _ := f.users.GetUserByID(ctx, cp.DoctorID); doctor != nil {
		cp.Doctor = *doctor
	}
	if patient, _ := f.users.GetUserByID(ctx, cp.PatientID); patient != nil {
		cp.Patient = *patient
	}
	return &cp, nil
}

func (f *fakeAppointments) TransitionStatus(_ context.Context, id uint, from []models.AppointmentStatus, to models.AppointmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return repositories.ErrStale
	}
	for _, s := range from {
		if a.Status == s {
			a.Status = to
			return nil
		}
	}
	return repositories.ErrStale
}

func (f *fakeAppointments) CompleteWithVisit(_ context.Context, appointmentID uint, record *models.VisitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[appointmentID]
	if !ok || a.Status != models.AppointmentConfirmed {
		return repositories.ErrStale
	}
	f.clinical.mu.Lock()
	defer f.clinical.mu.Unlock()
	if err := f.clinical.createRecordLocked(record); err != nil {
		return err
	}
	a.Status = models.AppointmentCompleted
	return nil
}

func (f *fakeAppointments) ListForDoctor(_ context.Context, doctorID uint, status models.AppointmentStatus) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Status == status {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAppointments) LatestForPatient(_ context.Context, patientID uint) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID && (latest == nil || a.CreatedAt.After(latest.CreatedAt)) {
			cp := *a
			latest = &cp
		}
	}
	return latest, nil
}

func (f *fakeAppointments) status(id uint) models.AppointmentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appointments[id].Status
}

type fakeLocations struct {
	locations []models.Location
	hospitals []models.Hospital
}

func (f *fakeLocations) ListLocations(context.Context) ([]models.Location, error) {
	return f.locations, nil
}

func (f *fakeLocations) GetLocation(_ context.Context, id uint) (*models.Location, error) {
	for _, l := range f.locations {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, nil
}

func (f *fakeLocations) CreateLocation(_ context.Context, l *models.Location) error {
	l.ID = uint(len(f.locations) + 1)
	f.locations = append(f.locations, *l)
	return nil
}

func (f *fakeLocations) HospitalsByLocation(_ context.Context, locationID uint) ([]models.Hospital, error) {
	var out []models.Hospital
	for _, h := range f.hospitals {
		if h.LocationID == locationID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeLocations) GetHospital(_ context.Context, id uint) (*models.Hospital, error) {
	for _, h := range f.hospitals {
		if h.ID == id {
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeLocations) CreateHospital(_ context.Context, h *models.Hospital) error {
	h.ID = uint(len(f.hospitals) + 1)
	f.hospitals = append(f.hospitals, *h)
	return nil
}

// fakeMessages keeps deleted rows so tests can see the soft delete.
type fakeMessages struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (f *fakeMessages) Create(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uint(len(f.messages) + 1)
	cp := *m
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeMessages) GetByID(_ context.Context, id uint) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMessages) Conversation(_ context.Context, a, b uint) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		pair := (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
		if pair && !m.IsDeleted {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessages) SoftDelete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id {
			m.IsDeleted = true
		}
	}
	return nil
}

// fakeAlerts applies acknowledgments through the model so it behaves like
// the single-statement update.
type fakeAlerts struct {
	mu     sync.Mutex
	alerts []*models.SOSAlert
}

func (f *fakeAlerts) Create(_ context.Context, a *models.SOSAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uint(len(f.alerts) + 1)
	cp := *a
	f.alerts = append(f.alerts, &cp)
	return nil
}

func (f *fakeAlerts) get(id uint) *models.SOSAlert {
	for _, a := range f.alerts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (f *fakeAlerts) GetByID(_ context.Context, id uint) (*models.SOSAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.get(id)
	if a == nil {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAlerts) Acknowledge(_ context.Context, id uint, role models.Role, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.get(id)
	if a == nil || a.Status == models.SOSResolved {
		return repositories.ErrStale
	}
	a.ApplyAcknowledgment(role, at)
	return nil
}

func (f *fakeAlerts) Resolve(_ context.Context, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.get(id)
	if a == nil || a.Status == models.SOSResolved {
		return repositories.ErrStale
	}
	a.Status = models.SOSResolved
	a.ResolvedAt = &at
	return nil
}

func (f *fakeAlerts) list(match func(*models.SOSAlert) bool, limit int) []models.SOSAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SOSAlert
	for i := len(f.alerts) - 1; i >= 0; i-- {
		if match(f.alerts[i]) && (limit == 0 || len(out) < limit) {
			out = append(out, *f.alerts[i])
		}
	}
	return out
}

func (f *fakeAlerts) ListActive(context.Context) ([]models.SOSAlert, error) {
	return f.list(func(a *models.SOSAlert) bool { return a.Status == models.SOSActive }, 0), nil
}

func (f *fakeAlerts) ListRecentAcknowledged(_ context.Context, limit int) ([]models.SOSAlert, error) {
	return f.list(func(a *models.SOSAlert) bool { return a.Status == models.SOSAcknowledged }, limit), nil
}

func (f *fakeAlerts) ListByPatient(_ context.Context, patientID uint) ([]models.SOSAlert, error) {
	return f.list(func(a *models.SOSAlert) bool { return a.PatientID == patientID }, 0), nil
}

type fakeVideos struct {
	mu     sync.Mutex
	videos []*models.ExerciseVideo
}

func (f *fakeVideos) Create(_ context.Context, v *models.ExerciseVideo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = uint(len(f.videos) + 1)
	v.CreatedAt = testNow.Add(time.Duration(v.ID) * time.Minute)
	cp := *v
	f.videos = append(f.videos, &cp)
	return nil
}

func (f *fakeVideos) GetByID(_ context.Context, id uint) (*models.ExerciseVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.videos {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeVideos) newestFirst(match func(*models.ExerciseVideo) bool, limit int) []models.ExerciseVideo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ExerciseVideo
	for i := len(f.videos) - 1; i >= 0; i-- {
		if match(f.videos[i]) && (limit == 0 || len(out) < limit) {
			out = append(out, *f.videos[i])
		}
	}
	return out
}

func (f *fakeVideos) ListActive(_ context.Context, filter repositories.VideoFilter) ([]models.ExerciseVideo, error) {
	return f.newestFirst(func(v *models.ExerciseVideo) bool {
		return v.IsActive &&
			(filter.ExerciseType == "" || v.ExerciseType == filter.ExerciseType) &&
			(filter.Difficulty == "" || v.DifficultyLevel == filter.Difficulty)
	}, 0), nil
}

func (f *fakeVideos) ListByTherapist(_ context.Context, therapistID uint) ([]models.ExerciseVideo, error) {
	return f.newestFirst(func(v *models.ExerciseVideo) bool { return v.TherapistID == therapistID }, 0), nil
}

func (f *fakeVideos) IncrementViews(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.videos {
		if v.ID == id {
			v.ViewsCount++
			return nil
		}
	}
	return repositories.ErrStale
}

func (f *fakeVideos) Related(_ context.Context, t models.ExerciseType, excludeID uint, limit int) ([]models.ExerciseVideo, error) {
	return f.newestFirst(func(v *models.ExerciseVideo) bool {
		return v.IsActive && v.ExerciseType == t && v.ID != excludeID
	}, limit), nil
}

func (f *fakeVideos) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.videos {
		if v.ID == id {
			f.videos = append(f.videos[:i], f.videos[i+1:]...)
			return nil
		}
	}
	return nil
}

// noopLocker grants every lock unless err is set.
type noopLocker struct {
	mu    sync.Mutex
	locks []string
	err   error
}

func (l *noopLocker) Lock(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.locks = append(l.locks, key)
	return func() {}, nil
}

// fakeMedia stores uploads in memory. deleteErr fails every Delete.
type fakeMedia struct {
	mu        sync.Mutex
	files     map[string][]byte
	seq       int
	deleteErr error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{files: map[string][]byte{}}
}

func (m *fakeMedia) Save(_ context.Context, prefix string, upload *storage.Upload) (string, error) {
	body, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	key := fmt.Sprintf("%s/%d-%s", prefix, m.seq, upload.Filename)
	m.files[key] = body
	return key, nil
}

func (m *fakeMedia) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (m *fakeMedia) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.files, key)
	return nil
}

func (m *fakeMedia) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[key]
	return ok
}

func upload(name, contentType string) *storage.Upload {
	return &storage.Upload{Filename: name, ContentType: contentType, Size: 4, Body: bytes.NewReader([]byte("data"))}
}

// fakeNotifier records events. A non-nil release holds every call until
// it is closed.
type fakeNotifier struct {
	mu      sync.Mutex
	events  []notifications.SOSEvent
	err     error
	release chan struct{}
}

func (n *fakeNotifier) sent() []notifications.SOSEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.SOSEvent(nil), n.events...)
}

func (n *fakeNotifier) NotifySOS(_ context.Context, event notifications.SOSEvent) error {
	if n.release != nil {
		<-n.release
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

// fixture wires every service over shared fakes.
type fixture struct {
	users        *fakeUsers
	tasks        *fakeTasks
	clinical     *fakeClinical
	appointments *fakeAppointments
	locations    *fakeLocations
	messages     *fakeMessages
	alerts       *fakeAlerts
	videos       *fakeVideos
	media        *fakeMedia
	notifier     *fakeNotifier
	locker       *noopLocker

	profile     *ProfileService
	task        *TaskService
	appointment *AppointmentService
	clinic      *ClinicalService
	message     *MessageService
	sos         *SOSService
	video       *VideoService
	dashboard   *DashboardService

	patient, doctor, therapist *models.User
}

func newFixture() *fixture {
	f := &fixture{
		users:     newFakeUsers(),
		tasks:     newFakeTasks(),
		clinical:  &fakeClinical{},
		locations: &fakeLocations{},
		messages:  &fakeMessages{},
		alerts:    &fakeAlerts{},
		videos:    &fakeVideos{},
		media:     newFakeMedia(),
		notifier:  &fakeNotifier{},
		locker:    &noopLocker{},
	}
	f.appointments = newFakeAppointments(f.users, f.clinical)

	f.profile = NewProfileService(f.users, f.tasks, f.clinical, f.alerts, f.media)
	f.profile.now = fixedClock
	f.task = NewTaskService(f.tasks, f.locker)
	f.task.now = fixedClock
	f.appointment = NewAppointmentService(f.appointments, f.locations, f.users, f.clinical)
	f.clinic = NewClinicalService(f.clinical, f.users, f.media)
	f.clinic.now = fixedClock
	f.message = NewMessageService(f.messages, f.users)
	f.message.now = fixedClock
	f.sos = NewSOSService(f.alerts, f.users, f.notifier)
	f.sos.now = fixedClock
	f.video = NewVideoService(f.videos, f.media)
	f.dashboard = NewDashboardService(f.users, f.tasks, f.appointments, f.clinical, f.appointment, f.sos)

	f.patient = f.users.add(models.RolePatient, "pat")
	f.doctor = f.users.add(models.RoleDoctor, "doc")
	f.therapist = f.users.add(models.RoleTherapist, "ther")
	return f
}

func ptr[T any](v T) *T { return &v }
