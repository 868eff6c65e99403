package services

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/storage"
	"SmartHealth/utils"
)

const msgVisitRecordExists = "A visit record for this patient and date already exists."

type HealthLogInput struct {
	BloodPressure string `json:"blood_pressure" form:"blood_pressure"`
	HeartRate     string `json:"heart_rate" form:"heart_rate"`
	Notes         string `json:"notes" form:"notes"`
}

func (in HealthLogInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.BloodPressure, validation.Required, validation.Length(1, 20)),
		validation.Field(&in.HeartRate, validation.Required, validation.Length(1, 20)),
	)
}

// PatientVisitInput is a visit reported by the patient.
type PatientVisitInput struct {
	VisitDate       string `json:"visit_date" form:"visit_date"`
	HospitalName    string `json:"hospital_name" form:"hospital_name"`
	DoctorName      string `json:"doctor_name" form:"doctor_name"`
	DoctorID        *uint  `json:"doctor_id" form:"doctor_id"`
	MedicineDetails string `json:"medicine_details" form:"medicine_details"`
}

func (in PatientVisitInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.VisitDate, validation.Required, validation.Date(dateLayout).Error("must be a valid date (YYYY-MM-DD)")),
		validation.Field(&in.HospitalName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.DoctorName, validation.Required, validation.Length(1, 255)),
	)
}

// VisitRecordUpdate is the doctor's follow-up on a visit record.
type VisitRecordUpdate struct {
	CurrentStatus    models.VisitStatus `json:"current_status" form:"current_status"`
	ImprovementScore *int               `json:"improvement_score" form:"improvement_score"`
	DoctorNotes      string             `json:"doctor_notes" form:"doctor_notes"`
}

func (in VisitRecordUpdate) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentStatus, validation.Required, validation.In(visitStatusValues()...)),
		validation.Field(&in.ImprovementScore, validation.NotNil, validation.Min(0), validation.Max(100)),
	)
}

// DoctorVisitInput logs a visit record for a patient looked up by unique id.
type DoctorVisitInput struct {
	PatientUniqueID  string             `json:"patient_unique_id" form:"patient_unique_id"`
	VisitDate        string             `json:"visit_date" form:"visit_date"`
	HospitalName     string             `json:"hospital_name" form:"hospital_name"`
	CurrentStatus    models.VisitStatus `json:"current_status" form:"current_status"`
	ImprovementScore int                `json:"improvement_score" form:"improvement_score"`
	DoctorNotes      string             `json:"doctor_notes" form:"doctor_notes"`
}

func (in DoctorVisitInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.PatientUniqueID, validation.Required),
		validation.Field(&in.VisitDate, validation.Required, validation.Date(dateLayout).Error("must be a valid date (YYYY-MM-DD)")),
		validation.Field(&in.HospitalName, validation.Length(0, 255)),
		validation.Field(&in.CurrentStatus, validation.Required, validation.In(visitStatusValues()...)),
		validation.Field(&in.ImprovementScore, validation.Min(0), validation.Max(100)),
	)
}

func visitStatusValues() []interface{} {
	values := make([]interface{}, len(models.VisitStatuses))
	for i, s := range models.VisitStatuses {
		values[i] = s
	}
	return values
}

// VisitDocuments are the optional files attached to a visit.
type VisitDocuments struct {
	Report       *storage.Upload
	Prescription *storage.Upload
}

type ClinicalService struct {
	clinical repositories.ClinicalRepository
	users    repositories.UserRepository
	media    storage.MediaStore
	now      Clock
}

func NewClinicalService(clinical repositories.ClinicalRepository, users repositories.UserRepository, media storage.MediaStore) *ClinicalService {
	return &ClinicalService{clinical: clinical, users: users, media: media, now: time.Now}
}

func (s *ClinicalService) SubmitHealthLog(ctx context.Context, p access.Principal, in HealthLogInput) (*models.HealthLog, error) {
	if err := authorize(p, access.SubmitHealthLog, access.None); err != nil {
		return nil, err
	}
	in.BloodPressure = strings.TrimSpace(in.BloodPressure)
	in.HeartRate = strings.TrimSpace(in.HeartRate)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	entry := &models.HealthLog{
		PatientID:     p.UserID,
		Date:          s.now(),
		BloodPressure: in.BloodPressure,
		HeartRate:     in.HeartRate,
		Notes:         strings.TrimSpace(in.Notes),
	}
	if err := s.clinical.CreateHealthLog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListHealthLogs returns the caller's logs, newest first.
func (s *ClinicalService) ListHealthLogs(ctx context.Context, p access.Principal) ([]models.HealthLog, error) {
	if err := authorize(p, access.ListHealthLogs, access.None); err != nil {
		return nil, err
	}
	return s.clinical.ListHealthLogs(ctx, p.UserID)
}

func (s *ClinicalService) SubmitPatientVisit(ctx context.Context, p access.Principal, in PatientVisitInput, docs VisitDocuments) (*models.PatientVisit, error) {
	if err := authorize(p, access.SubmitPatientVisit, access.None); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.DoctorID != nil {
		doctor, err := s.users.GetUserByID(ctx, *in.DoctorID)
		if err != nil {
			return nil, err
		}
		if doctor == nil || doctor.Role != models.RoleDoctor {
			return nil, utils.FieldError("doctor_id", "Select a valid doctor.")
		}
	}

	date, _ := time.Parse(dateLayout, in.VisitDate)
	visit := &models.PatientVisit{
		PatientID:       p.UserID,
		DoctorID:        in.DoctorID,
		VisitDate:       datatypes.Date(date),
		HospitalName:    strings.TrimSpace(in.HospitalName),
		DoctorName:      strings.TrimSpace(in.DoctorName),
		MedicineDetails: strings.TrimSpace(in.MedicineDetails),
	}
	var err error
	if visit.ReportFile, visit.PrescriptionFile, err = s.saveDocuments(ctx, docs); err != nil {
		return nil, err
	}
	if err := s.clinical.CreatePatientVisit(ctx, visit); err != nil {
		s.discard(ctx, visit.ReportFile, visit.PrescriptionFile)
		return nil, err
	}
	return visit, nil
}

// ListPatientVisits returns every visit for therapists and the caller's own
// visits for patients.
func (s *ClinicalService) ListPatientVisits(ctx context.Context, p access.Principal) ([]models.PatientVisit, error) {
	if err := authorize(p, access.ListPatientVisits, access.None); err != nil {
		return nil, err
	}
	if p.Role == models.RoleTherapist {
		return s.clinical.ListAllPatientVisits(ctx)
	}
	return s.clinical.ListPatientVisits(ctx, p.UserID)
}

func (s *ClinicalService) AddTherapistNotes(ctx context.Context, p access.Principal, visitID uint, notes string) (*models.PatientVisit, error) {
	if err := authorize(p, access.AddTherapistNotes, access.None); err != nil {
		return nil, err
	}
	visit, err := s.clinical.GetPatientVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, ErrNotFound
	}
	notes = strings.TrimSpace(notes)
	if err := s.clinical.UpdateTherapistNotes(ctx, visit.ID, notes); err != nil {
		return nil, err
	}
	visit.TherapistNotes = notes
	return visit, nil
}

// UpdateVisitRecord lets the owning doctor revise status, score and notes.
// An existing summary is kept.
func (s *ClinicalService) UpdateVisitRecord(ctx context.Context, p access.Principal, id uint, in VisitRecordUpdate) (*models.VisitRecord, error) {
	if err := authorize(p, access.UpdateVisitRecord, access.None); err != nil {
		return nil, err
	}
	record, err := s.clinical.GetVisitRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	if err := authorize(p, access.UpdateVisitRecord, access.Owned(record.DoctorID)); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	record.CurrentStatus = in.CurrentStatus
	record.ImprovementScore = *in.ImprovementScore
	record.DoctorNotes = strings.TrimSpace(in.DoctorNotes)
	record.FillSummary()
	if err := s.clinical.UpdateVisitRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// CreateVisitRecord is the doctor's visit form for a patient found by unique id.
func (s *ClinicalService) CreateVisitRecord(ctx context.Context, p access.Principal, in DoctorVisitInput, docs VisitDocuments) (*models.VisitRecord, error) {
	if err := authorize(p, access.CreateVisitRecord, access.None); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	patient, err := s.users.GetUserByUniqueID(ctx, strings.ToUpper(strings.TrimSpace(in.PatientUniqueID)), models.RolePatient)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, utils.FieldError("patient_unique_id", "No patient with that unique ID.")
	}
	doctor, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, ErrUnauthenticated
	}

	date, _ := time.Parse(dateLayout, in.VisitDate)
	exists, err := s.clinical.VisitRecordExists(ctx, doctor.ID, patient.ID, date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, conflict(msgVisitRecordExists)
	}

	record := &models.VisitRecord{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		VisitDate:        datatypes.Date(date),
		HospitalName:     strings.TrimSpace(in.HospitalName),
		DoctorName:       doctor.FullName(),
		CurrentStatus:    in.CurrentStatus,
		ImprovementScore: in.ImprovementScore,
		DoctorNotes:      strings.TrimSpace(in.DoctorNotes),
	}
	record.FillSummary()
	if record.ReportFile, record.PrescriptionFile, err = s.saveDocuments(ctx, docs); err != nil {
		return nil, err
	}
	if err := s.clinical.CreateVisitRecord(ctx, record); err != nil {
		s.discard(ctx, record.ReportFile, record.PrescriptionFile)
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflict(msgVisitRecordExists)
		}
		return nil, err
	}
	return record, nil
}

func (s *ClinicalService) saveDocuments(ctx context.Context, docs VisitDocuments) (report, prescription string, err error) {
	if docs.Report != nil {
		if report, err = s.media.Save(ctx, storage.VisitReports, docs.Report); err != nil {
			return "", "", err
		}
	}
	if docs.Prescription != nil {
		if prescription, err = s.media.Save(ctx, storage.Prescriptions, docs.Prescription); err != nil {
			s.discard(ctx, report)
			return "", "", err
		}
	}
	return report, prescription, nil
}

// discard removes stored files whose record was never written.
func (s *ClinicalService) discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.media.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to discard uploaded file")
		}
	}
}

func (s *ClinicalService) LogMood(ctx context.Context, p access.Principal, mood models.Mood) (*models.MoodLog, error) {
	if err := authorize(p, access.LogMood, access.None); err != nil {
		return nil, err
	}
	if !mood.Valid() {
		return nil, utils.FieldError("mood", "Select a valid mood.")
	}
	entry := &models.MoodLog{PatientID: p.UserID, Mood: mood, LoggedAt: s.now()}
	if err := s.clinical.CreateMoodLog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordScore appends an improvement score for a patient.
func (s *ClinicalService) RecordScore(ctx context.Context, p access.Principal, patientID uint, score float64) (*models.ImprovementScore, error) {
	if err := authorize(p, access.RecordScore, access.None); err != nil {
		return nil, err
	}
	if err := validation.Validate(score, validation.Min(0.0), validation.Max(100.0)); err != nil {
		return nil, utils.FieldError("score", err.Error())
	}
	patient, err := s.users.GetUserByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient == nil || patient.Role != models.RolePatient {
		return nil, utils.FieldError("patient_id", "No such patient.")
	}
	entry := &models.ImprovementScore{PatientID: patient.ID, Score: score, RecordedAt: s.now()}
	if err := s.clinical.CreateImprovementScore(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
