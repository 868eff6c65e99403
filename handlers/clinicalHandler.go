package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/services"
)

const (
	detailsPath   = "/details"
	submitLogPath = "/submit-log"
)

type ClinicalHandler struct {
	clinical *services.ClinicalService
}

func NewClinicalHandler(clinical *services.ClinicalService) *ClinicalHandler {
	return &ClinicalHandler{clinical: clinical}
}

// visitDocuments opens the optional report and prescription files.
func visitDocuments(c *gin.Context) (services.VisitDocuments, func(), error) {
	report, closeReport, err := formUpload(c, "report")
	if err != nil {
		return services.VisitDocuments{}, closeReport, err
	}
	prescription, closePrescription, err := formUpload(c, "prescription")
	closeAll := func() {
		closeReport()
		closePrescription()
	}
	if err != nil {
		return services.VisitDocuments{}, closeAll, err
	}
	return services.VisitDocuments{Report: report, Prescription: prescription}, closeAll, nil
}

// ListPatientVisits shows a patient their own visits and a therapist all of them.
func (h *ClinicalHandler) ListPatientVisits(c *gin.Context) {
	visits, err := h.clinical.ListPatientVisits(c.Request.Context(), middlewares.PrincipalFrom(c))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, gin.H{"visits": visits}, http.StatusOK)
}

func (h *ClinicalHandler) SubmitPatientVisit(c *gin.Context) {
	var in services.PatientVisitInput
	if !bind(c, &in) {
		return
	}
	docs, closeDocs, err := visitDocuments(c)
	defer closeDocs()
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	visit, err := h.clinical.SubmitPatientVisit(c.Request.Context(), middlewares.PrincipalFrom(c), in, docs)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Visit details submitted.", detailsPath, visit)
}

func (h *ClinicalHandler) AddTherapistNotes(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"therapist_notes" form:"therapist_notes"`
	}
	if !bind(c, &req) {
		return
	}
	visit, err := h.clinical.AddTherapistNotes(c.Request.Context(), middlewares.PrincipalFrom(c), id, req.Notes)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Therapist notes updated.", "/patient/"+visit.Patient.UniqueID, visit)
}

func (h *ClinicalHandler) UpdateVisitRecord(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.VisitRecordUpdate
	if !bind(c, &in) {
		return
	}
	record, err := h.clinical.UpdateVisitRecord(c.Request.Context(), middlewares.PrincipalFrom(c), id, in)
	if err != nil {
		middlewares.RespondError(c, err, DoctorDashPath)
		return
	}
	msg := fmt.Sprintf("Visit for %s updated successfully.", record.Patient.FullName())
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, DoctorDashPath, record)
}

// CreateVisitRecord is the doctor's visit form.
func (h *ClinicalHandler) CreateVisitRecord(c *gin.Context) {
	var in services.DoctorVisitInput
	if !bind(c, &in) {
		return
	}
	docs, closeDocs, err := visitDocuments(c)
	defer closeDocs()
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	record, err := h.clinical.CreateVisitRecord(c.Request.Context(), middlewares.PrincipalFrom(c), in, docs)
	if err != nil {
		middlewares.RespondError(c, err, DoctorDashPath)
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Visit record saved successfully.", DoctorDashPath, record)
}

func (h *ClinicalHandler) ListHealthLogs(c *gin.Context) {
	logs, err := h.clinical.ListHealthLogs(c.Request.Context(), middlewares.PrincipalFrom(c))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, gin.H{"logs": logs}, http.StatusOK)
}

func (h *ClinicalHandler) SubmitHealthLog(c *gin.Context) {
	var in services.HealthLogInput
	if !bind(c, &in) {
		return
	}
	entry, err := h.clinical.SubmitHealthLog(c.Request.Context(), middlewares.PrincipalFrom(c), in)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Health log submitted.", submitLogPath, entry)
}

func (h *ClinicalHandler) LogMood(c *gin.Context) {
	var req struct {
		Mood models.Mood `json:"mood" form:"mood"`
	}
	if !bind(c, &req) {
		return
	}
	entry, err := h.clinical.LogMood(c.Request.Context(), middlewares.PrincipalFrom(c), req.Mood)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Mood logged.", PatientHomePath, entry)
}

// RecordScore stores an improvement score for a patient.
func (h *ClinicalHandler) RecordScore(c *gin.Context) {
	var req struct {
		PatientID uint    `json:"patient_id" form:"patient_id"`
		Score     float64 `json:"score" form:"score"`
	}
	if !bind(c, &req) {
		return
	}
	score, err := h.clinical.RecordScore(c.Request.Context(), middlewares.PrincipalFrom(c), req.PatientID, req.Score)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Score recorded.", "", score)
}
