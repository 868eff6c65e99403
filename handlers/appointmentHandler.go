package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"SmartHealth/middlewares"
	"SmartHealth/services"
)

type AppointmentHandler struct {
	appointments *services.AppointmentService
}

func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

func (h *AppointmentHandler) Request(c *gin.Context) {
	var in services.AppointmentInput
	if !bind(c, &in) {
		return
	}
	appointment, err := h.appointments.Request(c.Request.Context(), middlewares.PrincipalFrom(c), in)
	if err != nil {
		middlewares.RespondError(c, err, PatientHomePath)
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Appointment request submitted.", PatientHomePath, appointment)
}

func (h *AppointmentHandler) Confirm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	appointment, err := h.appointments.Confirm(c.Request.Context(), middlewares.PrincipalFrom(c), id)
	if err != nil {
		middlewares.RespondError(c, err, DoctorDashPath)
		return
	}
	msg := fmt.Sprintf("Appointment with %s confirmed.", appointment.Patient.FullName())
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, DoctorDashPath, appointment)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	appointment, err := h.appointments.Cancel(c.Request.Context(), middlewares.PrincipalFrom(c), id)
	if err != nil {
		middlewares.RespondError(c, err, DoctorDashPath)
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelWarning, "Appointment cancelled.", DoctorDashPath, appointment)
}

// LogVisit turns a confirmed appointment into a pending visit record.
func (h *AppointmentHandler) LogVisit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	record, err := h.appointments.LogVisit(c.Request.Context(), middlewares.PrincipalFrom(c), id)
	if err != nil {
		middlewares.RespondError(c, err, DoctorDashPath)
		return
	}
	msg := fmt.Sprintf("Visit for %s recorded successfully. Appointment marked as completed.", record.Patient.FullName())
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, DoctorDashPath, record)
}

// LoadHospitals feeds the hospital dropdown for the selected location. An
// unknown or missing location yields an empty list.
func (h *AppointmentHandler) LoadHospitals(c *gin.Context) {
	locationID, err := strconv.ParseUint(c.Query("location"), 10, 32)
	if err != nil {
		middlewares.RespondJSON(c, []services.Option{}, http.StatusOK)
		return
	}
	hospitals, err := h.appointments.HospitalsForLocation(c.Request.Context(), uint(locationID))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, hospitals, http.StatusOK)
}

func (h *AppointmentHandler) Locations(c *gin.Context) {
	locations, err := h.appointments.Locations(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, locations, http.StatusOK)
}

func (h *AppointmentHandler) Doctors(c *gin.Context) {
	doctors, err := h.appointments.Doctors(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, doctors, http.StatusOK)
}
