package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/services"
	"SmartHealth/utils"
)

const msgInvalidPatientID = "Invalid input. Please enter a valid Patient ID."

type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func profilePath(role models.Role) string {
	return "/profile/" + string(role)
}

// GetProfile serves the profile page of one role.
func (h *ProfileHandler) GetProfile(page models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.profiles.GetProfile(c.Request.Context(), middlewares.PrincipalFrom(c), page)
		if err != nil {
			middlewares.RespondError(c, err, "")
			return
		}
		middlewares.RespondJSON(c, view, 200)
	}
}

// UpdateProfile saves the profile form of one role, with an optional
// profile_photo file.
func (h *ProfileHandler) UpdateProfile(page models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.ProfileInput
		if !bind(c, &in) {
			return
		}
		photo, closePhoto, err := formUpload(c, "profile_photo")
		defer closePhoto()
		if err != nil {
			middlewares.RespondError(c, err, "")
			return
		}
		user, err := h.profiles.UpdateProfile(c.Request.Context(), middlewares.PrincipalFrom(c), page, in, photo)
		if err != nil {
			middlewares.RespondError(c, err, "")
			return
		}
		middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Profile updated successfully.", profilePath(page), user)
	}
}

func (h *ProfileHandler) DeletePhoto(c *gin.Context) {
	p := middlewares.PrincipalFrom(c)
	deleted, err := h.profiles.DeletePhoto(c.Request.Context(), p)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	if !deleted {
		middlewares.RespondOutcome(c, middlewares.LevelInfo, "No profile photo to delete.", profilePath(p.Role), nil)
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Profile photo deleted successfully.", profilePath(p.Role), nil)
}

// Lookup resolves a patient id entered by staff and points at the patient page.
func (h *ProfileHandler) Lookup(c *gin.Context) {
	var req struct {
		PatientID string `json:"patient_id" form:"patient_id"`
	}
	if !bind(c, &req) {
		return
	}
	patient, err := h.profiles.LookupPatient(c.Request.Context(), middlewares.PrincipalFrom(c), req.PatientID)
	if errors.Is(err, services.ErrNotFound) {
		err = utils.FieldError("patient_id", msgInvalidPatientID)
	}
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "", "/patient/"+patient.UniqueID, patient)
}

func (h *ProfileHandler) PatientOverview(c *gin.Context) {
	overview, err := h.profiles.PatientOverview(c.Request.Context(), middlewares.PrincipalFrom(c), c.Param("unique_id"))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, overview, 200)
}

func (h *ProfileHandler) ProgressChart(c *gin.Context) {
	patientID, ok := idParam(c, "patient_id")
	if !ok {
		return
	}
	chart, err := h.profiles.ProgressChart(c.Request.Context(), middlewares.PrincipalFrom(c), patientID)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, chart, 200)
}
