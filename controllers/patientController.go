package controllers

import (
	"github.com/gin-gonic/gin"

	"SmartHealth/handlers"
	"SmartHealth/models"
)

// CareHandlers are the handlers behind the authenticated routes.
type CareHandlers struct {
	Profile     *handlers.ProfileHandler
	Dashboard   *handlers.DashboardHandler
	Task        *handlers.TaskHandler
	Appointment *handlers.AppointmentHandler
	Clinical    *handlers.ClinicalHandler
	SOS         *handlers.SOSHandler
	Video       *handlers.VideoHandler
	Message     *handlers.MessageHandler
	Media       *handlers.MediaHandler
	// Transfer wraps routes that carry media files. Optional.
	Transfer    gin.HandlerFunc
}

// SetupCareRoutes registers every route that needs a signed-in caller. Role
// checks happen in the services.
func SetupCareRoutes(router gin.IRoutes, h CareHandlers) {
	transfer := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if h.Transfer == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{h.Transfer, handler}
	}

	for _, role := range []models.Role{models.RolePatient, models.RoleDoctor, models.RoleTherapist} {
		router.GET("/profile/"+string(role), h.Profile.GetProfile(role))
		router.POST("/profile/"+string(role), h.Profile.UpdateProfile(role))
	}
	router.POST("/profile/delete-photo", h.Profile.DeletePhoto)
	router.POST("/lookup", h.Profile.Lookup)
	router.GET("/patient/:unique_id", h.Profile.PatientOverview)
	router.GET("/progress-chart/:patient_id", h.Profile.ProgressChart)

	router.GET("/home", h.Dashboard.PatientHome)
	router.GET("/doctor/dashboard", h.Dashboard.DoctorDashboard)
	router.GET("/therapist/dashboard", h.Dashboard.TherapistDashboard)

	router.POST("/task/start", h.Task.Start)
	router.POST("/task/complete/:id", h.Task.Complete)
	router.POST("/feedback/:id", h.Task.Feedback)

	router.POST("/appointment/request", h.Appointment.Request)
	router.POST("/appointment/confirm/:id", h.Appointment.Confirm)
	router.POST("/appointment/cancel/:id", h.Appointment.Cancel)
	router.POST("/doctor/log_visit/:id", h.Appointment.LogVisit)
	router.GET("/ajax/load-hospitals", h.Appointment.LoadHospitals)
	router.GET("/locations", h.Appointment.Locations)
	router.GET("/doctors", h.Appointment.Doctors)

	router.GET("/details", h.Clinical.ListPatientVisits)
	router.POST("/details", transfer(h.Clinical.SubmitPatientVisit)...)
	router.POST("/visit/notes/:id", h.Clinical.AddTherapistNotes)
	router.POST("/visit/update/:id", transfer(h.Clinical.UpdateVisitRecord)...)
	router.POST("/doctor/visit", transfer(h.Clinical.CreateVisitRecord)...)
	router.GET("/submit-log", h.Clinical.ListHealthLogs)
	router.POST("/submit-log", h.Clinical.SubmitHealthLog)
	router.POST("/log-mood", h.Clinical.LogMood)
	router.POST("/score", h.Clinical.RecordScore)

	router.POST("/sos/send", h.SOS.Send)
	router.POST("/sos/acknowledge/:id", h.SOS.Acknowledge)
	router.POST("/sos/resolve/:id", h.SOS.Resolve)

	router.POST("/videos/upload", transfer(h.Video.Upload)...)
	router.GET("/videos/therapist", h.Video.ListForTherapist)
	router.GET("/videos", h.Video.ListForPatient)
	router.GET("/videos/watch/:id", h.Video.Watch)
	router.POST("/videos/delete/:id", h.Video.Delete)

	router.GET("/messages", h.Message.MessageBox)
	router.POST("/send-message", h.Message.Send)
	router.POST("/delete-message/:id", h.Message.Delete)

	router.GET("/media/*path", transfer(h.Media.Serve)...)
}
