package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"SmartHealth/middlewares"
	"SmartHealth/services"
)

type DashboardHandler struct {
	dashboards *services.DashboardService
}

func NewDashboardHandler(dashboards *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

func (h *DashboardHandler) PatientHome(c *gin.Context) {
	home, err := h.dashboards.PatientHome(c.Request.Context(), middlewares.PrincipalFrom(c))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, home, http.StatusOK)
}

func (h *DashboardHandler) DoctorDashboard(c *gin.Context) {
	dash, err := h.dashboards.DoctorDashboard(c.Request.Context(), middlewares.PrincipalFrom(c))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, dash, http.StatusOK)
}

func (h *DashboardHandler) TherapistDashboard(c *gin.Context) {
	dash, err := h.dashboards.TherapistDashboard(c.Request.Context(), middlewares.PrincipalFrom(c))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, dash, http.StatusOK)
}
