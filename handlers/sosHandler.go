package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"SmartHealth/middlewares"
	"SmartHealth/services"
)

type SOSHandler struct {
	alerts *services.SOSService
}

func NewSOSHandler(alerts *services.SOSService) *SOSHandler {
	return &SOSHandler{alerts: alerts}
}

func (h *SOSHandler) Send(c *gin.Context) {
	var req struct {
		Message string `json:"message" form:"message"`
	}
	if !bind(c, &req) {
		return
	}
	alert, err := h.alerts.Send(c.Request.Context(), middlewares.PrincipalFrom(c), req.Message)
	if err != nil {
		middlewares.RespondError(c, err, PatientHomePath)
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Emergency SOS alert sent to all doctors and therapists!", PatientHomePath, alert)
}

func (h *SOSHandler) Acknowledge(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p := middlewares.PrincipalFrom(c)
	alert, err := h.alerts.Acknowledge(c.Request.Context(), p, id)
	if err != nil {
		middlewares.RespondError(c, err, dashboardPath(p.Role))
		return
	}
	msg := fmt.Sprintf("SOS alert from %s acknowledged.", alert.Patient.FullName())
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, dashboardPath(p.Role), alert)
}

func (h *SOSHandler) Resolve(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p := middlewares.PrincipalFrom(c)
	alert, err := h.alerts.Resolve(c.Request.Context(), p, id)
	if err != nil {
		middlewares.RespondError(c, err, dashboardPath(p.Role))
		return
	}
	msg := fmt.Sprintf("SOS alert from %s resolved.", alert.Patient.FullName())
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, dashboardPath(p.Role), alert)
}
