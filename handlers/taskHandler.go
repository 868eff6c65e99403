package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/services"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) Start(c *gin.Context) {
	var req struct {
		TaskType models.TaskType `json:"task_type" form:"task_type"`
	}
	if !bind(c, &req) {
		return
	}
	task, err := h.tasks.Start(c.Request.Context(), middlewares.PrincipalFrom(c), req.TaskType)
	if err != nil {
		middlewares.RespondError(c, err, PatientHomePath)
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, fmt.Sprintf("Task '%s' started.", task.TaskName), PatientHomePath, task)
}

func (h *TaskHandler) Complete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.Complete(c.Request.Context(), middlewares.PrincipalFrom(c), id)
	if err != nil {
		middlewares.RespondError(c, err, PatientHomePath)
		return
	}
	msg := fmt.Sprintf("Task '%s' completed in %d minutes.", task.TaskName, *task.DurationMinutes)
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, PatientHomePath, task)
}

func (h *TaskHandler) Feedback(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Feedback string `json:"feedback" form:"feedback"`
	}
	if !bind(c, &req) {
		return
	}
	task, err := h.tasks.Feedback(c.Request.Context(), middlewares.PrincipalFrom(c), id, req.Feedback)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Feedback added successfully.", "/patient/"+task.Patient.UniqueID, task)
}
