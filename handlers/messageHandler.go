package handlers

import (
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/services"
)

// Message endpoints answer with a bare status string.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusDeleted = "deleted"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// MessageBox lists contacts, optionally filtered by ?role=, and the
// conversation with ?user= when one is selected.
func (h *MessageHandler) MessageBox(c *gin.Context) {
	var selected uint
	if raw := c.Query("user"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			middlewares.RespondError(c, services.ErrNotFound, "")
			return
		}
		selected = uint(id)
	}
	box, err := h.messages.MessageBox(c.Request.Context(), middlewares.PrincipalFrom(c), models.Role(c.Query("role")), selected)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, box, http.StatusOK)
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		ReceiverID uint   `json:"receiver_id" form:"receiver_id"`
		Content    string `json:"content" form:"content"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": statusError})
		return
	}
	_, err := h.messages.Send(c.Request.Context(), middlewares.PrincipalFrom(c), req.ReceiverID, req.Content)
	var verrs validation.Errors
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": statusSuccess})
	case errors.As(err, &verrs):
		c.JSON(http.StatusOK, gin.H{"status": statusError})
	default:
		middlewares.RespondError(c, err, "")
	}
}

// Delete hides a message sent by the caller.
func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), middlewares.PrincipalFrom(c), id); err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDeleted})
}
