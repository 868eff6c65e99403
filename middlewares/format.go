package middlewares

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"SmartHealth/services"
)

// Outcome levels mirror flash message categories.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// LoginPath is where denied callers are sent.
const LoginPath = "/login"

const msgAccessDenied = "Access denied."

// Outcome replaces a redirect plus flash message.
type Outcome struct {
	Level    string      `json:"level"`
	Message  string      `json:"message"`
	Redirect string      `json:"redirect,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// RespondJSON writes a JSON response to the client.
func RespondJSON(c *gin.Context, data interface{}, status int) {
	c.JSON(status, data)
}

// RespondOutcome writes a 200 Outcome.
func RespondOutcome(c *gin.Context, level, message, redirect string, data interface{}) {
	c.JSON(http.StatusOK, Outcome{Level: level, Message: message, Redirect: redirect, Data: data})
}

// RespondError maps a service error onto the HTTP taxonomy. redirect is
// used for state conflicts, which are warnings rather than failures.
func RespondError(c *gin.Context, err error, redirect string) {
	var (
		verrs    validation.Errors
		conflict *services.ConflictError
	)
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, Outcome{Level: LevelError, Message: msgAccessDenied, Redirect: LoginPath})
	case errors.Is(err, services.ErrAccessDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, Outcome{Level: LevelError, Message: msgAccessDenied, Redirect: LoginPath})
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verrs})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
	case errors.As(err, &conflict):
		RespondOutcome(c, LevelWarning, conflict.Message, redirect, nil)
	default:
		HttpError(c, "Something went wrong. Please try again.", http.StatusInternalServerError, err)
	}
}

// HttpError logs an error and writes an HTTP error response to the client.
func HttpError(c *gin.Context, message string, status int, err error) {
	log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Msg(message)
	c.JSON(status, gin.H{"error": message})
}
