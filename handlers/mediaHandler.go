package handlers

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"SmartHealth/middlewares"
	"SmartHealth/services"
	"SmartHealth/storage"
)

// mediaCSP keeps uploaded documents from running script in the site's origin.
const mediaCSP = "default-src 'none'; sandbox"

type MediaHandler struct {
	media storage.MediaStore
}

func NewMediaHandler(media storage.MediaStore) *MediaHandler {
	return &MediaHandler{media: media}
}

// Serve streams a stored upload to an authenticated caller.
func (h *MediaHandler) Serve(c *gin.Context) {
	key, err := storage.CleanKey(c.Param("path"))
	if err != nil {
		middlewares.RespondError(c, services.ErrNotFound, "")
		return
	}
	body, err := h.media.Open(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		middlewares.RespondError(c, services.ErrNotFound, "")
		return
	}
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	defer body.Close()

	contentType, inline := storage.ContentType(key)
	c.Header("Content-Type", contentType)
	c.Header("Content-Security-Policy", mediaCSP)
	if !inline {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("media stream interrupted")
	}
}
