package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/services"
	"SmartHealth/utils"
)

type VideoHandler struct {
	videos *services.VideoService
}

func NewVideoHandler(videos *services.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// Upload stores a new exercise video from a multipart form with a required
// video_file and an optional thumbnail.
func (h *VideoHandler) Upload(c *gin.Context) {
	var in services.VideoInput
	if !bind(c, &in) {
		return
	}
	video, closeVideo, err := formUpload(c, "video_file")
	defer closeVideo()
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	if video == nil {
		middlewares.RespondError(c, utils.FieldError("video_file", "cannot be blank"), "")
		return
	}
	thumb, closeThumb, err := formUpload(c, "thumbnail")
	defer closeThumb()
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}

	saved, err := h.videos.Upload(c.Request.Context(), middlewares.PrincipalFrom(c), in, video, thumb)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	msg := fmt.Sprintf("Video '%s' uploaded successfully!", saved.Title)
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, TherapistVideosPath, saved)
}

func (h *VideoHandler) ListForTherapist(c *gin.Context) {
	videos, err := h.videos.ListForTherapist(c.Request.Context(), middlewares.PrincipalFrom(c))
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, gin.H{"videos": videos}, http.StatusOK)
}

// ListForPatient accepts ?exercise_type= and ?difficulty= filters.
func (h *VideoHandler) ListForPatient(c *gin.Context) {
	filter := repositories.VideoFilter{
		ExerciseType: models.ExerciseType(c.Query("exercise_type")),
		Difficulty:   models.Difficulty(c.Query("difficulty")),
	}
	library, err := h.videos.ListForPatient(c.Request.Context(), middlewares.PrincipalFrom(c), filter)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, gin.H{
		"videos":            library.Videos,
		"exercise_types":    library.ExerciseTypes,
		"difficulty_levels": library.Difficulties,
		"current_filters": gin.H{
			"exercise_type": library.Filter.ExerciseType,
			"difficulty":    library.Filter.Difficulty,
		},
	}, http.StatusOK)
}

func (h *VideoHandler) Watch(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.videos.Watch(c.Request.Context(), middlewares.PrincipalFrom(c), id)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondJSON(c, view, http.StatusOK)
}

func (h *VideoHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	video, err := h.videos.Delete(c.Request.Context(), middlewares.PrincipalFrom(c), id)
	if err != nil {
		middlewares.RespondError(c, err, TherapistVideosPath)
		return
	}
	msg := fmt.Sprintf("Video '%s' deleted successfully.", video.Title)
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, msg, TherapistVideosPath, nil)
}
