package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/services"
	"SmartHealth/storage"
)

// Role landing pages after login and for role-bound warnings.
const (
	PatientHomePath     = "/home"
	DoctorHomePath      = "/profile/doctor"
	TherapistHomePath   = "/profile/therapist"
	DoctorDashPath      = "/doctor/dashboard"
	TherapistDashPath   = "/therapist/dashboard"
	TherapistVideosPath = "/videos/therapist"
)

// HomePath is where a role lands after login.
func HomePath(role models.Role) string {
	switch role {
	case models.RoleDoctor:
		return DoctorHomePath
	case models.RoleTherapist:
		return TherapistHomePath
	default:
		return PatientHomePath
	}
}

func dashboardPath(role models.Role) string {
	if role == models.RoleTherapist {
		return TherapistDashPath
	}
	return DoctorDashPath
}

// idParam parses a numeric path parameter. Anything else is reported as
// not found since no record can match it.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		middlewares.RespondError(c, services.ErrNotFound, "")
		return 0, false
	}
	return uint(id), true
}

// bind decodes a form or JSON body and reports malformed input as a
// validation error on the body itself.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBind(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// formUpload opens an optional multipart file. The returned close func is
// always safe to call.
func formUpload(c *gin.Context, field string) (*storage.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, errors.Wrapf(err, "failed to read %s", field)
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*storage.Upload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "failed to open upload")
	}
	upload := &storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return upload, func() { _ = file.Close() }, nil
}
