// Package storage keeps uploaded media (profile photos, visit documents,
// exercise videos and thumbnails) on local disk or in S3.
package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	ProfilePhotos   = "profile_photos"
	VisitReports    = "reports"
	Prescriptions   = "prescriptions"
	ExerciseVideos  = "exercise_videos"
	VideoThumbnails = "video_thumbnails"
)

var (
	ErrNotFound   = errors.New("media not found")
	ErrInvalidKey = errors.New("invalid media key")
)

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaStore saves uploads under a prefix and returns the stored key.
type MediaStore interface {
	Save(ctx context.Context, prefix string, upload *Upload) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// objectKey names a new object "<prefix>/<uuid><ext>" so client file names
// never reach the filesystem. Only extensions listed in mediaTypes survive.
func objectKey(prefix, filename string) string {
	return path.Join(prefix, uuid.NewString()+knownExt(filepath.Base(filename)))
}

// CleanKey rejects keys that escape the media root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." || strings.Contains(cleaned, `\`) {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
