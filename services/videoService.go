package services

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/storage"
	"SmartHealth/utils"
)

const relatedVideoLimit = 5

// VideoInput is the therapist upload form. Nil Difficulty and IsActive
// fall back to beginner and active.
type VideoInput struct {
	Title           string              `json:"title" form:"title"`
	Description     string              `json:"description" form:"description"`
	ExerciseType    models.ExerciseType `json:"exercise_type" form:"exercise_type"`
	DurationMinutes *int                `json:"duration_minutes" form:"duration_minutes"`
	Difficulty      models.Difficulty   `json:"difficulty_level" form:"difficulty_level"`
	IsActive        *bool               `json:"is_active" form:"is_active"`
}

func (in VideoInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.ExerciseType, validation.Required, validation.By(func(v interface{}) error {
			if t, _ := v.(models.ExerciseType); !t.Valid() {
				return errors.New("Select a valid exercise type.")
			}
			return nil
		})),
		validation.Field(&in.DurationMinutes, validation.By(func(v interface{}) error {
			if d, _ := v.(*int); d != nil && *d < 1 {
				return errors.New("must be at least 1 minute")
			}
			return nil
		})),
		validation.Field(&in.Difficulty, validation.By(func(v interface{}) error {
			if d, _ := v.(models.Difficulty); d != "" && !d.Valid() {
				return errors.New("Select a valid difficulty level.")
			}
			return nil
		})),
	)
}

// VideoLibrary is the patient catalogue with its filter choices.
type VideoLibrary struct {
	Videos        []models.ExerciseVideo   `json:"videos"`
	ExerciseTypes []models.Choice          `json:"exercise_types"`
	Difficulties  []models.Choice          `json:"difficulty_levels"`
	Filter        repositories.VideoFilter `json:"-"`
}

type VideoView struct {
	Video   *models.ExerciseVideo  `json:"video"`
	Related []models.ExerciseVideo `json:"related_videos"`
}

type VideoService struct {
	videos repositories.VideoRepository
	media  storage.MediaStore
}

func NewVideoService(videos repositories.VideoRepository, media storage.MediaStore) *VideoService {
	return &VideoService{videos: videos, media: media}
}

func (s *VideoService) Upload(ctx context.Context, p access.Principal, in VideoInput, video, thumbnail *storage.Upload) (*models.ExerciseVideo, error) {
	if err := authorize(p, access.UploadVideo, access.None); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if video == nil || !strings.HasPrefix(video.ContentType, "video/") {
		return nil, utils.FieldError("video_file", "Upload a valid video file.")
	}
	if thumbnail != nil && !strings.HasPrefix(thumbnail.ContentType, "image/") {
		return nil, utils.FieldError("thumbnail", "Upload a valid image.")
	}

	record := &models.ExerciseVideo{
		TherapistID:     p.UserID,
		Title:           in.Title,
		Description:     strings.TrimSpace(in.Description),
		ExerciseType:    in.ExerciseType,
		DurationMinutes: in.DurationMinutes,
		DifficultyLevel: in.Difficulty,
		IsActive:        in.IsActive == nil || *in.IsActive,
	}
	if record.DifficultyLevel == "" {
		record.DifficultyLevel = models.DifficultyBeginner
	}

	var err error
	if record.VideoFile, err = s.media.Save(ctx, storage.ExerciseVideos, video); err != nil {
		return nil, err
	}
	if thumbnail != nil {
		if record.Thumbnail, err = s.media.Save(ctx, storage.VideoThumbnails, thumbnail); err != nil {
			s.discard(ctx, record.VideoFile)
			return nil, err
		}
	}
	if err := s.videos.Create(ctx, record); err != nil {
		s.discard(ctx, record.VideoFile, record.Thumbnail)
		return nil, err
	}
	log.Info().Uint("video_id", record.ID).Uint("therapist_id", p.UserID).Str("exercise_type", string(record.ExerciseType)).Msg("exercise video uploaded")
	return record, nil
}

func (s *VideoService) discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.media.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to discard uploaded file")
		}
	}
}

// ListForPatient returns active videos matching every non-empty filter
// field, newest first.
func (s *VideoService) ListForPatient(ctx context.Context, p access.Principal, filter repositories.VideoFilter) (*VideoLibrary, error) {
	if err := authorize(p, access.ListVideos, access.None); err != nil {
		return nil, err
	}
	videos, err := s.videos.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &VideoLibrary{
		Videos:        videos,
		ExerciseTypes: models.ExerciseTypeChoices(),
		Difficulties:  models.DifficultyChoices(),
		Filter:        filter,
	}, nil
}

// ListForTherapist returns the caller's own uploads, active or not.
func (s *VideoService) ListForTherapist(ctx context.Context, p access.Principal) ([]models.ExerciseVideo, error) {
	if err := authorize(p, access.ListOwnVideos, access.None); err != nil {
		return nil, err
	}
	return s.videos.ListByTherapist(ctx, p.UserID)
}

// Watch counts a view and suggests related videos of the same type.
func (s *VideoService) Watch(ctx context.Context, p access.Principal, id uint) (*VideoView, error) {
	if err := authorize(p, access.WatchVideo, access.None); err != nil {
		return nil, err
	}
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if video == nil || !video.IsActive {
		return nil, ErrNotFound
	}
	if err := s.videos.IncrementViews(ctx, video.ID); err != nil {
		if errors.Is(err, repositories.ErrStale) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	video.ViewsCount++

	related, err := s.videos.Related(ctx, video.ExerciseType, video.ID, relatedVideoLimit)
	if err != nil {
		return nil, err
	}
	return &VideoView{Video: video, Related: related}, nil
}

// Delete removes the video file, the thumbnail and then the record. The first
// failure stops the sequence and is reported as a single error.
func (s *VideoService) Delete(ctx context.Context, p access.Principal, id uint) (*models.ExerciseVideo, error) {
	if err := authorize(p, access.DeleteVideo, access.None); err != nil {
		return nil, err
	}
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, ErrNotFound
	}
	if err := authorize(p, access.DeleteVideo, access.Owned(video.TherapistID)); err != nil {
		return nil, err
	}

	for _, key := range []string{video.VideoFile, video.Thumbnail} {
		if key == "" {
			continue
		}
		if err := s.media.Delete(ctx, key); err != nil {
			return nil, errors.Wrapf(err, "failed to delete video %d", video.ID)
		}
	}
	if err := s.videos.Delete(ctx, video.ID); err != nil {
		return nil, errors.Wrapf(err, "failed to delete video %d", video.ID)
	}
	log.Info().Uint("video_id", video.ID).Uint("therapist_id", p.UserID).Msg("exercise video deleted")
	return video, nil
}
