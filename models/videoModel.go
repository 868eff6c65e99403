package models

import "time"

type ExerciseType string

const (
	ExercisePhysiotherapy       ExerciseType = "physiotherapy"
	ExerciseOccupationalTherapy ExerciseType = "occupational_therapy"
)

// ExerciseTypes is every task type followed by the two therapy types.
var ExerciseTypes = func() []ExerciseType {
	types := make([]ExerciseType, 0, len(TaskTypes)+2)
	for _, t := range TaskTypes {
		types = append(types, ExerciseType(t))
	}
	return append(types, ExercisePhysiotherapy, ExerciseOccupationalTherapy)
}()

func ExerciseLabel(t ExerciseType) string {
	switch t {
	case ExercisePhysiotherapy:
		return "Physiotherapy"
	case ExerciseOccupationalTherapy:
		return "Occupational Therapy"
	}
	return TaskLabel(TaskType(t))
}

func (t ExerciseType) Valid() bool {
	return ExerciseLabel(t) != UnknownTaskLabel
}

func ExerciseTypeChoices() []Choice {
	choices := make([]Choice, 0, len(ExerciseTypes))
	for _, t := range ExerciseTypes {
		choices = append(choices, Choice{Value: string(t), Label: ExerciseLabel(t)})
	}
	return choices
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

func DifficultyChoices() []Choice {
	return []Choice{
		{Value: string(DifficultyBeginner), Label: "Beginner"},
		{Value: string(DifficultyIntermediate), Label: "Intermediate"},
		{Value: string(DifficultyAdvanced), Label: "Advanced"},
	}
}

// ExerciseVideo is therapist content. Patients only see active videos.
type ExerciseVideo struct {
	ID              uint         `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TherapistID     uint         `gorm:"column:therapist_id;not null;index" json:"therapist_id"`
	Title           string       `gorm:"size:200;column:title;not null" json:"title"`
	Description     string       `gorm:"type:text;column:description" json:"description"`
	ExerciseType    ExerciseType `gorm:"size:50;column:exercise_type;not null;index" json:"exercise_type"`
	VideoFile       string       `gorm:"size:255;column:video_file;not null" json:"video_file"`
	Thumbnail       string       `gorm:"size:255;column:thumbnail" json:"thumbnail,omitempty"`
	DurationMinutes *int         `gorm:"column:duration_minutes" json:"duration_minutes,omitempty"`
	DifficultyLevel Difficulty   `gorm:"size:20;column:difficulty_level;not null;default:beginner" json:"difficulty_level"`
	IsActive        bool         `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt       time.Time    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	ViewsCount      int          `gorm:"column:views_count;not null;default:0" json:"views_count"`
	Therapist       User         `gorm:"foreignKey:TherapistID;references:ID;constraint:OnDelete:CASCADE" json:"therapist"`
}

func (ExerciseVideo) TableName() string {
	return "exercise_video"
}
