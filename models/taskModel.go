package models

import (
	"math"
	"time"
)

type TaskType string

const (
	TaskAdaptiveSports   TaskType = "adaptive_sports"
	TaskCreativeArts     TaskType = "creative_arts"
	TaskMusicTherapy     TaskType = "music_therapy"
	TaskSpeechTherapy    TaskType = "speech_therapy"
	TaskExercise         TaskType = "exercise"
	TaskYoga             TaskType = "yoga"
	TaskSensoryPlay      TaskType = "sensory_play"
	TaskSocialSkills     TaskType = "social_skills"
	TaskLanguageLearning TaskType = "language_learning"
	TaskGardening        TaskType = "gardening"
)

// Choice is a value/label pair for selectable enumerations.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var TaskTypes = []TaskType{
	TaskAdaptiveSports, TaskCreativeArts, TaskMusicTherapy, TaskSpeechTherapy, TaskExercise,
	TaskYoga, TaskSensoryPlay, TaskSocialSkills, TaskLanguageLearning, TaskGardening,
}

var taskLabels = map[TaskType]string{
	TaskAdaptiveSports:   "Adaptive Sports",
	TaskCreativeArts:     "Creative Arts",
	TaskMusicTherapy:     "Music Therapy",
	TaskSpeechTherapy:    "Speech Therapy",
	TaskExercise:         "Exercise",
	TaskYoga:             "Yoga",
	TaskSensoryPlay:      "Sensory Play",
	TaskSocialSkills:     "Social Skills Training",
	TaskLanguageLearning: "Language Learning",
	TaskGardening:        "Gardening",
}

const UnknownTaskLabel = "Unknown Task"

// TaskLabel maps a task type to its display name.
func TaskLabel(t TaskType) string {
	if label, ok := taskLabels[t]; ok {
		return label
	}
	return UnknownTaskLabel
}

func TaskTypeChoices() []Choice {
	choices := make([]Choice, 0, len(TaskTypes))
	for _, t := range TaskTypes {
		choices = append(choices, Choice{Value: string(t), Label: taskLabels[t]})
	}
	return choices
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// PatientTask tracks one exercise session. The partial unique index keeps
// a single in_progress task per patient.
type PatientTask struct {
	ID              uint       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID       uint       `gorm:"column:patient_id;not null;index;uniqueIndex:idx_patient_task_active,where:status = 'in_progress'" json:"patient_id"`
	TaskName        string     `gorm:"size:255;column:task_name;not null" json:"task_name"`
	TaskType        TaskType   `gorm:"size:50;column:task_type;not null" json:"task_type"`
	StartedAt       *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	DurationMinutes *int       `gorm:"column:duration_minutes" json:"duration_minutes,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	Status          TaskStatus `gorm:"size:20;column:status;not null;default:pending;check:status IN ('pending', 'in_progress', 'completed')" json:"status"`
	Feedback        string     `gorm:"type:text;column:feedback" json:"feedback"`
	Patient         User       `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PatientTask) TableName() string {
	return "patient_task"
}

// TaskDuration is elapsed whole minutes rounded half-up, never below 1.
func TaskDuration(startedAt *time.Time, now time.Time) int {
	if startedAt == nil {
		return 1
	}
	minutes := int(math.Round(now.Sub(*startedAt).Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}
