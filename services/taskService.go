package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"SmartHealth/access"
	"SmartHealth/database"
	"SmartHealth/models"
	"SmartHealth/repositories"
	"SmartHealth/utils"
)

const (
	taskLockTTL = 10 * time.Second
	// LongTaskThreshold flags in-progress tasks on the staff patient view.
	LongTaskThreshold = 60 * time.Minute

	msgTaskInProgress  = "You already have a task in progress. Complete it before starting another."
	msgTaskNotProgress = "Task is not currently in progress or already completed."
)

type TaskStats struct {
	Total           int        `json:"total"`
	AverageDuration float64    `json:"average_duration"`
	LastCompleted   *time.Time `json:"last_completed,omitempty"`
}

// TaskSummary is what staff see about a patient's task activity.
type TaskSummary struct {
	Stats       TaskStats            `json:"stats"`
	LongTasks   []models.PatientTask `json:"long_tasks"`
	MissedTasks []models.PatientTask `json:"missed_tasks"`
}

// SummarizeTasks computes completion stats, tasks running longer than
// LongTaskThreshold, and pending tasks that were never started.
func SummarizeTasks(tasks []models.PatientTask, now time.Time) TaskSummary {
	completed := lo.Filter(tasks, func(t models.PatientTask, _ int) bool {
		return t.Status == models.TaskCompleted
	})
	summary := TaskSummary{
		Stats: TaskStats{Total: len(completed)},
		LongTasks: lo.Filter(tasks, func(t models.PatientTask, _ int) bool {
			return t.Status == models.TaskInProgress && t.StartedAt != nil && now.Sub(*t.StartedAt) > LongTaskThreshold
		}),
		MissedTasks: lo.Filter(tasks, func(t models.PatientTask, _ int) bool {
			return t.Status == models.TaskPending && t.StartedAt == nil
		}),
	}

	durations := lo.FilterMap(completed, func(t models.PatientTask, _ int) (int, bool) {
		if t.DurationMinutes == nil {
			return 0, false
		}
		return *t.DurationMinutes, true
	})
	if len(durations) > 0 {
		summary.Stats.AverageDuration = float64(lo.Sum(durations)) / float64(len(durations))
	}
	for _, t := range completed {
		if t.CompletedAt != nil && (summary.Stats.LastCompleted == nil || t.CompletedAt.After(*summary.Stats.LastCompleted)) {
			summary.Stats.LastCompleted = t.CompletedAt
		}
	}
	return summary
}

type TaskService struct {
	tasks  repositories.TaskRepository
	locker database.Locker
	now    Clock
}

func NewTaskService(tasks repositories.TaskRepository, locker database.Locker) *TaskService {
	return &TaskService{tasks: tasks, locker: locker, now: time.Now}
}

// Start begins a task for the calling patient. A patient has at most one
// task in progress.
func (s *TaskService) Start(ctx context.Context, p access.Principal, taskType models.TaskType) (*models.PatientTask, error) {
	if err := authorize(p, access.StartTask, access.None); err != nil {
		return nil, err
	}
	taskType = models.TaskType(strings.TrimSpace(string(taskType)))
	if taskType == "" {
		return nil, utils.FieldError("task_type", "cannot be blank")
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("task_lock:%d", p.UserID), taskLockTTL)
	if errors.Is(err, database.ErrLockNotAcquired) {
		// Another start for this patient holds the lock.
		return nil, conflict(msgTaskInProgress)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock task start")
	}
	defer unlock()

	active, err := s.tasks.ActiveForPatient(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, conflict(msgTaskInProgress)
	}

	now := s.now()
	task := &models.PatientTask{
		PatientID: p.UserID,
		TaskName:  models.TaskLabel(taskType),
		TaskType:  taskType,
		StartedAt: &now,
		Status:    models.TaskInProgress,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflict(msgTaskInProgress)
		}
		return nil, err
	}
	log.Info().Uint("task_id", task.ID).Uint("patient_id", p.UserID).Str("task_type", string(taskType)).Msg("task started")
	return task, nil
}

// Complete finishes the caller's in-progress task and records its duration.
func (s *TaskService) Complete(ctx context.Context, p access.Principal, taskID uint) (*models.PatientTask, error) {
	if err := authorize(p, access.CompleteTask, access.None); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if err := authorize(p, access.CompleteTask, access.Owned(task.PatientID)); err != nil {
		return nil, err
	}
	if task.Status != models.TaskInProgress {
		return nil, conflict(msgTaskNotProgress)
	}

	now := s.now()
	duration := models.TaskDuration(task.StartedAt, now)
	task.CompletedAt = &now
	task.DurationMinutes = &duration
	if err := s.tasks.Complete(ctx, task); err != nil {
		if errors.Is(err, repositories.ErrStale) {
			return nil, conflict(msgTaskNotProgress)
		}
		return nil, err
	}
	task.Status = models.TaskCompleted
	return task, nil
}

// Feedback attaches or replaces therapist feedback on any task.
func (s *TaskService) Feedback(ctx context.Context, p access.Principal, taskID uint, feedback string) (*models.PatientTask, error) {
	if err := authorize(p, access.TaskFeedback, access.None); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	feedback = strings.TrimSpace(feedback)
	if err := s.tasks.UpdateFeedback(ctx, task.ID, feedback); err != nil {
		return nil, err
	}
	task.Feedback = feedback
	return task, nil
}
