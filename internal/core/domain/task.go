package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeNotify dispatches a lifecycle notification to a recipient or owner
	TaskTypeNotify TaskType = "notify"
	// TaskTypeDueDateScan enqueues reminder notifications for assignments
	// approaching their due date
	TaskTypeDueDateScan TaskType = "due_date_scan"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// NotificationKind selects the message template for a lifecycle notification
type NotificationKind string

const (
	NotifyAssigned  NotificationKind = "assigned"
	NotifySigned    NotificationKind = "signed"
	NotifySentBack  NotificationKind = "sent_back"
	NotifyConfirmed NotificationKind = "confirmed"
	NotifyReminder  NotificationKind = "reminder"
)

// Notification is the payload handed to the Notifier collaborator.
// Dispatch is fire-and-forget: the lifecycle transition commits first and
// never rolls back on delivery failure.
type Notification struct {
	Recipient     string           `json:"recipient"` // email address
	Kind          NotificationKind `json:"kind"`
	DocumentID    string           `json:"document_id"`
	DocumentTitle string           `json:"document_title"`
	Note          string           `json:"note,omitempty"`   // revision note on send-back
	Secret        string           `json:"secret,omitempty"` // one-time access secret on assignment
}

// Task represents a background job to be processed by workers
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// Payload contains task-specific data
	// For notify: the serialized Notification fields
	// For due_date_scan: {} (empty)
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Priority determines processing order (higher = more urgent)
	Priority int `json:"priority"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	// CreatedAt is when the task was enqueued
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when processing began (nil if not started)
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when processing finished (nil if not complete)
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the task should be processed (for delayed tasks)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		Priority:     0,
		Attempts:     0,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewNotifyTask creates a task to deliver a lifecycle notification.
func NewNotifyTask(n Notification) *Task {
	payload := map[string]string{
		"recipient":      n.Recipient,
		"kind":           string(n.Kind),
		"document_id":    n.DocumentID,
		"document_title": n.DocumentTitle,
	}
	if n.Note != "" {
		payload["note"] = n.Note
	}
	if n.Secret != "" {
		payload["secret"] = n.Secret
	}
	return NewTask(TaskTypeNotify, payload)
}

// NewDueDateScanTask creates a task that scans for assignments due soon.
func NewDueDateScanTask() *Task {
	return NewTask(TaskTypeDueDateScan, nil)
}

// Notification reconstructs the notification payload of a notify task.
func (t *Task) Notification() Notification {
	if t.Payload == nil {
		return Notification{}
	}
	return Notification{
		Recipient:     t.Payload["recipient"],
		Kind:          NotificationKind(t.Payload["kind"]),
		DocumentID:    t.Payload["document_id"],
		DocumentTitle: t.Payload["document_title"],
		Note:          t.Payload["note"],
		Secret:        t.Payload["secret"],
	}
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// Exponential backoff: 1s, 2s, 4s, 8s, etc.
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute // Cap at 5 minutes
	}
	t.ScheduledFor = now.Add(backoff)
}

// ScheduledTask represents a recurring task configuration
type ScheduledTask struct {
	// ID is the unique identifier for this scheduled task
	ID string `json:"id"`

	// Name is a human-readable name for the task
	Name string `json:"name"`

	// Type is the task type to create when triggered
	Type TaskType `json:"type"`

	// Interval is how often to run the task
	Interval time.Duration `json:"interval"`

	// Enabled indicates if the schedule is active
	Enabled bool `json:"enabled"`

	// LastRun is when the task was last triggered
	LastRun *time.Time `json:"last_run,omitempty"`

	// NextRun is when the task should next be triggered
	NextRun time.Time `json:"next_run"`

	// LastError contains the last error if the scheduled task failed
	LastError string `json:"last_error,omitempty"`
}

// NewScheduledTask creates a new scheduled task
func NewScheduledTask(id, name string, taskType TaskType, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

// IsDue returns true if the scheduled task should be triggered
func (s *ScheduledTask) IsDue() bool {
	return s.Enabled && time.Now().After(s.NextRun)
}

// UpdateNextRun calculates the next run time after execution
func (s *ScheduledTask) UpdateNextRun() {
	now := time.Now()
	s.LastRun = &now
	s.NextRun = now.Add(s.Interval)
}

// DefaultSchedulerConfig returns the default scheduled tasks
func DefaultSchedulerConfig() []*ScheduledTask {
	return []*ScheduledTask{
		NewScheduledTask(
			"due-date-scan",
			"Due Date Scan",
			TaskTypeDueDateScan,
			6*time.Hour,
		),
	}
}
