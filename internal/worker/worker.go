package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
	"github.com/quillflow/quillflow-core/internal/core/services"
)

// Reminders go out for assignments due within this window of a scan.
const reminderWindow = 48 * time.Hour

// Worker processes tasks from the task queue: notification deliveries and
// periodic due date scans.
type Worker struct {
	taskQueue       driven.TaskQueue
	notifier        driven.Notifier
	assignmentStore driven.AssignmentStore
	documentStore   driven.DocumentStore
	userStore       driven.UserStore
	scheduler       *services.Scheduler
	logger          *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue       driven.TaskQueue
	Notifier        driven.Notifier
	AssignmentStore driven.AssignmentStore
	DocumentStore   driven.DocumentStore
	UserStore       driven.UserStore
	Scheduler       *services.Scheduler
	Logger          *slog.Logger
	Concurrency     int // Number of concurrent task processors
	DequeueTimeout  int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:       cfg.TaskQueue,
		notifier:        cfg.Notifier,
		assignmentStore: cfg.AssignmentStore,
		documentStore:   cfg.DocumentStore,
		userStore:       cfg.UserStore,
		scheduler:       cfg.Scheduler,
		logger:          logger,
		concurrency:     concurrency,
		dequeueTimeout:  dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	// Start the scheduler if provided
	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	// Stop the scheduler
	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	// Wait for workers to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		// Dequeue a task with timeout
		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if task == nil {
			// No task available, continue
			continue
		}

		// Process the task
		w.processTask(ctx, task, logger)
	}
}

// processTask processes a single task.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeNotify:
		err = w.handleNotify(ctx, task)
	case domain.TaskTypeDueDateScan:
		err = w.handleDueDateScan(ctx)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"error", err,
		)

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	// Ack the task
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleNotify delivers a lifecycle notification.
func (w *Worker) handleNotify(ctx context.Context, task *domain.Task) error {
	n := task.Notification()
	if n.Recipient == "" {
		return fmt.Errorf("recipient not found in task payload")
	}
	return w.notifier.Send(ctx, n)
}

// handleDueDateScan enqueues reminder notifications for unsigned assignments
// whose due date falls within the reminder window.
func (w *Worker) handleDueDateScan(ctx context.Context) error {
	cutoff := time.Now().Add(reminderWindow)

	assignments, err := w.assignmentStore.ListDueBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list due assignments: %w", err)
	}
	if len(assignments) == 0 {
		return nil
	}

	var reminders []*domain.Task
	for _, a := range assignments {
		doc, err := w.documentStore.Get(ctx, a.DocumentID)
		if err != nil {
			w.logger.Warn("skipping reminder, document lookup failed",
				"document_id", a.DocumentID, "error", err)
			continue
		}

		recipient, err := w.userStore.Get(ctx, a.RecipientID)
		if err != nil {
			w.logger.Warn("skipping reminder, recipient lookup failed",
				"recipient_id", a.RecipientID, "error", err)
			continue
		}

		reminders = append(reminders, domain.NewNotifyTask(domain.Notification{
			Recipient:     recipient.Email,
			Kind:          domain.NotifyReminder,
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
		}))
	}

	if len(reminders) == 0 {
		return nil
	}

	if err := w.taskQueue.EnqueueBatch(ctx, reminders); err != nil {
		return fmt.Errorf("enqueue reminders: %w", err)
	}

	w.logger.Info("due date scan complete",
		"assignments_due", len(assignments),
		"reminders_enqueued", len(reminders),
	)
	return nil
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	// Check queue health
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
