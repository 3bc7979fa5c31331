package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matchtrack/matchtrack/internal/domain/access"
	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/tracectx"
)

// IngestionService is the producer-facing half of the pipeline: accept a
// submission, park a pending result, enqueue, answer status polls.
type IngestionService struct {
	queue     ingest.Queue
	results   ingest.ResultStore
	logger    *logging.Logger
	now       func() time.Time
	newTaskID func() string
}

func NewIngestionService(queue ingest.Queue, results ingest.ResultStore, logger *logging.Logger) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		queue:     queue,
		results:   results,
		logger:    logger,
		now:       time.Now,
		newTaskID: uuid.NewString,
	}
}

// Submit validates shape only and enqueues; entity resolution happens in the
// worker. The returned task id is what producers poll.
func (s *IngestionService) Submit(ctx context.Context, principal user.Principal, submission ingest.Submission) (string, error) {
	subject := access.Subject{UserID: principal.UserID, Role: principal.Role, Anonymous: principal.UserID == ""}
	if decision := access.Decide(subject, access.MatchSubmit, access.Resource{}); !decision.Allowed {
		return "", fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}

	if err := submission.ValidateShape(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	trace, _ := tracectx.From(ctx)
	now := s.now().UTC()
	taskID := s.newTaskID()

	if err := s.results.Set(ctx, ingest.TaskResult{
		TaskID:    taskID,
		State:     ingest.StatePending,
		Trace:     trace,
		UpdatedAt: now,
	}); err != nil {
		return "", fmt.Errorf("record pending task: %w", err)
	}

	job := ingest.Job{
		TaskID:     taskID,
		Producer:   principal.Username,
		Submission: submission,
		Trace:      trace,
		EnqueuedAt: now,
	}
	if err := s.queue.Publish(ctx, job); err != nil {
		_ = s.results.Set(ctx, ingest.TaskResult{
			TaskID:    taskID,
			State:     ingest.StateFailure,
			ErrorCode: "INTERNAL",
			Error:     "enqueue failed",
			Trace:     trace,
			UpdatedAt: s.now().UTC(),
		})
		return "", fmt.Errorf("%w: enqueue submission: %v", ErrTransient, err)
	}

	s.logger.InfoContext(ctx, "submission enqueued",
		"task_id", taskID, "producer", principal.Username, "external_match_id", submission.ExternalMatchID)
	return taskID, nil
}

func (s *IngestionService) TaskStatus(ctx context.Context, taskID string) (ingest.TaskResult, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return ingest.TaskResult{}, fmt.Errorf("%w: malformed task id", ErrInvalidInput)
	}

	result, exists, err := s.results.Get(ctx, taskID)
	if err != nil {
		return ingest.TaskResult{}, fmt.Errorf("get task result: %w", err)
	}
	if !exists {
		return ingest.TaskResult{}, fmt.Errorf("%w: task not found or expired", ErrNotFound)
	}
	return result, nil
}
