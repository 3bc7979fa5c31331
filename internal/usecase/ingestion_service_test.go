package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/infrastructure/broker/memqueue"
	"github.com/matchtrack/matchtrack/internal/infrastructure/taskresult"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type captureQueue struct {
	mu   sync.Mutex
	jobs []ingest.Job
	err  error
}

func (q *captureQueue) Publish(_ context.Context, job ingest.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *captureQueue) published() []ingest.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ingest.Job(nil), q.jobs...)
}

func serviceAccount() user.Principal {
	return user.Principal{UserID: "idp-svc", Username: "scraper-bot", Role: user.RoleService}
}

func TestIngestionService_SubmitEnqueuesAndParksPending(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	results := taskresult.NewStore(cache.NewStore(time.Minute), time.Hour)
	service := usecase.NewIngestionService(queue, results, logging.NewNop())

	taskID, err := service.Submit(t.Context(), serviceAccount(), validSubmission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := uuid.Parse(taskID); err != nil {
		t.Fatalf("task id %q is not a uuid: %v", taskID, err)
	}

	jobs := queue.published()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 published job, got %d", len(jobs))
	}
	if jobs[0].TaskID != taskID || jobs[0].Producer != "scraper-bot" {
		t.Fatalf("job identity wrong: %+v", jobs[0])
	}

	result, err := service.TaskStatus(t.Context(), taskID)
	if err != nil {
		t.Fatalf("TaskStatus: %v", err)
	}
	if result.State != ingest.StatePending || result.Ready() {
		t.Fatalf("fresh task must be pending, got %+v", result)
	}
}

func TestIngestionService_SubmitRequiresServiceRole(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	results := taskresult.NewStore(cache.NewStore(time.Minute), time.Hour)
	service := usecase.NewIngestionService(queue, results, logging.NewNop())

	for _, role := range []user.Role{user.RoleAdmin, user.RoleClubManager, user.RoleTeamManager, user.RoleTeamFan} {
		principal := user.Principal{UserID: "idp-1", Username: "someone", Role: role}
		if _, err := service.Submit(t.Context(), principal, validSubmission()); !errors.Is(err, usecase.ErrForbidden) {
			t.Fatalf("role %s: expected ErrForbidden, got %v", role, err)
		}
	}

	anonymous := user.Principal{}
	if _, err := service.Submit(t.Context(), anonymous, validSubmission()); !errors.Is(err, usecase.ErrForbidden) {
		t.Fatalf("anonymous: expected ErrForbidden, got %v", err)
	}

	if got := len(queue.published()); got != 0 {
		t.Fatalf("rejected submissions must not enqueue, got %d jobs", got)
	}
}

func TestIngestionService_SubmitRejectsMalformedShape(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{}
	results := taskresult.NewStore(cache.NewStore(time.Minute), time.Hour)
	service := usecase.NewIngestionService(queue, results, logging.NewNop())

	missingTeam := validSubmission()
	missingTeam.HomeTeam = ""
	if _, err := service.Submit(t.Context(), serviceAccount(), missingTeam); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("missing team: expected ErrInvalidInput, got %v", err)
	}

	badDate := validSubmission()
	badDate.MatchDate = "next saturday"
	if _, err := service.Submit(t.Context(), serviceAccount(), badDate); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("bad date: expected ErrInvalidInput, got %v", err)
	}

	negative := validSubmission()
	minus := -1
	negative.HomeScore = &minus
	if _, err := service.Submit(t.Context(), serviceAccount(), negative); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("negative score: expected ErrInvalidInput, got %v", err)
	}

	if got := len(queue.published()); got != 0 {
		t.Fatalf("malformed submissions must not enqueue, got %d jobs", got)
	}
}

func TestIngestionService_EnqueueFailureIsTransient(t *testing.T) {
	t.Parallel()

	queue := &captureQueue{err: errors.New("broker down")}
	results := taskresult.NewStore(cache.NewStore(time.Minute), time.Hour)
	service := usecase.NewIngestionService(queue, results, logging.NewNop())

	_, err := service.Submit(t.Context(), serviceAccount(), validSubmission())
	if !errors.Is(err, usecase.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestIngestionService_TaskStatus(t *testing.T) {
	t.Parallel()

	results := taskresult.NewStore(cache.NewStore(time.Minute), time.Hour)
	service := usecase.NewIngestionService(&captureQueue{}, results, logging.NewNop())

	if _, err := service.TaskStatus(t.Context(), "not-a-uuid"); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("malformed id: expected ErrInvalidInput, got %v", err)
	}
	if _, err := service.TaskStatus(t.Context(), uuid.NewString()); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}
}

// Producer identity must survive the real token round trip: the service
// account logs in, the bearer token is verified, and the verified principal
// names the producer on the published job. Hand-built principals would hide
// a dropped username claim.
func TestIngestionService_ProducerIdentityFromVerifiedToken(t *testing.T) {
	t.Parallel()

	f := newIdentityFixture(t)

	idpID, err := f.idp.CreateUser(t.Context(), "scraper_bot@members.matchtrack.internal", "machine secret")
	if err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
	if _, err := f.users.Create(t.Context(), user.Profile{
		ID: idpID, Username: "scraper_bot", Role: user.RoleService,
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	pair, _, err := f.service.Login(t.Context(), usecase.LoginInput{
		Username: "scraper_bot", Password: "machine secret", IP: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	principal, err := f.service.Verify(t.Context(), pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.Username != "scraper_bot" {
		t.Fatalf("verified principal lost the username: %+v", principal)
	}

	queue := &captureQueue{}
	results := taskresult.NewStore(cache.NewStore(time.Minute), time.Hour)
	service := usecase.NewIngestionService(queue, results, logging.NewNop())

	if _, err := service.Submit(t.Context(), principal, validSubmission()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	jobs := queue.published()
	if len(jobs) != 1 || jobs[0].Producer != "scraper_bot" {
		t.Fatalf("job must carry the producer identity, got %+v", jobs)
	}
}

// End to end through the in-process queue: Submit parks a pending result,
// the worker picks the job up and the poll eventually reads SUCCESS.
func TestIngestionPipeline_InProcess(t *testing.T) {
	t.Parallel()

	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 2})

	queue := memqueue.New(8, logging.NewNop())
	queue.Start(f.worker, 2)
	defer queue.Stop()

	service := usecase.NewIngestionService(queue, f.results, logging.NewNop())

	taskID, err := service.Submit(t.Context(), serviceAccount(), validSubmission())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		result, err := service.TaskStatus(t.Context(), taskID)
		if err != nil {
			t.Fatalf("TaskStatus: %v", err)
		}
		if result.Ready() {
			if result.State != ingest.StateSuccess || result.Action != ingest.ActionCreated {
				t.Fatalf("pipeline result: %+v", result)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never reached a terminal state: %+v", result)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, found, err := f.matches.GetByExternalID(t.Context(), "ext-100"); err != nil || !found {
		t.Fatalf("match not stored by pipeline: found=%t err=%v", found, err)
	}
}
