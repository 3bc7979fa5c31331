package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/division"
	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/domain/league"
	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/domain/season"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/infrastructure/repository/memory"
	"github.com/matchtrack/matchtrack/internal/infrastructure/taskresult"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type ingestFixture struct {
	worker  *usecase.IngestWorker
	matches *memory.MatchRepository
	teams   *memory.TeamRepository
	results *taskresult.Store
	store   *cache.Store
	sleeps  *atomic.Int32
}

func newIngestFixture(t *testing.T, cfg usecase.IngestWorkerConfig) *ingestFixture {
	t.Helper()
	ctx := t.Context()

	leagues := memory.NewLeagueRepository()
	lg, err := leagues.Create(ctx, league.League{Name: "Metro Youth League", IsActive: true})
	if err != nil {
		t.Fatalf("seed league: %v", err)
	}

	divisions := memory.NewDivisionRepository()
	if _, err := divisions.Create(ctx, division.Division{Name: "Division 1", LeagueID: lg.ID, Level: 1}); err != nil {
		t.Fatalf("seed division: %v", err)
	}

	seasons := memory.NewSeasonRepository()
	if _, err := seasons.Create(ctx, season.Season{
		Name:      "2025/2026",
		StartDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("seed season: %v", err)
	}

	ageGroups := memory.NewAgeGroupRepository()
	ageGroups.Seed("U12")

	teams := memory.NewTeamRepository()
	for _, name := range []string{"Harbor United U12", "North End U12"} {
		if _, err := teams.Create(ctx, team.Team{Name: name, LeagueID: lg.ID}, nil); err != nil {
			t.Fatalf("seed team %s: %v", name, err)
		}
	}

	matches := memory.NewMatchRepository()
	matches.SeedTypes("league", "friendly")

	store := cache.NewStore(time.Minute)
	results := taskresult.NewStore(store, time.Hour)

	var sleeps atomic.Int32
	worker := usecase.NewIngestWorker(
		matches, teams, leagues, divisions, seasons, ageGroups,
		results, store, cfg, logging.NewNop(),
	).WithClock(
		func() time.Time { return time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC) },
		func(context.Context, time.Duration) { sleeps.Add(1) },
	)

	return &ingestFixture{
		worker:  worker,
		matches: matches,
		teams:   teams,
		results: results,
		store:   store,
		sleeps:  &sleeps,
	}
}

func validSubmission() ingest.Submission {
	hs, as := 2, 1
	return ingest.Submission{
		HomeTeam:        "Harbor United U12",
		AwayTeam:        "North End U12",
		HomeScore:       &hs,
		AwayScore:       &as,
		MatchDate:       "2025-09-06",
		MatchTime:       "10:00",
		Location:        "Harbor Park",
		League:          "Metro Youth League",
		Season:          "2025/2026",
		AgeGroup:        "U12",
		Division:        "Division 1",
		MatchType:       "league",
		Status:          "completed",
		ExternalMatchID: "ext-100",
	}
}

func (f *ingestFixture) handle(t *testing.T, taskID string, sub ingest.Submission) ingest.TaskResult {
	t.Helper()
	job := ingest.Job{TaskID: taskID, Producer: "scraper-bot", Submission: sub}
	if err := f.worker.Handle(t.Context(), job); err != nil {
		t.Fatalf("Handle must not surface errors to the broker: %v", err)
	}
	result, found, err := f.results.Get(t.Context(), taskID)
	if err != nil || !found {
		t.Fatalf("task result missing: found=%t err=%v", found, err)
	}
	return result
}

func TestIngestWorker_CreatesMatch(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 1})

	result := f.handle(t, "task-1", validSubmission())
	if result.State != ingest.StateSuccess || result.Action != ingest.ActionCreated {
		t.Fatalf("expected created success, got %+v", result)
	}

	m, found, err := f.matches.GetByExternalID(t.Context(), "ext-100")
	if err != nil || !found {
		t.Fatalf("match not stored: found=%t err=%v", found, err)
	}
	if m.ID != result.MatchID {
		t.Fatalf("result match id %d != stored %d", result.MatchID, m.ID)
	}
	if m.Source != match.SourceScraper {
		t.Fatalf("ingested match must be marked scraper-sourced, got %s", m.Source)
	}
	if m.HomeScore == nil || *m.HomeScore != 2 || m.AwayScore == nil || *m.AwayScore != 1 {
		t.Fatalf("scores not applied: %+v", m)
	}
	if m.Status != match.StatusCompleted {
		t.Fatalf("status not applied: %s", m.Status)
	}
}

func TestIngestWorker_ResubmitIdenticalSkips(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 1})

	first := f.handle(t, "task-1", validSubmission())
	if first.Action != ingest.ActionCreated {
		t.Fatalf("first submission: got %s", first.Action)
	}

	// Populate the standings cache, then replay the identical payload. A
	// no-op update must leave the cache alone.
	tableKey := cache.Key("table", 1, 1, 1)
	f.store.Set(t.Context(), tableKey, "cached", time.Minute)

	second := f.handle(t, "task-2", validSubmission())
	if second.State != ingest.StateSuccess || second.Action != ingest.ActionSkipped {
		t.Fatalf("identical resubmit must be skipped, got %+v", second)
	}
	if second.MatchID != first.MatchID {
		t.Fatalf("resubmit resolved a different match: %d vs %d", second.MatchID, first.MatchID)
	}
	if _, found := f.store.Get(t.Context(), tableKey); !found {
		t.Fatalf("skipped action must not invalidate the standings cache")
	}
}

func TestIngestWorker_UpdatesByExternalID(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 1})

	first := f.handle(t, "task-1", validSubmission())

	tableKey := cache.Key("table", 1, 1, 1)
	f.store.Set(t.Context(), tableKey, "cached", time.Minute)

	sub := validSubmission()
	hs, as := 3, 1
	sub.HomeScore, sub.AwayScore = &hs, &as
	result := f.handle(t, "task-2", sub)
	if result.State != ingest.StateSuccess || result.Action != ingest.ActionUpdated {
		t.Fatalf("expected updated, got %+v", result)
	}
	if result.MatchID != first.MatchID {
		t.Fatalf("update created a new match: %d vs %d", result.MatchID, first.MatchID)
	}

	m, _, err := f.matches.GetByExternalID(t.Context(), "ext-100")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if m.HomeScore == nil || *m.HomeScore != 3 {
		t.Fatalf("score not updated: %+v", m)
	}
	if m.Version < 2 {
		t.Fatalf("update must bump the version, got %d", m.Version)
	}
	if _, found := f.store.Get(t.Context(), tableKey); found {
		t.Fatalf("update must invalidate the standings cache")
	}
}

func TestIngestWorker_NaturalKeyIdentity(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 1})

	sub := validSubmission()
	sub.ExternalMatchID = ""
	first := f.handle(t, "task-1", sub)
	if first.Action != ingest.ActionCreated {
		t.Fatalf("first submission: got %s", first.Action)
	}

	// Same fixture tuple, different score: identity falls back to the
	// natural key and takes the update path.
	hs, as := 4, 0
	sub.HomeScore, sub.AwayScore = &hs, &as
	second := f.handle(t, "task-2", sub)
	if second.Action != ingest.ActionUpdated {
		t.Fatalf("same fixture must update, got %s", second.Action)
	}
	if second.MatchID != first.MatchID {
		t.Fatalf("natural key resolved a different match: %d vs %d", second.MatchID, first.MatchID)
	}
}

func TestIngestWorker_LateExternalIDAttaches(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 1})

	sub := validSubmission()
	sub.ExternalMatchID = ""
	first := f.handle(t, "task-1", sub)

	sub.ExternalMatchID = "ext-late"
	second := f.handle(t, "task-2", sub)
	if second.Action != ingest.ActionUpdated || second.MatchID != first.MatchID {
		t.Fatalf("late external id must attach to the existing row, got %+v", second)
	}

	m, found, err := f.matches.GetByExternalID(t.Context(), "ext-late")
	if err != nil || !found {
		t.Fatalf("external id not attached: found=%t err=%v", found, err)
	}
	if m.ID != first.MatchID {
		t.Fatalf("external id attached to wrong row: %d", m.ID)
	}
}

func TestIngestWorker_ScoreLockPreservesScores(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 1})

	first := f.handle(t, "task-1", validSubmission())

	m, _, err := f.matches.GetByExternalID(t.Context(), "ext-100")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	m.ScoreLocked = true
	if _, err := f.matches.Update(t.Context(), m, m.Version); err != nil {
		t.Fatalf("lock score: %v", err)
	}

	// Scores change but the lock holds them; only the location differs, so
	// the update still lands without touching scores.
	sub := validSubmission()
	hs, as := 9, 9
	sub.HomeScore, sub.AwayScore = &hs, &as
	sub.Location = "Neutral Ground"
	result := f.handle(t, "task-2", sub)
	if result.Action != ingest.ActionUpdated || result.MatchID != first.MatchID {
		t.Fatalf("expected updated, got %+v", result)
	}

	after, _, err := f.matches.GetByExternalID(t.Context(), "ext-100")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if *after.HomeScore != 2 || *after.AwayScore != 1 {
		t.Fatalf("locked scores were overwritten: %d-%d", *after.HomeScore, *after.AwayScore)
	}
	if after.Location != "Neutral Ground" {
		t.Fatalf("non-score fields must still update: %q", after.Location)
	}

	// Score-only change against a locked row is a no-op.
	scoreOnly := validSubmission()
	scoreOnly.Location = "Neutral Ground"
	hs2, as2 := 7, 7
	scoreOnly.HomeScore, scoreOnly.AwayScore = &hs2, &as2
	third := f.handle(t, "task-3", scoreOnly)
	if third.Action != ingest.ActionSkipped {
		t.Fatalf("score-only change under lock must skip, got %s", third.Action)
	}
}

func TestIngestWorker_UnknownEntityFailsWithoutRetry(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 5})

	sub := validSubmission()
	sub.HomeTeam = "Phantom FC"
	result := f.handle(t, "task-1", sub)
	if result.State != ingest.StateFailure || result.ErrorCode != "UNKNOWN_ENTITY" {
		t.Fatalf("expected UNKNOWN_ENTITY failure, got %+v", result)
	}
	if got := f.sleeps.Load(); got != 0 {
		t.Fatalf("permanent failure must not back off, slept %d times", got)
	}

	unknownLeague := validSubmission()
	unknownLeague.League = "Ghost League"
	result = f.handle(t, "task-2", unknownLeague)
	if result.ErrorCode != "UNKNOWN_ENTITY" {
		t.Fatalf("unknown league: got %+v", result)
	}
}

func TestIngestWorker_InvalidShapeFails(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{MaxAttempts: 5})

	sub := validSubmission()
	sub.Status = "halftime"
	result := f.handle(t, "task-1", sub)
	if result.State != ingest.StateFailure || result.ErrorCode != "INVALID_INPUT" {
		t.Fatalf("expected INVALID_INPUT failure, got %+v", result)
	}
	if got := f.sleeps.Load(); got != 0 {
		t.Fatalf("invalid input must not retry, slept %d times", got)
	}

	sameTeams := validSubmission()
	sameTeams.AwayTeam = sameTeams.HomeTeam
	result = f.handle(t, "task-2", sameTeams)
	if result.ErrorCode != "INVALID_INPUT" {
		t.Fatalf("identical teams: got %+v", result)
	}
}

func TestIngestWorker_TransientFailureExhaustsRetries(t *testing.T) {
	t.Parallel()

	matches := memory.NewMatchRepository()
	matches.SeedTypes("league")
	store := cache.NewStore(time.Minute)
	results := taskresult.NewStore(store, time.Hour)

	var sleeps atomic.Int32
	worker := usecase.NewIngestWorker(
		matches, memory.NewTeamRepository(), flakyLeagueRepo{},
		memory.NewDivisionRepository(), memory.NewSeasonRepository(), memory.NewAgeGroupRepository(),
		results, store,
		usecase.IngestWorkerConfig{MaxAttempts: 3, BackoffBase: time.Millisecond},
		logging.NewNop(),
	).WithClock(nil, func(context.Context, time.Duration) { sleeps.Add(1) })

	job := ingest.Job{TaskID: "task-1", Producer: "scraper-bot", Submission: validSubmission()}
	if err := worker.Handle(t.Context(), job); err != nil {
		t.Fatalf("Handle must not surface errors to the broker: %v", err)
	}

	result, found, err := results.Get(t.Context(), "task-1")
	if err != nil || !found {
		t.Fatalf("task result missing: found=%t err=%v", found, err)
	}
	if result.State != ingest.StateFailure || result.ErrorCode != "WORKER_EXHAUSTED" {
		t.Fatalf("expected WORKER_EXHAUSTED, got %+v", result)
	}
	if got := sleeps.Load(); got != 2 {
		t.Fatalf("3 attempts back off twice, slept %d times", got)
	}
}

func TestIngestWorker_AutocreateProducerCreatesTeams(t *testing.T) {
	t.Parallel()
	f := newIngestFixture(t, usecase.IngestWorkerConfig{
		MaxAttempts:         1,
		AutocreateProducers: []string{"Trusted-Scraper"},
	})

	sub := validSubmission()
	sub.AwayTeam = "Brand New FC U12"

	// The default producer stays on the deny path.
	denied := f.handle(t, "task-1", sub)
	if denied.ErrorCode != "UNKNOWN_ENTITY" {
		t.Fatalf("unlisted producer must not create teams, got %+v", denied)
	}

	job := ingest.Job{TaskID: "task-2", Producer: "trusted-scraper", Submission: sub}
	if err := f.worker.Handle(t.Context(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	result, _, err := f.results.Get(t.Context(), "task-2")
	if err != nil {
		t.Fatalf("task result: %v", err)
	}
	if result.State != ingest.StateSuccess || result.Action != ingest.ActionCreated {
		t.Fatalf("allow-listed producer must succeed, got %+v", result)
	}

	created, found, err := f.teams.GetByNameAndLeague(t.Context(), "Brand New FC U12", 1)
	if err != nil || !found {
		t.Fatalf("team not auto-created: found=%t err=%v", found, err)
	}
	if created.Name != "Brand New FC U12" {
		t.Fatalf("unexpected team: %+v", created)
	}
}

// flakyLeagueRepo fails every lookup so the worker exercises its retry path.
type flakyLeagueRepo struct{}

var errStoreDown = errors.New("store unavailable")

func (flakyLeagueRepo) Create(context.Context, league.League) (league.League, error) {
	return league.League{}, errStoreDown
}

func (flakyLeagueRepo) GetByID(context.Context, int64) (league.League, bool, error) {
	return league.League{}, false, errStoreDown
}

func (flakyLeagueRepo) GetByName(context.Context, string) (league.League, bool, error) {
	return league.League{}, false, errStoreDown
}

func (flakyLeagueRepo) List(context.Context) ([]league.League, error) {
	return nil, errStoreDown
}
