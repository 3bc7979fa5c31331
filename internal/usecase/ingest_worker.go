package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/agegroup"
	"github.com/matchtrack/matchtrack/internal/domain/division"
	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/domain/league"
	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/domain/season"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/tracectx"
)

type IngestWorkerConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	JobTimeout  time.Duration
	// AutocreateProducers lists producer usernames allowed to create teams
	// they submit for. Everyone else gets UNKNOWN_ENTITY on a missing team.
	AutocreateProducers []string
}

// IngestWorker consumes submissions from the queue: resolves names to rows,
// creates or updates the match idempotently and records the task result.
// Transient failures retry with exponential backoff; entity problems fail
// the task immediately.
type IngestWorker struct {
	matches    match.Repository
	teams      team.Repository
	leagues    league.Repository
	divisions  division.Repository
	seasons    season.Repository
	ageGroups  agegroup.Repository
	results    ingest.ResultStore
	store      *cache.Store
	cfg        IngestWorkerConfig
	autocreate map[string]struct{}
	logger     *logging.Logger
	now        func() time.Time
	sleep      func(context.Context, time.Duration)
}

func NewIngestWorker(
	matches match.Repository,
	teams team.Repository,
	leagues league.Repository,
	divisions division.Repository,
	seasons season.Repository,
	ageGroups agegroup.Repository,
	results ingest.ResultStore,
	store *cache.Store,
	cfg IngestWorkerConfig,
	logger *logging.Logger,
) *IngestWorker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	autocreate := make(map[string]struct{}, len(cfg.AutocreateProducers))
	for _, producer := range cfg.AutocreateProducers {
		producer = strings.ToLower(strings.TrimSpace(producer))
		if producer != "" {
			autocreate[producer] = struct{}{}
		}
	}

	return &IngestWorker{
		matches:    matches,
		teams:      teams,
		leagues:    leagues,
		divisions:  divisions,
		seasons:    seasons,
		ageGroups:  ageGroups,
		results:    results,
		store:      store,
		cfg:        cfg,
		autocreate: autocreate,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// WithClock replaces the time and sleep sources for tests.
func (w *IngestWorker) WithClock(now func() time.Time, sleep func(context.Context, time.Duration)) *IngestWorker {
	if now != nil {
		w.now = now
	}
	if sleep != nil {
		w.sleep = sleep
	}
	return w
}

// Handle runs one job to a terminal result. It always returns nil to the
// broker: retries are internal, and a permanent failure is a processed
// message, not a redelivery candidate.
func (w *IngestWorker) Handle(ctx context.Context, job ingest.Job) error {
	ctx = tracectx.With(ctx, job.Trace)
	w.setResult(ctx, job, ingest.TaskResult{State: ingest.StateStarted})

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
		matchID, action, err := w.process(jobCtx, job)
		cancel()

		if err == nil {
			w.setResult(ctx, job, ingest.TaskResult{
				State:   ingest.StateSuccess,
				MatchID: matchID,
				Action:  action,
			})
			w.logger.InfoContext(ctx, "submission processed",
				"task_id", job.TaskID, "match_id", matchID, "action", action, "attempt", attempt)
			return nil
		}

		if code, permanent := permanentFailureCode(err); permanent {
			w.setResult(ctx, job, ingest.TaskResult{
				State:     ingest.StateFailure,
				ErrorCode: code,
				Error:     err.Error(),
			})
			w.logger.WarnContext(ctx, "submission rejected",
				"task_id", job.TaskID, "error_code", code, "error", err)
			return nil
		}

		lastErr = err
		w.logger.WarnContext(ctx, "submission attempt failed",
			"task_id", job.TaskID, "attempt", attempt, "error", err)
		if attempt < w.cfg.MaxAttempts {
			w.sleep(ctx, w.cfg.BackoffBase<<(attempt-1))
		}
	}

	w.setResult(ctx, job, ingest.TaskResult{
		State:     ingest.StateFailure,
		ErrorCode: "WORKER_EXHAUSTED",
		Error:     fmt.Sprintf("gave up after %d attempts: %v", w.cfg.MaxAttempts, lastErr),
	})
	w.logger.ErrorContext(ctx, "submission retries exhausted",
		"task_id", job.TaskID, "attempts", w.cfg.MaxAttempts, "error", lastErr)
	return nil
}

func permanentFailureCode(err error) (string, bool) {
	switch {
	case errors.Is(err, ingest.ErrUnknownEntity):
		return "UNKNOWN_ENTITY", true
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvariant):
		return "INVALID_INPUT", true
	default:
		return "", false
	}
}

func (w *IngestWorker) setResult(ctx context.Context, job ingest.Job, result ingest.TaskResult) {
	result.TaskID = job.TaskID
	result.Trace = job.Trace
	result.UpdatedAt = w.now().UTC()
	if err := w.results.Set(ctx, result); err != nil {
		w.logger.ErrorContext(ctx, "store task result", "task_id", job.TaskID, "error", err)
	}
}

type resolvedRefs struct {
	league    league.League
	division  division.Division
	season    season.Season
	ageGroup  agegroup.AgeGroup
	matchType match.Type
	homeTeam  team.Team
	awayTeam  team.Team
}

func (w *IngestWorker) process(ctx context.Context, job ingest.Job) (int64, ingest.ResultAction, error) {
	sub := job.Submission
	if err := sub.ValidateShape(); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	refs, err := w.resolve(ctx, job)
	if err != nil {
		return 0, "", err
	}

	matchDate, err := sub.ParsedDate()
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	status, err := match.ParseStatus(sub.Status)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	incoming := match.Match{
		HomeTeamID:      refs.homeTeam.ID,
		AwayTeamID:      refs.awayTeam.ID,
		HomeScore:       sub.HomeScore,
		AwayScore:       sub.AwayScore,
		MatchDate:       matchDate,
		MatchTime:       strings.TrimSpace(sub.MatchTime),
		Location:        strings.TrimSpace(sub.Location),
		SeasonID:        refs.season.ID,
		AgeGroupID:      refs.ageGroup.ID,
		MatchTypeID:     refs.matchType.ID,
		DivisionID:      refs.division.ID,
		Status:          status,
		ExternalMatchID: strings.TrimSpace(sub.ExternalMatchID),
		Source:          match.SourceScraper,
	}
	if err := incoming.Validate(); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	matchID, action, err := w.upsert(ctx, incoming)
	if err != nil {
		return 0, "", err
	}

	if action != ingest.ActionSkipped {
		w.store.DeletePrefix(ctx, cache.Key("table"))
		w.store.DeletePrefix(ctx, cache.Key("match"))
	}
	return matchID, action, nil
}

func (w *IngestWorker) resolve(ctx context.Context, job ingest.Job) (resolvedRefs, error) {
	sub := job.Submission
	var refs resolvedRefs

	lg, exists, err := w.leagues.GetByName(ctx, strings.TrimSpace(sub.League))
	if err != nil {
		return refs, fmt.Errorf("resolve league: %w", err)
	}
	if !exists {
		return refs, fmt.Errorf("%w: league %q", ingest.ErrUnknownEntity, sub.League)
	}
	refs.league = lg

	ssn, exists, err := w.seasons.GetByName(ctx, strings.TrimSpace(sub.Season))
	if err != nil {
		return refs, fmt.Errorf("resolve season: %w", err)
	}
	if !exists {
		return refs, fmt.Errorf("%w: season %q", ingest.ErrUnknownEntity, sub.Season)
	}
	refs.season = ssn

	ag, exists, err := w.ageGroups.GetByName(ctx, strings.TrimSpace(sub.AgeGroup))
	if err != nil {
		return refs, fmt.Errorf("resolve age group: %w", err)
	}
	if !exists {
		return refs, fmt.Errorf("%w: age group %q", ingest.ErrUnknownEntity, sub.AgeGroup)
	}
	refs.ageGroup = ag

	div, exists, err := w.divisions.GetByName(ctx, lg.ID, strings.TrimSpace(sub.Division))
	if err != nil {
		return refs, fmt.Errorf("resolve division: %w", err)
	}
	if !exists {
		return refs, fmt.Errorf("%w: division %q in league %q", ingest.ErrUnknownEntity, sub.Division, sub.League)
	}
	refs.division = div

	mt, exists, err := w.matches.GetTypeByName(ctx, strings.TrimSpace(sub.MatchType))
	if err != nil {
		return refs, fmt.Errorf("resolve match type: %w", err)
	}
	if !exists {
		return refs, fmt.Errorf("%w: match type %q", ingest.ErrUnknownEntity, sub.MatchType)
	}
	refs.matchType = mt

	refs.homeTeam, err = w.resolveTeam(ctx, job, strings.TrimSpace(sub.HomeTeam), lg.ID)
	if err != nil {
		return refs, err
	}
	refs.awayTeam, err = w.resolveTeam(ctx, job, strings.TrimSpace(sub.AwayTeam), lg.ID)
	if err != nil {
		return refs, err
	}

	return refs, nil
}

// resolveTeam looks a team up by (name, league). Allow-listed producers may
// auto-create missing teams; a create race falls back to re-reading.
func (w *IngestWorker) resolveTeam(ctx context.Context, job ingest.Job, name string, leagueID int64) (team.Team, error) {
	t, exists, err := w.teams.GetByNameAndLeague(ctx, name, leagueID)
	if err != nil {
		return team.Team{}, fmt.Errorf("resolve team: %w", err)
	}
	if exists {
		return t, nil
	}

	if _, allowed := w.autocreate[strings.ToLower(job.Producer)]; !allowed {
		return team.Team{}, fmt.Errorf("%w: team %q in league %d", ingest.ErrUnknownEntity, name, leagueID)
	}

	now := w.now().UTC()
	created, err := w.teams.Create(ctx, team.Team{
		Name:      name,
		LeagueID:  leagueID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			if t, exists, err := w.teams.GetByNameAndLeague(ctx, name, leagueID); err == nil && exists {
				return t, nil
			}
		}
		return team.Team{}, fmt.Errorf("auto-create team: %w", err)
	}

	w.logger.InfoContext(ctx, "team auto-created by producer",
		"team_id", created.ID, "name", name, "producer", job.Producer)
	return created, nil
}

// upsert creates or updates the match row. The external id wins as identity;
// the natural key tuple is the fallback. A version conflict surfaces as a
// retryable error; the next attempt re-reads.
func (w *IngestWorker) upsert(ctx context.Context, incoming match.Match) (int64, ingest.ResultAction, error) {
	var existing match.Match
	var found bool
	var err error

	if incoming.ExternalMatchID != "" {
		existing, found, err = w.matches.GetByExternalID(ctx, incoming.ExternalMatchID)
	}
	if err == nil && !found {
		// Either no external id was given or it is new to us. The fixture
		// tuple still identifies the match, so a late external id attaches
		// to the existing row instead of inserting a duplicate.
		existing, found, err = w.matches.GetByKey(ctx, incoming.Key())
	}
	if err != nil {
		return 0, "", fmt.Errorf("look up match: %w", err)
	}

	now := w.now().UTC()
	if !found {
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		created, err := w.matches.Create(ctx, incoming)
		if err != nil {
			// A duplicate on insert means another worker won the race; the
			// retry re-reads and takes the update path.
			return 0, "", fmt.Errorf("create match: %w", err)
		}
		return created.ID, ingest.ActionCreated, nil
	}

	next := existing
	changed := false

	setScore := func(dst **int, src *int) {
		if src == nil {
			return
		}
		if *dst == nil || **dst != *src {
			value := *src
			*dst = &value
			changed = true
		}
	}
	if !existing.ScoreLocked {
		setScore(&next.HomeScore, incoming.HomeScore)
		setScore(&next.AwayScore, incoming.AwayScore)
	}

	if next.Status != incoming.Status {
		next.Status = incoming.Status
		changed = true
	}
	if incoming.MatchTime != "" && next.MatchTime != incoming.MatchTime {
		next.MatchTime = incoming.MatchTime
		changed = true
	}
	if incoming.Location != "" && next.Location != incoming.Location {
		next.Location = incoming.Location
		changed = true
	}
	if incoming.ExternalMatchID != "" && next.ExternalMatchID == "" {
		next.ExternalMatchID = incoming.ExternalMatchID
		changed = true
	}

	if !changed {
		return existing.ID, ingest.ActionSkipped, nil
	}

	next.Source = match.SourceScraper
	next.UpdatedAt = now
	updated, err := w.matches.Update(ctx, next, existing.Version)
	if err != nil {
		return 0, "", fmt.Errorf("update match: %w", err)
	}
	return updated.ID, ingest.ActionUpdated, nil
}
