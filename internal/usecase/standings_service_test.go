package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/infrastructure/repository/memory"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

// countingMatchRepo wraps the in-memory repository to observe how often the
// standings path actually hits storage.
type countingMatchRepo struct {
	*memory.MatchRepository
	listCompletedCalls atomic.Int32
}

func (r *countingMatchRepo) ListCompleted(ctx context.Context, scope match.Scope) ([]match.Match, error) {
	r.listCompletedCalls.Add(1)
	return r.MatchRepository.ListCompleted(ctx, scope)
}

type standingsFixture struct {
	service *usecase.StandingsService
	repo    *countingMatchRepo
	teams   *memory.TeamRepository
	store   *cache.Store
	scope   match.Scope
}

func newStandingsFixture(t *testing.T) *standingsFixture {
	t.Helper()
	ctx := t.Context()

	teams := memory.NewTeamRepository()
	ids := make(map[string]int64, 3)
	for _, name := range []string{"Harbor United", "North End", "Riverside"} {
		created, err := teams.Create(ctx, team.Team{Name: name, LeagueID: 1}, nil)
		if err != nil {
			t.Fatalf("seed team %s: %v", name, err)
		}
		ids[name] = created.ID
	}

	repo := &countingMatchRepo{MatchRepository: memory.NewMatchRepository()}
	repo.SeedTypes("league")

	completed := func(home, away string, hs, as int) match.Match {
		h, a := hs, as
		return match.Match{
			HomeTeamID: ids[home],
			AwayTeamID: ids[away],
			HomeScore:  &h,
			AwayScore:  &a,
			MatchDate:  time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC),
			SeasonID:   1, AgeGroupID: 1, MatchTypeID: 1, DivisionID: 1,
			Status: match.StatusCompleted,
			Source: match.SourceManual,
		}
	}
	rows := []match.Match{
		completed("Harbor United", "North End", 3, 1),
		completed("North End", "Riverside", 2, 2),
		completed("Riverside", "Harbor United", 0, 1),
	}
	// One scheduled fixture that must never count.
	pending := completed("Harbor United", "Riverside", 0, 0)
	pending.HomeScore, pending.AwayScore = nil, nil
	pending.Status = match.StatusScheduled
	pending.MatchDate = time.Date(2025, 9, 13, 0, 0, 0, 0, time.UTC)
	rows = append(rows, pending)

	for _, m := range rows {
		if _, err := repo.Create(ctx, m); err != nil {
			t.Fatalf("seed match: %v", err)
		}
	}

	store := cache.NewStore(time.Minute)
	service := usecase.NewStandingsService(repo, teams, store, time.Minute, logging.NewNop())

	return &standingsFixture{
		service: service,
		repo:    repo,
		teams:   teams,
		store:   store,
		scope:   match.Scope{LeagueID: 1, DivisionID: 1, SeasonID: 1, AgeGroupID: 1},
	}
}

func TestStandingsService_ComputesRankedTable(t *testing.T) {
	t.Parallel()
	f := newStandingsFixture(t)

	rows, err := f.service.GetTable(t.Context(), f.scope)
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].TeamName != "Harbor United" || rows[0].Points != 6 || rows[0].Played != 2 {
		t.Fatalf("leader wrong: %+v", rows[0])
	}
	// North End and Riverside both hold one point; goal difference decides.
	if rows[1].TeamName != "Riverside" || rows[2].TeamName != "North End" {
		t.Fatalf("tiebreak wrong: %+v", rows)
	}
}

func TestStandingsService_ReadThroughCache(t *testing.T) {
	t.Parallel()
	f := newStandingsFixture(t)

	first, err := f.service.GetTable(t.Context(), f.scope)
	if err != nil {
		t.Fatalf("first GetTable: %v", err)
	}
	second, err := f.service.GetTable(t.Context(), f.scope)
	if err != nil {
		t.Fatalf("second GetTable: %v", err)
	}

	if got := f.repo.listCompletedCalls.Load(); got != 1 {
		t.Fatalf("second read must come from cache, storage hit %d times", got)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Fatalf("cached table diverges:\nfirst  %+v\nsecond %+v", first, second)
	}

	// Invalidation brings the next read back to storage.
	f.store.DeletePrefix(t.Context(), cache.Key("table"))
	if _, err := f.service.GetTable(t.Context(), f.scope); err != nil {
		t.Fatalf("third GetTable: %v", err)
	}
	if got := f.repo.listCompletedCalls.Load(); got != 2 {
		t.Fatalf("invalidated read must recompute, storage hit %d times", got)
	}
}

// Disabling the cache wires a nil store; every read must then reach storage.
func TestStandingsService_NilStoreBypassesCache(t *testing.T) {
	t.Parallel()
	f := newStandingsFixture(t)

	service := usecase.NewStandingsService(f.repo, f.teams, nil, time.Minute, logging.NewNop())
	for i := 0; i < 2; i++ {
		if _, err := service.GetTable(t.Context(), f.scope); err != nil {
			t.Fatalf("GetTable %d: %v", i+1, err)
		}
	}
	if got := f.repo.listCompletedCalls.Load(); got != 2 {
		t.Fatalf("bypassed reads must hit storage every time, got %d hits", got)
	}
}

func TestStandingsService_ScopesDoNotShareCache(t *testing.T) {
	t.Parallel()
	f := newStandingsFixture(t)

	if _, err := f.service.GetTable(t.Context(), f.scope); err != nil {
		t.Fatalf("GetTable: %v", err)
	}

	other := f.scope
	other.DivisionID = 2
	rows, err := f.service.GetTable(t.Context(), other)
	if err != nil {
		t.Fatalf("GetTable other scope: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("empty scope must yield an empty table, got %+v", rows)
	}
	if got := f.repo.listCompletedCalls.Load(); got != 2 {
		t.Fatalf("distinct scopes must compute separately, storage hit %d times", got)
	}
}

func TestStandingsService_RequiresFullScope(t *testing.T) {
	t.Parallel()
	f := newStandingsFixture(t)

	for _, scope := range []match.Scope{
		{DivisionID: 1, SeasonID: 1, AgeGroupID: 1},
		{LeagueID: 1, SeasonID: 1, AgeGroupID: 1},
		{LeagueID: 1, DivisionID: 1, AgeGroupID: 1},
		{LeagueID: 1, DivisionID: 1, SeasonID: 1},
	} {
		if _, err := f.service.GetTable(t.Context(), scope); !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("scope %+v: expected ErrInvalidInput, got %v", scope, err)
		}
	}
}
