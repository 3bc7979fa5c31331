package usecase_test

import (
	"errors"
	"testing"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/infrastructure/repository/memory"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type matchFixture struct {
	service *usecase.MatchService
	matches *memory.MatchRepository
	store   *cache.Store

	admin   user.Principal
	manager user.Principal
	fan     user.Principal

	homeID int64
	awayID int64
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()
	ctx := t.Context()

	clubID := int64(1)
	teams := memory.NewTeamRepository()
	home, err := teams.Create(ctx, team.Team{Name: "Harbor United U12", LeagueID: 1, ClubID: &clubID}, nil)
	if err != nil {
		t.Fatalf("seed home team: %v", err)
	}
	away, err := teams.Create(ctx, team.Team{Name: "North End U12", LeagueID: 1, ClubID: &clubID}, nil)
	if err != nil {
		t.Fatalf("seed away team: %v", err)
	}

	users := memory.NewUserRepository()
	seed := func(id string, role user.Role) user.Principal {
		t.Helper()
		if _, err := users.Create(ctx, user.Profile{ID: id, Username: id, Role: role}); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
		return user.Principal{UserID: id, Username: id, Role: role}
	}
	admin := seed("idp-admin", user.RoleAdmin)
	manager := seed("idp-mgr", user.RoleTeamManager)
	fan := seed("idp-fan", user.RoleTeamFan)
	if err := users.AssignManagerTeam(ctx, manager.UserID, home.ID); err != nil {
		t.Fatalf("assign manager: %v", err)
	}

	matches := memory.NewMatchRepository()
	matches.SeedTypes("league", "friendly")
	matches.TeamNames[home.ID] = home.Name
	matches.TeamNames[away.ID] = away.Name

	store := cache.NewStore(time.Minute)
	authz := usecase.NewAuthorizer(users, logging.NewNop())
	service := usecase.NewMatchService(matches, teams, authz, store, logging.NewNop())

	return &matchFixture{
		service: service,
		matches: matches,
		store:   store,
		admin:   admin,
		manager: manager,
		fan:     fan,
		homeID:  home.ID,
		awayID:  away.ID,
	}
}

func (f *matchFixture) createInput() usecase.CreateMatchInput {
	return usecase.CreateMatchInput{
		HomeTeamID:  f.homeID,
		AwayTeamID:  f.awayID,
		MatchDate:   time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC),
		MatchTime:   "10:00",
		Location:    "Harbor Park",
		SeasonID:    1,
		AgeGroupID:  1,
		MatchTypeID: 1,
		DivisionID:  1,
		Status:      "scheduled",
	}
}

func TestMatchService_Create(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	tableKey := cache.Key("table", 1, 1, 1, 1)
	f.store.Set(t.Context(), tableKey, "stale", time.Minute)

	created, err := f.service.Create(t.Context(), f.admin, f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || created.Version != 1 {
		t.Fatalf("unexpected row identity: %+v", created)
	}
	if created.Source != match.SourceManual {
		t.Fatalf("manual create must be manual-sourced, got %s", created.Source)
	}
	if _, found := f.store.Get(t.Context(), tableKey); found {
		t.Fatalf("create must invalidate cached tables")
	}

	detail, err := f.service.Get(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.HomeTeamName != "Harbor United U12" || detail.MatchTypeName != "league" {
		t.Fatalf("detail projection wrong: %+v", detail)
	}
}

func TestMatchService_CreateRejectsBadInput(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	badStatus := f.createInput()
	badStatus.Status = "halftime"
	if _, err := f.service.Create(t.Context(), f.admin, badStatus); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("bad status: expected ErrInvalidInput, got %v", err)
	}

	sameTeams := f.createInput()
	sameTeams.AwayTeamID = sameTeams.HomeTeamID
	if _, err := f.service.Create(t.Context(), f.admin, sameTeams); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("same teams: expected ErrInvalidInput, got %v", err)
	}

	ghostTeam := f.createInput()
	ghostTeam.AwayTeamID = 999
	if _, err := f.service.Create(t.Context(), f.admin, ghostTeam); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("unknown team: expected ErrInvalidInput, got %v", err)
	}

	if _, err := f.service.Create(t.Context(), f.fan, f.createInput()); !errors.Is(err, usecase.ErrForbidden) {
		t.Fatalf("fan create: expected ErrForbidden, got %v", err)
	}
}

func TestMatchService_UpdateScopes(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	created, err := f.service.Create(t.Context(), f.admin, f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The manager is assigned to the home team, so the match is in scope.
	loc := "Rescheduled Ground"
	updated, err := f.service.Update(t.Context(), f.manager, created.ID, usecase.UpdateMatchInput{Location: &loc})
	if err != nil {
		t.Fatalf("manager update: %v", err)
	}
	if updated.Location != loc || updated.Version != 2 {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := f.service.Update(t.Context(), f.fan, created.ID, usecase.UpdateMatchInput{Location: &loc}); !errors.Is(err, usecase.ErrForbidden) {
		t.Fatalf("fan update: expected ErrForbidden, got %v", err)
	}
	if _, err := f.service.Update(t.Context(), f.admin, 999, usecase.UpdateMatchInput{Location: &loc}); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("missing match: expected ErrNotFound, got %v", err)
	}
}

func TestMatchService_UpdateVersionConflict(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	created, err := f.service.Create(t.Context(), f.admin, f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	hs, as := 2, 1
	status := "completed"
	first, err := f.service.Update(t.Context(), f.admin, created.ID, usecase.UpdateMatchInput{
		HomeScore: &hs, AwayScore: &as, Status: &status, ExpectedVersion: created.Version,
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Version != created.Version+1 {
		t.Fatalf("version not bumped: %d", first.Version)
	}

	// A writer holding the old version loses.
	stale := 3
	_, err = f.service.Update(t.Context(), f.admin, created.ID, usecase.UpdateMatchInput{
		HomeScore: &stale, ExpectedVersion: created.Version,
	})
	if !errors.Is(err, usecase.ErrConflict) {
		t.Fatalf("stale write: expected ErrConflict, got %v", err)
	}

	m, err := f.service.Get(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *m.HomeScore != 2 || *m.AwayScore != 1 {
		t.Fatalf("stale write leaked: %+v", m.Match)
	}
}

func TestMatchService_ManualEditWinsOverIngestion(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	created, err := f.service.Create(t.Context(), f.admin, f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Simulate a scraper write landing first.
	scraped, err := f.service.Get(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	row := scraped.Match
	row.Source = match.SourceScraper
	if _, err := f.matches.Update(t.Context(), row, row.Version); err != nil {
		t.Fatalf("seed scraper source: %v", err)
	}

	hs, as := 1, 1
	locked := true
	status := "completed"
	updated, err := f.service.Update(t.Context(), f.admin, created.ID, usecase.UpdateMatchInput{
		HomeScore: &hs, AwayScore: &as, Status: &status, ScoreLocked: &locked,
	})
	if err != nil {
		t.Fatalf("manual update: %v", err)
	}
	if updated.Source != match.SourceManual {
		t.Fatalf("manual edit must flip the source back to manual, got %s", updated.Source)
	}
	if !updated.ScoreLocked {
		t.Fatalf("score lock not applied")
	}
}

func TestMatchService_ClearScores(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	input := f.createInput()
	hs, as := 2, 0
	input.HomeScore, input.AwayScore = &hs, &as
	input.Status = "completed"
	created, err := f.service.Create(t.Context(), f.admin, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status := "postponed"
	updated, err := f.service.Update(t.Context(), f.admin, created.ID, usecase.UpdateMatchInput{
		ClearScores: true, Status: &status,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.HomeScore != nil || updated.AwayScore != nil {
		t.Fatalf("scores not cleared: %+v", updated)
	}
	if updated.Status != match.StatusPostponed {
		t.Fatalf("status not applied: %s", updated.Status)
	}
}

func TestMatchService_Delete(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	created, err := f.service.Create(t.Context(), f.admin, f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.service.Delete(t.Context(), f.fan, created.ID); !errors.Is(err, usecase.ErrForbidden) {
		t.Fatalf("fan delete: expected ErrForbidden, got %v", err)
	}
	if err := f.service.Delete(t.Context(), f.admin, created.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := f.service.Get(t.Context(), created.ID); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("deleted match still readable: %v", err)
	}
	if err := f.service.Delete(t.Context(), f.admin, created.ID); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestMatchService_ListTypes(t *testing.T) {
	t.Parallel()
	f := newMatchFixture(t)

	types, err := f.service.ListTypes(t.Context())
	if err != nil {
		t.Fatalf("ListTypes: %v", err)
	}
	if len(types) != 2 || types[0].Name != "league" || types[1].Name != "friendly" {
		t.Fatalf("unexpected types: %+v", types)
	}
}
