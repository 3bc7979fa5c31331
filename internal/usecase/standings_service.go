package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

// StandingsService serves league tables: completed matches folded into
// ranked rows, cached read-through per scope.
type StandingsService struct {
	matches match.Repository
	teams   team.Repository
	store   *cache.Store
	ttl     time.Duration
	logger  *logging.Logger
}

func NewStandingsService(
	matches match.Repository,
	teams team.Repository,
	store *cache.Store,
	ttl time.Duration,
	logger *logging.Logger,
) *StandingsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StandingsService{
		matches: matches,
		teams:   teams,
		store:   store,
		ttl:     ttl,
		logger:  logger,
	}
}

func (s *StandingsService) GetTable(ctx context.Context, scope match.Scope) ([]match.StandingRow, error) {
	if scope.LeagueID <= 0 || scope.DivisionID <= 0 || scope.SeasonID <= 0 || scope.AgeGroupID <= 0 {
		return nil, fmt.Errorf("%w: league, division, season and age group are required", ErrInvalidInput)
	}

	key := cache.Key("table", scope.LeagueID, scope.DivisionID, scope.SeasonID, scope.AgeGroupID)
	value, err := s.store.GetOrLoad(ctx, key, s.ttl, func(ctx context.Context) (any, error) {
		return s.compute(ctx, scope)
	})
	if err != nil {
		return nil, err
	}

	rows, ok := value.([]match.StandingRow)
	if !ok {
		// A foreign value under our key; recompute rather than serve garbage.
		s.store.Delete(ctx, key)
		return s.compute(ctx, scope)
	}
	return rows, nil
}

func (s *StandingsService) compute(ctx context.Context, scope match.Scope) ([]match.StandingRow, error) {
	completed, err := s.matches.ListCompleted(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list completed matches: %w", err)
	}

	leagueID := scope.LeagueID
	leagueTeams, err := s.teams.List(ctx, team.ListFilter{LeagueID: &leagueID, Limit: 500})
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	names := make(map[int64]string, len(leagueTeams))
	for _, t := range leagueTeams {
		names[t.ID] = t.Name
	}

	return match.ComputeStandings(completed, names), nil
}
