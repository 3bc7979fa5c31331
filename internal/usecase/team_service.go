package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/access"
	"github.com/matchtrack/matchtrack/internal/domain/agegroup"
	"github.com/matchtrack/matchtrack/internal/domain/league"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

type CreateTeamInput struct {
	Name        string
	City        string
	ClubID      *int64
	LeagueID    int64
	AcademyTeam bool
	AgeGroupIDs []int64
}

type UpdateTeamInput struct {
	Name        *string
	City        *string
	AcademyTeam *bool
}

// TeamService owns team CRUD. Teams live inside a league and optionally a
// club; club managers operate only inside their club.
type TeamService struct {
	teams     team.Repository
	leagues   league.Repository
	ageGroups agegroup.Repository
	authz     *Authorizer
	store     *cache.Store
	logger    *logging.Logger
	now       func() time.Time
}

func NewTeamService(
	teams team.Repository,
	leagues league.Repository,
	ageGroups agegroup.Repository,
	authz *Authorizer,
	store *cache.Store,
	logger *logging.Logger,
) *TeamService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TeamService{
		teams:     teams,
		leagues:   leagues,
		ageGroups: ageGroups,
		authz:     authz,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

func teamResource(t team.Team) access.Resource {
	res := access.Resource{TeamIDs: []int64{t.ID}}
	if t.ClubID != nil {
		res.ClubIDs = []int64{*t.ClubID}
	}
	return res
}

func (s *TeamService) Create(ctx context.Context, principal user.Principal, input CreateTeamInput) (team.Team, error) {
	now := s.now().UTC()
	t := team.Team{
		Name:        input.Name,
		City:        input.City,
		ClubID:      input.ClubID,
		LeagueID:    input.LeagueID,
		AcademyTeam: input.AcademyTeam,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return team.Team{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	res := access.Resource{}
	if input.ClubID != nil {
		res.ClubIDs = []int64{*input.ClubID}
	}
	if err := s.authz.Require(ctx, principal, access.TeamCreate, res); err != nil {
		return team.Team{}, err
	}

	if _, exists, err := s.leagues.GetByID(ctx, input.LeagueID); err != nil {
		return team.Team{}, fmt.Errorf("get league: %w", err)
	} else if !exists {
		return team.Team{}, fmt.Errorf("%w: league %d not found", ErrInvalidInput, input.LeagueID)
	}

	for _, ageGroupID := range input.AgeGroupIDs {
		if _, exists, err := s.ageGroups.GetByID(ctx, ageGroupID); err != nil {
			return team.Team{}, fmt.Errorf("get age group: %w", err)
		} else if !exists {
			return team.Team{}, fmt.Errorf("%w: age group %d not found", ErrInvalidInput, ageGroupID)
		}
	}

	created, err := s.teams.Create(ctx, t, input.AgeGroupIDs)
	if err != nil {
		return team.Team{}, fmt.Errorf("create team: %w", err)
	}

	s.store.DeletePrefix(ctx, cache.Key("team"))
	s.logger.InfoContext(ctx, "team created", "team_id", created.ID, "by", principal.UserID)
	return created, nil
}

func (s *TeamService) Get(ctx context.Context, id int64) (team.Detail, error) {
	detail, exists, err := s.teams.GetDetail(ctx, id)
	if err != nil {
		return team.Detail{}, fmt.Errorf("get team: %w", err)
	}
	if !exists {
		return team.Detail{}, fmt.Errorf("%w: team not found", ErrNotFound)
	}
	return detail, nil
}

func (s *TeamService) List(ctx context.Context, filter team.ListFilter) ([]team.Team, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	teams, err := s.teams.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (s *TeamService) Update(ctx context.Context, principal user.Principal, id int64, input UpdateTeamInput) (team.Team, error) {
	existing, exists, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return team.Team{}, fmt.Errorf("get team: %w", err)
	}
	if !exists {
		return team.Team{}, fmt.Errorf("%w: team not found", ErrNotFound)
	}

	if err := s.authz.Require(ctx, principal, access.TeamUpdate, teamResource(existing)); err != nil {
		return team.Team{}, err
	}

	if input.Name != nil {
		existing.Name = *input.Name
	}
	if input.City != nil {
		existing.City = *input.City
	}
	if input.AcademyTeam != nil {
		existing.AcademyTeam = *input.AcademyTeam
	}
	existing.UpdatedAt = s.now().UTC()

	if err := existing.Validate(); err != nil {
		return team.Team{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated, err := s.teams.Update(ctx, existing)
	if err != nil {
		return team.Team{}, fmt.Errorf("update team: %w", err)
	}

	s.store.DeletePrefix(ctx, cache.Key("team"))
	s.logger.InfoContext(ctx, "team updated", "team_id", id, "by", principal.UserID)
	return updated, nil
}

func (s *TeamService) Delete(ctx context.Context, principal user.Principal, id int64) error {
	existing, exists, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: team not found", ErrNotFound)
	}

	if err := s.authz.Require(ctx, principal, access.TeamDelete, teamResource(existing)); err != nil {
		return err
	}

	if err := s.teams.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	s.store.DeletePrefix(ctx, cache.Key("team"))
	s.store.DeletePrefix(ctx, cache.Key("table"))
	s.logger.InfoContext(ctx, "team deleted", "team_id", id, "by", principal.UserID)
	return nil
}
