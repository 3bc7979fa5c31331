package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/access"
	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

type CreateMatchInput struct {
	HomeTeamID  int64
	AwayTeamID  int64
	HomeScore   *int
	AwayScore   *int
	MatchDate   time.Time
	MatchTime   string
	Location    string
	SeasonID    int64
	AgeGroupID  int64
	MatchTypeID int64
	DivisionID  int64
	Status      string
}

// UpdateMatchInput carries only the fields to change; nil means keep. The
// expected version makes lost updates visible as conflicts.
type UpdateMatchInput struct {
	HomeScore       *int
	AwayScore       *int
	ClearScores     bool
	MatchDate       *time.Time
	MatchTime       *string
	Location        *string
	Status          *string
	ScoreLocked     *bool
	ExpectedVersion int64
}

// MatchService owns manual match CRUD: scope-checked writes, optimistic
// versioning and cache invalidation.
type MatchService struct {
	matches match.Repository
	teams   team.Repository
	authz   *Authorizer
	store   *cache.Store
	logger  *logging.Logger
	now     func() time.Time
}

func NewMatchService(
	matches match.Repository,
	teams team.Repository,
	authz *Authorizer,
	store *cache.Store,
	logger *logging.Logger,
) *MatchService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchService{
		matches: matches,
		teams:   teams,
		authz:   authz,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// matchResource builds the access resource for a match: both team ids plus
// the owning club of each side.
func (s *MatchService) matchResource(ctx context.Context, homeTeamID, awayTeamID int64) (access.Resource, error) {
	res := access.Resource{TeamIDs: []int64{homeTeamID, awayTeamID}}

	for _, teamID := range res.TeamIDs {
		t, exists, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			return access.Resource{}, fmt.Errorf("get team %d: %w", teamID, err)
		}
		if !exists {
			return access.Resource{}, fmt.Errorf("%w: team %d not found", ErrInvalidInput, teamID)
		}
		if t.ClubID != nil {
			res.ClubIDs = append(res.ClubIDs, *t.ClubID)
		}
	}
	return res, nil
}

func (s *MatchService) invalidate(ctx context.Context) {
	s.store.DeletePrefix(ctx, cache.Key("table"))
	s.store.DeletePrefix(ctx, cache.Key("match"))
}

func (s *MatchService) Create(ctx context.Context, principal user.Principal, input CreateMatchInput) (match.Match, error) {
	status, err := match.ParseStatus(input.Status)
	if err != nil {
		return match.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now().UTC()
	m := match.Match{
		HomeTeamID:  input.HomeTeamID,
		AwayTeamID:  input.AwayTeamID,
		HomeScore:   input.HomeScore,
		AwayScore:   input.AwayScore,
		MatchDate:   input.MatchDate,
		MatchTime:   input.MatchTime,
		Location:    input.Location,
		SeasonID:    input.SeasonID,
		AgeGroupID:  input.AgeGroupID,
		MatchTypeID: input.MatchTypeID,
		DivisionID:  input.DivisionID,
		Status:      status,
		Source:      match.SourceManual,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.Validate(); err != nil {
		return match.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	res, err := s.matchResource(ctx, m.HomeTeamID, m.AwayTeamID)
	if err != nil {
		return match.Match{}, err
	}
	if err := s.authz.Require(ctx, principal, access.MatchCreate, res); err != nil {
		return match.Match{}, err
	}

	created, err := s.matches.Create(ctx, m)
	if err != nil {
		return match.Match{}, fmt.Errorf("create match: %w", err)
	}

	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "match created", "match_id", created.ID, "by", principal.UserID)
	return created, nil
}

func (s *MatchService) Get(ctx context.Context, id int64) (match.Detail, error) {
	detail, exists, err := s.matches.GetDetail(ctx, id)
	if err != nil {
		return match.Detail{}, fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return match.Detail{}, fmt.Errorf("%w: match not found", ErrNotFound)
	}
	return detail, nil
}

func (s *MatchService) List(ctx context.Context, filter match.Filter) ([]match.Detail, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	details, err := s.matches.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return details, nil
}

// Update applies a manual edit. Manual writes take precedence over the
// ingestion pipeline: the row's source flips to manual.
func (s *MatchService) Update(ctx context.Context, principal user.Principal, id int64, input UpdateMatchInput) (match.Match, error) {
	existing, exists, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match not found", ErrNotFound)
	}

	res, err := s.matchResource(ctx, existing.HomeTeamID, existing.AwayTeamID)
	if err != nil {
		return match.Match{}, err
	}
	if err := s.authz.Require(ctx, principal, access.MatchUpdate, res); err != nil {
		return match.Match{}, err
	}

	next := existing
	if input.ClearScores {
		next.HomeScore, next.AwayScore = nil, nil
	}
	if input.HomeScore != nil {
		next.HomeScore = input.HomeScore
	}
	if input.AwayScore != nil {
		next.AwayScore = input.AwayScore
	}
	if input.MatchDate != nil {
		next.MatchDate = *input.MatchDate
	}
	if input.MatchTime != nil {
		next.MatchTime = *input.MatchTime
	}
	if input.Location != nil {
		next.Location = *input.Location
	}
	if input.Status != nil {
		status, err := match.ParseStatus(*input.Status)
		if err != nil {
			return match.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		next.Status = status
	}
	if input.ScoreLocked != nil {
		next.ScoreLocked = *input.ScoreLocked
	}
	next.Source = match.SourceManual
	next.UpdatedAt = s.now().UTC()

	if err := next.Validate(); err != nil {
		return match.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	expected := input.ExpectedVersion
	if expected <= 0 {
		expected = existing.Version
	}

	updated, err := s.matches.Update(ctx, next, expected)
	if err != nil {
		return match.Match{}, fmt.Errorf("update match: %w", err)
	}

	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "match updated", "match_id", id, "by", principal.UserID)
	return updated, nil
}

func (s *MatchService) Delete(ctx context.Context, principal user.Principal, id int64) error {
	existing, exists, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: match not found", ErrNotFound)
	}

	res, err := s.matchResource(ctx, existing.HomeTeamID, existing.AwayTeamID)
	if err != nil {
		return err
	}
	if err := s.authz.Require(ctx, principal, access.MatchDelete, res); err != nil {
		return err
	}

	if err := s.matches.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}

	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "match deleted", "match_id", id, "by", principal.UserID)
	return nil
}

func (s *MatchService) ListTypes(ctx context.Context) ([]match.Type, error) {
	types, err := s.matches.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list match types: %w", err)
	}
	return types, nil
}
