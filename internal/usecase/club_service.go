package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/access"
	"github.com/matchtrack/matchtrack/internal/domain/club"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/cache"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

type CreateClubInput struct {
	Name        string
	City        string
	Website     string
	Description string
	ProAcademy  bool
}

type UpdateClubInput struct {
	Name        *string
	City        *string
	Website     *string
	Description *string
	ProAcademy  *bool
}

// ClubService owns club CRUD. Creation and deletion are admin actions;
// updates are open to the club's own manager.
type ClubService struct {
	clubs  club.Repository
	authz  *Authorizer
	store  *cache.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewClubService(clubs club.Repository, authz *Authorizer, store *cache.Store, logger *logging.Logger) *ClubService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ClubService{
		clubs:  clubs,
		authz:  authz,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *ClubService) Create(ctx context.Context, principal user.Principal, input CreateClubInput) (club.Club, error) {
	if err := s.authz.Require(ctx, principal, access.ClubCreate, access.Resource{}); err != nil {
		return club.Club{}, err
	}

	now := s.now().UTC()
	c := club.Club{
		Name:        input.Name,
		City:        input.City,
		Website:     input.Website,
		Description: input.Description,
		ProAcademy:  input.ProAcademy,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.Validate(); err != nil {
		return club.Club{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	created, err := s.clubs.Create(ctx, c)
	if err != nil {
		return club.Club{}, fmt.Errorf("create club: %w", err)
	}

	s.store.DeletePrefix(ctx, cache.Key("club"))
	s.logger.InfoContext(ctx, "club created", "club_id", created.ID, "by", principal.UserID)
	return created, nil
}

func (s *ClubService) Get(ctx context.Context, id int64) (club.Club, error) {
	c, exists, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		return club.Club{}, fmt.Errorf("get club: %w", err)
	}
	if !exists {
		return club.Club{}, fmt.Errorf("%w: club not found", ErrNotFound)
	}
	return c, nil
}

func (s *ClubService) List(ctx context.Context, filter club.ListFilter) ([]club.Club, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	clubs, err := s.clubs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	return clubs, nil
}

func (s *ClubService) Update(ctx context.Context, principal user.Principal, id int64, input UpdateClubInput) (club.Club, error) {
	existing, exists, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		return club.Club{}, fmt.Errorf("get club: %w", err)
	}
	if !exists {
		return club.Club{}, fmt.Errorf("%w: club not found", ErrNotFound)
	}

	res := access.Resource{ClubIDs: []int64{id}}
	if err := s.authz.Require(ctx, principal, access.ClubUpdate, res); err != nil {
		return club.Club{}, err
	}

	if input.Name != nil {
		existing.Name = *input.Name
	}
	if input.City != nil {
		existing.City = *input.City
	}
	if input.Website != nil {
		existing.Website = *input.Website
	}
	if input.Description != nil {
		existing.Description = *input.Description
	}
	if input.ProAcademy != nil {
		existing.ProAcademy = *input.ProAcademy
	}
	existing.UpdatedAt = s.now().UTC()

	if err := existing.Validate(); err != nil {
		return club.Club{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated, err := s.clubs.Update(ctx, existing)
	if err != nil {
		return club.Club{}, fmt.Errorf("update club: %w", err)
	}

	s.store.DeletePrefix(ctx, cache.Key("club"))
	s.logger.InfoContext(ctx, "club updated", "club_id", id, "by", principal.UserID)
	return updated, nil
}

// Deactivate soft-deletes a club; its teams keep their reference.
func (s *ClubService) Deactivate(ctx context.Context, principal user.Principal, id int64) error {
	if err := s.authz.Require(ctx, principal, access.ClubDelete, access.Resource{ClubIDs: []int64{id}}); err != nil {
		return err
	}

	if _, exists, err := s.clubs.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get club: %w", err)
	} else if !exists {
		return fmt.Errorf("%w: club not found", ErrNotFound)
	}

	if err := s.clubs.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("deactivate club: %w", err)
	}

	s.store.DeletePrefix(ctx, cache.Key("club"))
	s.logger.InfoContext(ctx, "club deactivated", "club_id", id, "by", principal.UserID)
	return nil
}
