package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/agegroup"
	"github.com/matchtrack/matchtrack/internal/domain/invite"
	"github.com/matchtrack/matchtrack/internal/domain/playerhistory"
	"github.com/matchtrack/matchtrack/internal/domain/season"
	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/id"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

const defaultInviteTTL = 7 * 24 * time.Hour

type CreateInviteInput struct {
	Type       string
	TeamID     *int64
	ClubID     *int64
	AgeGroupID *int64
	MaxUses    int
	TTL        time.Duration
}

// InviteInfo is the public validation view of a code: enough for the signup
// form, nothing about the issuer.
type InviteInfo struct {
	Code          string
	InviteType    invite.Type
	Status        invite.Status
	TeamID        *int64
	ClubID        *int64
	AgeGroupID    *int64
	RemainingUses int
	ExpiresAt     time.Time
}

// InviteService owns the invite lifecycle: delegated issuance, public
// validation, the race-safe consume during signup, and cancellation.
type InviteService struct {
	invites   invite.Repository
	users     user.Repository
	teams     team.Repository
	seasons   season.Repository
	ageGroups agegroup.Repository
	history   playerhistory.Repository
	ids       id.Generator
	retries   int
	logger    *logging.Logger
	now       func() time.Time
}

func NewInviteService(
	invites invite.Repository,
	users user.Repository,
	teams team.Repository,
	seasons season.Repository,
	ageGroups agegroup.Repository,
	history playerhistory.Repository,
	ids id.Generator,
	consumeRetries int,
	logger *logging.Logger,
) *InviteService {
	if consumeRetries < 1 {
		consumeRetries = 1
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &InviteService{
		invites:   invites,
		users:     users,
		teams:     teams,
		seasons:   seasons,
		ageGroups: ageGroups,
		history:   history,
		ids:       ids,
		retries:   consumeRetries,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *InviteService) WithClock(now func() time.Time) *InviteService {
	s.now = now
	return s
}

// Create issues an invite. Who may issue what follows the delegation tree;
// scope is pinned to the issuer's own club or assigned teams.
func (s *InviteService) Create(ctx context.Context, principal user.Principal, input CreateInviteInput) (invite.Invitation, error) {
	inviteType, err := invite.ParseType(input.Type)
	if err != nil {
		return invite.Invitation{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !invite.MayIssue(principal.Role, inviteType) {
		return invite.Invitation{}, fmt.Errorf("%w: role %s may not issue %s invites", ErrForbidden, principal.Role, inviteType)
	}

	issuer, exists, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return invite.Invitation{}, fmt.Errorf("get issuer profile: %w", err)
	}
	if !exists {
		return invite.Invitation{}, fmt.Errorf("%w: issuer profile not found", ErrUnauthenticated)
	}

	if err := s.checkIssuerScope(ctx, issuer, inviteType, input); err != nil {
		return invite.Invitation{}, err
	}

	if input.AgeGroupID != nil {
		if _, exists, err := s.ageGroups.GetByID(ctx, *input.AgeGroupID); err != nil {
			return invite.Invitation{}, fmt.Errorf("get age group: %w", err)
		} else if !exists {
			return invite.Invitation{}, fmt.Errorf("%w: age group %d not found", ErrInvalidInput, *input.AgeGroupID)
		}
	}

	code, err := s.ids.NewID()
	if err != nil {
		return invite.Invitation{}, fmt.Errorf("generate invite code: %w", err)
	}

	maxUses := input.MaxUses
	if maxUses <= 0 {
		maxUses = 1
	}
	ttl := input.TTL
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}

	now := s.now().UTC()
	invitation := invite.Invitation{
		Code:       code,
		InviteType: inviteType,
		TeamID:     input.TeamID,
		ClubID:     input.ClubID,
		AgeGroupID: input.AgeGroupID,
		MaxUses:    maxUses,
		ExpiresAt:  now.Add(ttl),
		Status:     invite.StatusPending,
		CreatedBy:  principal.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := invitation.Validate(); err != nil {
		return invite.Invitation{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	created, err := s.invites.Create(ctx, invitation)
	if err != nil {
		return invite.Invitation{}, fmt.Errorf("create invite: %w", err)
	}

	s.logger.InfoContext(ctx, "invite created",
		"invite_id", created.ID, "invite_type", created.InviteType, "created_by", principal.UserID)
	return created, nil
}

// checkIssuerScope pins invite scope to the issuer's own reach: a club
// manager inside its club, a team manager to its assigned teams.
func (s *InviteService) checkIssuerScope(ctx context.Context, issuer user.Profile, t invite.Type, input CreateInviteInput) error {
	switch issuer.Role {
	case user.RoleAdmin:
		return nil

	case user.RoleClubManager:
		if issuer.ClubID == nil {
			return fmt.Errorf("%w: issuer has no club scope", ErrForbidden)
		}
		if t.NeedsClub() {
			if input.ClubID == nil || *input.ClubID != *issuer.ClubID {
				return fmt.Errorf("%w: invite scope must be the issuer's club", ErrForbidden)
			}
			return nil
		}
		if input.TeamID == nil {
			return fmt.Errorf("%w: invite type %s requires a team scope", ErrInvalidInput, t)
		}
		target, exists, err := s.teams.GetByID(ctx, *input.TeamID)
		if err != nil {
			return fmt.Errorf("get team: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: team %d not found", ErrInvalidInput, *input.TeamID)
		}
		if target.ClubID == nil || *target.ClubID != *issuer.ClubID {
			return fmt.Errorf("%w: team %d is not in the issuer's club", ErrForbidden, *input.TeamID)
		}
		return nil

	case user.RoleTeamManager:
		if input.TeamID == nil {
			return fmt.Errorf("%w: invite type %s requires a team scope", ErrInvalidInput, t)
		}
		assigned, err := s.users.ManagerTeamIDs(ctx, issuer.ID)
		if err != nil {
			return fmt.Errorf("get manager assignments: %w", err)
		}
		for _, teamID := range assigned {
			if teamID == *input.TeamID {
				return nil
			}
		}
		return fmt.Errorf("%w: issuer is not assigned to team %d", ErrForbidden, *input.TeamID)

	default:
		return fmt.Errorf("%w: role %s may not issue invites", ErrForbidden, issuer.Role)
	}
}

// Validate is the public, unauthenticated code check. A terminal code
// (expired, exhausted, cancelled) surfaces as its sentinel error so the HTTP
// layer answers 410 with the matching code string.
func (s *InviteService) Validate(ctx context.Context, code string) (InviteInfo, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return InviteInfo{}, fmt.Errorf("%w: invite code is required", ErrInvalidInput)
	}

	invitation, exists, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		return InviteInfo{}, fmt.Errorf("get invite: %w", err)
	}
	if !exists {
		return InviteInfo{}, fmt.Errorf("%w: invite not found", ErrNotFound)
	}

	now := s.now().UTC()
	if err := invitation.Consumable(now); err != nil {
		return InviteInfo{}, fmt.Errorf("validate invite: %w", err)
	}

	return InviteInfo{
		Code:          invitation.Code,
		InviteType:    invitation.InviteType,
		Status:        invitation.EffectiveStatus(now),
		TeamID:        invitation.TeamID,
		ClubID:        invitation.ClubID,
		AgeGroupID:    invitation.AgeGroupID,
		RemainingUses: invitation.RemainingUses(),
		ExpiresAt:     invitation.ExpiresAt,
	}, nil
}

// ConsumeForSignup applies the invite's role and scope to the new profile
// and runs the conditional consume. Losing the use-counter race retries a
// bounded number of times before reporting the invite unavailable.
func (s *InviteService) ConsumeForSignup(ctx context.Context, code string, profile user.Profile) (user.Profile, error) {
	code = strings.TrimSpace(code)

	invitation, exists, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		return user.Profile{}, fmt.Errorf("get invite: %w", err)
	}
	if !exists {
		return user.Profile{}, fmt.Errorf("%w: invite not found", ErrNotFound)
	}

	now := s.now().UTC()
	if err := invitation.Consumable(now); err != nil {
		return user.Profile{}, err
	}

	profile.Role = invitation.InviteType.Role()
	profile.TeamID = invitation.TeamID
	profile.ClubID = invitation.ClubID
	profile.AssignedAgeGroupID = invitation.AgeGroupID
	profile.InvitedViaCode = code
	if invitation.TeamID != nil && profile.ClubID == nil {
		if t, exists, err := s.teams.GetByID(ctx, *invitation.TeamID); err == nil && exists {
			profile.ClubID = t.ClubID
		}
	}

	var consumed user.Profile
	for attempt := 1; ; attempt++ {
		_, consumed, err = s.invites.Consume(ctx, code, profile)
		if err == nil {
			break
		}
		if errors.Is(err, invite.ErrUnavailable) && attempt < s.retries {
			s.logger.DebugContext(ctx, "invite consume race, retrying",
				"code_suffix", codeSuffix(code), "attempt", attempt)
			continue
		}
		return user.Profile{}, err
	}

	s.afterConsume(ctx, invitation, consumed)

	s.logger.InfoContext(ctx, "invite consumed",
		"invite_id", invitation.ID, "invite_type", invitation.InviteType, "user_id", consumed.ID)
	return consumed, nil
}

// afterConsume handles the role-specific followups: manager assignment rows
// and the player placement snapshot. Both are best-effort; the account
// already exists.
func (s *InviteService) afterConsume(ctx context.Context, invitation invite.Invitation, profile user.Profile) {
	switch invitation.InviteType {
	case invite.TypeTeamManager:
		if invitation.TeamID == nil {
			return
		}
		if err := s.users.AssignManagerTeam(ctx, profile.ID, *invitation.TeamID); err != nil {
			s.logger.ErrorContext(ctx, "assign manager team after invite consume",
				"user_id", profile.ID, "team_id", *invitation.TeamID, "error", err)
		}

	case invite.TypeTeamPlayer:
		if invitation.TeamID == nil {
			return
		}
		current, ok := s.currentSeason(ctx)
		if !ok {
			return
		}
		entry := playerhistory.Entry{
			PlayerID:   profile.ID,
			TeamID:     *invitation.TeamID,
			SeasonID:   current.ID,
			AgeGroupID: invitation.AgeGroupID,
			IsCurrent:  true,
		}
		if _, err := s.history.Upsert(ctx, entry); err != nil {
			s.logger.ErrorContext(ctx, "record player placement after invite consume",
				"user_id", profile.ID, "team_id", *invitation.TeamID, "error", err)
		}
	}
}

// currentSeason picks the season covering now, falling back to the latest.
func (s *InviteService) currentSeason(ctx context.Context) (season.Season, bool) {
	seasons, err := s.seasons.List(ctx)
	if err != nil || len(seasons) == 0 {
		return season.Season{}, false
	}

	now := s.now().UTC()
	latest := seasons[0]
	for _, candidate := range seasons {
		if !candidate.StartDate.After(now) && candidate.EndDate.After(now) {
			return candidate, true
		}
		if candidate.StartDate.After(latest.StartDate) {
			latest = candidate
		}
	}
	return latest, true
}

// Cancel voids a pending invite. Only the issuer or an admin may cancel.
func (s *InviteService) Cancel(ctx context.Context, principal user.Principal, inviteID int64) error {
	invitation, exists, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("get invite: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: invite not found", ErrNotFound)
	}

	if principal.Role != user.RoleAdmin && invitation.CreatedBy != principal.UserID {
		return fmt.Errorf("%w: only the issuer may cancel an invite", ErrForbidden)
	}
	if invitation.EffectiveStatus(s.now().UTC()) != invite.StatusPending {
		return fmt.Errorf("%w: invite is no longer pending", ErrConflict)
	}

	if err := s.invites.Cancel(ctx, inviteID); err != nil {
		return fmt.Errorf("cancel invite: %w", err)
	}

	s.logger.InfoContext(ctx, "invite cancelled", "invite_id", inviteID, "by", principal.UserID)
	return nil
}

// List returns invites the caller issued; admins may list everyone's.
func (s *InviteService) List(ctx context.Context, principal user.Principal, filter invite.ListFilter) ([]invite.Invitation, error) {
	if principal.Role != user.RoleAdmin {
		filter.CreatedBy = principal.UserID
	}

	invitations, err := s.invites.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}

	now := s.now().UTC()
	for i := range invitations {
		invitations[i].Status = invitations[i].EffectiveStatus(now)
	}
	return invitations, nil
}

// codeSuffix keeps full invite codes out of logs.
func codeSuffix(code string) string {
	if len(code) <= 6 {
		return code
	}
	return code[len(code)-6:]
}
