package usecase

import (
	"context"
	"fmt"

	"github.com/matchtrack/matchtrack/internal/domain/access"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
)

// Authorizer joins verified claims with profile scope and feeds the access
// engine. Services call Require before any guarded write.
type Authorizer struct {
	users  user.Repository
	logger *logging.Logger
}

func NewAuthorizer(users user.Repository, logger *logging.Logger) *Authorizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Authorizer{users: users, logger: logger}
}

// Subject loads the caller's profile scope. Team managers additionally get
// their assignment set so team-scope checks can intersect it.
func (a *Authorizer) Subject(ctx context.Context, principal user.Principal) (access.Subject, error) {
	if principal.UserID == "" {
		return access.Subject{Anonymous: true}, nil
	}

	profile, exists, err := a.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return access.Subject{}, fmt.Errorf("get caller profile: %w", err)
	}
	if !exists {
		return access.Subject{}, fmt.Errorf("%w: caller profile not found", ErrUnauthenticated)
	}

	subject := access.Subject{
		UserID: profile.ID,
		Role:   profile.Role,
		ClubID: profile.ClubID,
		TeamID: profile.TeamID,
	}

	if profile.Role == user.RoleTeamManager {
		assigned, err := a.users.ManagerTeamIDs(ctx, profile.ID)
		if err != nil {
			return access.Subject{}, fmt.Errorf("get manager assignments: %w", err)
		}
		subject.ManagerTeamIDs = assigned
	}

	return subject, nil
}

// Require resolves the subject and evaluates the action; a deny comes back
// as ErrForbidden carrying the engine's reason.
func (a *Authorizer) Require(ctx context.Context, principal user.Principal, action access.Action, res access.Resource) error {
	subject, err := a.Subject(ctx, principal)
	if err != nil {
		return err
	}

	decision := access.Decide(subject, action, res)
	if !decision.Allowed {
		a.logger.InfoContext(ctx, "access denied",
			"user_id", principal.UserID, "action", action.Name, "reason", decision.Reason)
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}
	return nil
}
