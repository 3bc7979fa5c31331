package user

import "context"

// Repository describes profile persistence needs from use cases.
type Repository interface {
	Create(ctx context.Context, p Profile) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, bool, error)
	GetByUsername(ctx context.Context, username string) (Profile, bool, error)
	Update(ctx context.Context, p Profile) (Profile, error)
	// ManagerTeamIDs returns the teams a team manager is assigned to.
	ManagerTeamIDs(ctx context.Context, userID string) ([]int64, error)
	AssignManagerTeam(ctx context.Context, userID string, teamID int64) error
}

// SessionRepository owns refresh-session state. GetByRefreshHash returns the
// row regardless of rotated/revoked state so the service can detect reuse.
type SessionRepository interface {
	Create(ctx context.Context, s Session) error
	GetByID(ctx context.Context, id string) (Session, bool, error)
	GetByRefreshHash(ctx context.Context, hash string) (Session, bool, error)
	// Rotate closes old (sets rotated_at) and inserts next in one transaction.
	Rotate(ctx context.Context, oldID string, next Session) error
	RevokeFamily(ctx context.Context, familyID string) error
}
