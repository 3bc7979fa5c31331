package invite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/user"
)

var (
	ErrExpired     = errors.New("invite expired")
	ErrExhausted   = errors.New("invite exhausted")
	ErrCancelled   = errors.New("invite cancelled")
	ErrUnavailable = errors.New("invite unavailable")
)

// Type names the role an invite grants on consume.
type Type string

const (
	TypeClubManager Type = "club_manager"
	TypeClubFan     Type = "club_fan"
	TypeTeamManager Type = "team_manager"
	TypeTeamPlayer  Type = "team_player"
	TypeTeamFan     Type = "team_fan"
)

func ParseType(v string) (Type, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), "-", "_")
	switch Type(normalized) {
	case TypeClubManager, TypeClubFan, TypeTeamManager, TypeTeamPlayer, TypeTeamFan:
		return Type(normalized), nil
	default:
		return "", fmt.Errorf("unknown invite type %q", v)
	}
}

// Role is the profile role a consumed invite assigns.
func (t Type) Role() user.Role {
	switch t {
	case TypeClubManager:
		return user.RoleClubManager
	case TypeClubFan:
		return user.RoleClubFan
	case TypeTeamManager:
		return user.RoleTeamManager
	case TypeTeamPlayer:
		return user.RoleTeamPlayer
	default:
		return user.RoleTeamFan
	}
}

// delegation fixes who may issue which invite types (the delegation tree).
var delegation = map[user.Role][]Type{
	user.RoleAdmin:       {TypeClubManager},
	user.RoleClubManager: {TypeTeamManager, TypeClubFan},
	user.RoleTeamManager: {TypeTeamPlayer, TypeTeamFan},
}

// MayIssue reports whether issuer may create invites of type t.
func MayIssue(issuer user.Role, t Type) bool {
	for _, allowed := range delegation[issuer] {
		if allowed == t {
			return true
		}
	}
	return false
}

// NeedsTeam reports whether the invite type scopes to a team.
func (t Type) NeedsTeam() bool {
	return t == TypeTeamManager || t == TypeTeamPlayer || t == TypeTeamFan
}

// NeedsClub reports whether the invite type scopes to a club.
func (t Type) NeedsClub() bool {
	return t == TypeClubManager || t == TypeClubFan
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConsumed  Status = "consumed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Invitation is one invite code. Expiry is derived on read: a pending row
// past ExpiresAt reports StatusExpired without a write.
type Invitation struct {
	ID          int64
	Code        string
	InviteType  Type
	TeamID      *int64
	ClubID      *int64
	AgeGroupID  *int64
	MaxUses     int
	CurrentUses int
	ExpiresAt   time.Time
	Status      Status
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (i Invitation) Validate() error {
	if strings.TrimSpace(i.Code) == "" {
		return fmt.Errorf("invite code is required")
	}
	if _, err := ParseType(string(i.InviteType)); err != nil {
		return err
	}
	if i.MaxUses < 1 {
		return fmt.Errorf("invite max_uses must be >= 1")
	}
	if i.ExpiresAt.IsZero() {
		return fmt.Errorf("invite expiry is required")
	}
	if i.InviteType.NeedsTeam() && i.TeamID == nil {
		return fmt.Errorf("invite type %s requires a team scope", i.InviteType)
	}
	if i.InviteType.NeedsClub() && i.ClubID == nil {
		return fmt.Errorf("invite type %s requires a club scope", i.InviteType)
	}
	return nil
}

// EffectiveStatus derives the read-time status: exhaustion and expiry win
// over a stale pending row.
func (i Invitation) EffectiveStatus(now time.Time) Status {
	if i.Status != StatusPending {
		return i.Status
	}
	if i.CurrentUses >= i.MaxUses {
		return StatusConsumed
	}
	if !i.ExpiresAt.After(now) {
		return StatusExpired
	}
	return StatusPending
}

// Consumable returns nil when a consume may proceed, or the terminal-state
// error a caller should surface.
func (i Invitation) Consumable(now time.Time) error {
	switch i.EffectiveStatus(now) {
	case StatusPending:
		return nil
	case StatusConsumed:
		return ErrExhausted
	case StatusCancelled:
		return ErrCancelled
	default:
		return ErrExpired
	}
}

func (i Invitation) RemainingUses() int {
	remaining := i.MaxUses - i.CurrentUses
	if remaining < 0 {
		return 0
	}
	return remaining
}

type ListFilter struct {
	CreatedBy string
	Limit     int
	Offset    int
}
