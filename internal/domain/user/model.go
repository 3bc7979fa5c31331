package user

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionRevoked     = errors.New("session revoked")
)

// Role is the typed role hierarchy. Legacy hyphen/underscore wire variants
// are mapped once by ParseRole; everything past the boundary works on the
// typed form.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleClubManager Role = "club_manager"
	RoleTeamManager Role = "team_manager"
	RoleTeamPlayer  Role = "team_player"
	RoleClubFan     Role = "club_fan"
	RoleTeamFan     Role = "team_fan"
	// RoleService marks machine accounts (the scraper producer); it carries
	// the ingest capability and nothing else.
	RoleService Role = "service"
)

func ParseRole(v string) (Role, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), "-", "_")
	switch Role(normalized) {
	case RoleAdmin, RoleClubManager, RoleTeamManager, RoleTeamPlayer, RoleClubFan, RoleTeamFan, RoleService:
		return Role(normalized), nil
	default:
		return "", fmt.Errorf("unknown role %q", v)
	}
}

func (r Role) String() string {
	return string(r)
}

// Level orders roles by privilege, higher wins. Fan and player roles share
// the lowest authenticated tier.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleClubManager:
		return 3
	case RoleTeamManager:
		return 2
	case RoleTeamPlayer, RoleClubFan, RoleTeamFan:
		return 1
	case RoleService:
		return 1
	default:
		return 0
	}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username must be 3-50 characters of letters, digits or underscore")
	}
	return nil
}

// Profile is the platform-side view of an account. ID references the IdP
// user id; Email is the real notification address and is never shown to the
// IdP (which only ever sees the derived internal address).
type Profile struct {
	ID                 string
	Username           string
	Email              string
	PhoneNumber        string
	Role               Role
	TeamID             *int64
	ClubID             *int64
	DisplayName        string
	PlayerNumber       *int
	Positions          []string
	AssignedAgeGroupID *int64
	InvitedViaCode     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("profile id is required")
	}
	if err := ValidateUsername(p.Username); err != nil {
		return err
	}
	if _, err := ParseRole(string(p.Role)); err != nil {
		return err
	}
	return nil
}

// Principal is the verified caller attached to a request context.
type Principal struct {
	UserID    string
	Username  string
	Role      Role
	SessionID string
}

// Session is one refresh-token generation. Rows in the same family share
// FamilyID; rotation closes the old row and opens a new one, and a reused
// rotated token burns the family.
type Session struct {
	ID          string
	UserID      string
	FamilyID    string
	RefreshHash string
	AccessJTI   string
	ExpiresAt   time.Time
	RotatedAt   *time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

func (s Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && s.RotatedAt == nil && s.ExpiresAt.After(now)
}
