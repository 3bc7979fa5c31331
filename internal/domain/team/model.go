package team

import (
	"fmt"
	"strings"
	"time"
)

// Team belongs to a league and optionally to a club; (Name, ClubID,
// LeagueID) is unique. Teams never reference other teams; club membership
// is the only grouping.
type Team struct {
	ID          int64
	Name        string
	City        string
	ClubID      *int64
	LeagueID    int64
	AcademyTeam bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	if t.LeagueID <= 0 {
		return fmt.Errorf("team league_id is required")
	}
	return nil
}

// Detail is the composite read: team plus denormalized club/league names.
type Detail struct {
	Team
	ClubName   string
	LeagueName string
}

type ListFilter struct {
	ClubID   *int64
	LeagueID *int64
	Limit    int
	Offset   int
}
