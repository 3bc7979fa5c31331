package playerhistory

import (
	"fmt"
	"strings"
	"time"
)

// Entry snapshots a player's placement for one (player, team, season).
// At most one entry per player carries IsCurrent.
type Entry struct {
	ID           int64
	PlayerID     string
	TeamID       int64
	SeasonID     int64
	LeagueID     *int64
	DivisionID   *int64
	AgeGroupID   *int64
	JerseyNumber *int
	Positions    []string
	IsCurrent    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.PlayerID) == "" {
		return fmt.Errorf("player id is required")
	}
	if e.TeamID <= 0 {
		return fmt.Errorf("team id is required")
	}
	if e.SeasonID <= 0 {
		return fmt.Errorf("season id is required")
	}
	return nil
}
