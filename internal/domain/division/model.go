package division

import (
	"fmt"
	"strings"
)

// Division is a tier inside a league; (Name, LeagueID) is unique.
type Division struct {
	ID       int64
	Name     string
	LeagueID int64
	Level    int
}

func (d Division) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("division name is required")
	}
	if d.LeagueID <= 0 {
		return fmt.Errorf("division league_id is required")
	}
	return nil
}
