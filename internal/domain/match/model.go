package match

import (
	"fmt"
	"strings"
	"time"
)

// Status is the match lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusTBD       Status = "tbd"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
	StatusPostponed Status = "postponed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	switch s {
	case StatusScheduled, StatusTBD, StatusLive, StatusCompleted, StatusPostponed, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown match status %q", v)
	}
}

// Source records who wrote the row last: a human or the ingestion pipeline.
type Source string

const (
	SourceManual  Source = "manual"
	SourceScraper Source = "scraper"
)

// Type is reference data: League, Friendly, Tournament, Playoff.
type Type struct {
	ID   int64
	Name string
}

// Match is one fixture. Version backs optimistic concurrency on updates;
// ScoreLocked freezes HomeScore/AwayScore against ingestion writes.
type Match struct {
	ID              int64
	HomeTeamID      int64
	AwayTeamID      int64
	HomeScore       *int
	AwayScore       *int
	MatchDate       time.Time
	MatchTime       string
	Location        string
	SeasonID        int64
	AgeGroupID      int64
	MatchTypeID     int64
	DivisionID      int64
	Status          Status
	ExternalMatchID string
	Source          Source
	ScoreLocked     bool
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (m Match) Validate() error {
	if m.HomeTeamID <= 0 || m.AwayTeamID <= 0 {
		return fmt.Errorf("both team ids are required")
	}
	if m.HomeTeamID == m.AwayTeamID {
		return fmt.Errorf("home and away team must differ")
	}
	if m.HomeScore != nil && *m.HomeScore < 0 {
		return fmt.Errorf("home score must be >= 0")
	}
	if m.AwayScore != nil && *m.AwayScore < 0 {
		return fmt.Errorf("away score must be >= 0")
	}
	if _, err := ParseStatus(string(m.Status)); err != nil {
		return err
	}
	if m.MatchDate.IsZero() {
		return fmt.Errorf("match date is required")
	}
	return nil
}

// Key is the natural identity tuple used for deduplication when no external
// match id is present.
type Key struct {
	HomeTeamID  int64
	AwayTeamID  int64
	MatchDate   time.Time
	SeasonID    int64
	AgeGroupID  int64
	MatchTypeID int64
	DivisionID  int64
}

func (m Match) Key() Key {
	return Key{
		HomeTeamID:  m.HomeTeamID,
		AwayTeamID:  m.AwayTeamID,
		MatchDate:   m.MatchDate,
		SeasonID:    m.SeasonID,
		AgeGroupID:  m.AgeGroupID,
		MatchTypeID: m.MatchTypeID,
		DivisionID:  m.DivisionID,
	}
}

// Detail carries denormalized names for list/read endpoints.
type Detail struct {
	Match
	HomeTeamName  string
	AwayTeamName  string
	SeasonName    string
	AgeGroupName  string
	DivisionName  string
	MatchTypeName string
}

type Filter struct {
	SeasonID   *int64
	AgeGroupID *int64
	DivisionID *int64
	LeagueID   *int64
	TeamID     *int64
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
