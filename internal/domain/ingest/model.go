package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/platform/tracectx"
)

var ErrUnknownEntity = errors.New("unknown entity")

// Submission is what producers post: names, not ids. The worker resolves
// every name against the store.
type Submission struct {
	HomeTeam        string `json:"home_team"`
	AwayTeam        string `json:"away_team"`
	HomeScore       *int   `json:"home_score,omitempty"`
	AwayScore       *int   `json:"away_score,omitempty"`
	MatchDate       string `json:"match_date"`
	MatchTime       string `json:"match_time,omitempty"`
	Location        string `json:"location,omitempty"`
	League          string `json:"league"`
	Season          string `json:"season"`
	AgeGroup        string `json:"age_group"`
	Division        string `json:"division"`
	MatchType       string `json:"match_type"`
	Status          string `json:"status"`
	ExternalMatchID string `json:"external_match_id"`
}

// ValidateShape is the cheap pre-enqueue check: required fields, score
// bounds, status enum, parseable date. Entity existence is the worker's job.
func (s Submission) ValidateShape() error {
	for field, value := range map[string]string{
		"home_team":  s.HomeTeam,
		"away_team":  s.AwayTeam,
		"match_date": s.MatchDate,
		"league":     s.League,
		"season":     s.Season,
		"age_group":  s.AgeGroup,
		"division":   s.Division,
		"match_type": s.MatchType,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", field)
		}
	}
	if strings.EqualFold(strings.TrimSpace(s.HomeTeam), strings.TrimSpace(s.AwayTeam)) {
		return fmt.Errorf("home and away team must differ")
	}
	if s.HomeScore != nil && *s.HomeScore < 0 {
		return fmt.Errorf("home_score must be >= 0")
	}
	if s.AwayScore != nil && *s.AwayScore < 0 {
		return fmt.Errorf("away_score must be >= 0")
	}
	if _, err := match.ParseStatus(s.Status); err != nil {
		return err
	}
	if _, err := s.ParsedDate(); err != nil {
		return err
	}
	return nil
}

func (s Submission) ParsedDate() (time.Time, error) {
	raw := strings.TrimSpace(s.MatchDate)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("match_date %q is not RFC3339 or YYYY-MM-DD", raw)
}

// Job is the broker message: the submission plus task identity, producer
// and the trace pair, so worker logs correlate with the original request.
type Job struct {
	TaskID     string         `json:"task_id"`
	Producer   string         `json:"producer"`
	Submission Submission     `json:"submission"`
	Trace      tracectx.Trace `json:"trace"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

type TaskState string

const (
	StatePending TaskState = "PENDING"
	StateStarted TaskState = "STARTED"
	StateSuccess TaskState = "SUCCESS"
	StateFailure TaskState = "FAILURE"
)

type ResultAction string

const (
	ActionCreated ResultAction = "created"
	ActionUpdated ResultAction = "updated"
	ActionSkipped ResultAction = "skipped"
)

// TaskResult is the ephemeral record the status endpoint serves.
type TaskResult struct {
	TaskID    string         `json:"task_id"`
	State     TaskState      `json:"state"`
	MatchID   int64          `json:"match_id,omitempty"`
	Action    ResultAction   `json:"action,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Error     string         `json:"error,omitempty"`
	Trace     tracectx.Trace `json:"trace"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (r TaskResult) Ready() bool {
	return r.State == StateSuccess || r.State == StateFailure
}
