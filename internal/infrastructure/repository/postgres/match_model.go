package postgres

import (
	"database/sql"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/match"
)

type matchTableModel struct {
	ID              int64          `db:"id"`
	HomeTeamID      int64          `db:"home_team_id"`
	AwayTeamID      int64          `db:"away_team_id"`
	HomeScore       sql.NullInt64  `db:"home_score"`
	AwayScore       sql.NullInt64  `db:"away_score"`
	MatchDate       time.Time      `db:"match_date"`
	MatchTime       sql.NullString `db:"match_time"`
	Location        sql.NullString `db:"location"`
	SeasonID        int64          `db:"season_id"`
	AgeGroupID      int64          `db:"age_group_id"`
	MatchTypeID     int64          `db:"match_type_id"`
	DivisionID      int64          `db:"division_id"`
	Status          string         `db:"status"`
	ExternalMatchID sql.NullString `db:"external_match_id"`
	Source          string         `db:"source"`
	ScoreLocked     bool           `db:"score_locked"`
	Version         int64          `db:"version"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (m matchTableModel) toDomain() match.Match {
	out := match.Match{
		ID:              m.ID,
		HomeTeamID:      m.HomeTeamID,
		AwayTeamID:      m.AwayTeamID,
		MatchDate:       m.MatchDate,
		MatchTime:       m.MatchTime.String,
		Location:        m.Location.String,
		SeasonID:        m.SeasonID,
		AgeGroupID:      m.AgeGroupID,
		MatchTypeID:     m.MatchTypeID,
		DivisionID:      m.DivisionID,
		Status:          match.Status(m.Status),
		ExternalMatchID: m.ExternalMatchID.String,
		Source:          match.Source(m.Source),
		ScoreLocked:     m.ScoreLocked,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.HomeScore.Valid {
		score := int(m.HomeScore.Int64)
		out.HomeScore = &score
	}
	if m.AwayScore.Valid {
		score := int(m.AwayScore.Int64)
		out.AwayScore = &score
	}
	return out
}

type matchDetailModel struct {
	matchTableModel
	HomeTeamName  string `db:"home_team_name"`
	AwayTeamName  string `db:"away_team_name"`
	SeasonName    string `db:"season_name"`
	AgeGroupName  string `db:"age_group_name"`
	DivisionName  string `db:"division_name"`
	MatchTypeName string `db:"match_type_name"`
}

func (m matchDetailModel) toDetail() match.Detail {
	return match.Detail{
		Match:         m.toDomain(),
		HomeTeamName:  m.HomeTeamName,
		AwayTeamName:  m.AwayTeamName,
		SeasonName:    m.SeasonName,
		AgeGroupName:  m.AgeGroupName,
		DivisionName:  m.DivisionName,
		MatchTypeName: m.MatchTypeName,
	}
}

func scoreNullInt64(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
