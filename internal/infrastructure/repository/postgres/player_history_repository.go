package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/matchtrack/matchtrack/internal/domain/playerhistory"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
)

type playerHistoryTableModel struct {
	ID           int64          `db:"id"`
	PlayerID     string         `db:"player_id"`
	TeamID       int64          `db:"team_id"`
	SeasonID     int64          `db:"season_id"`
	LeagueID     sql.NullInt64  `db:"league_id"`
	DivisionID   sql.NullInt64  `db:"division_id"`
	AgeGroupID   sql.NullInt64  `db:"age_group_id"`
	JerseyNumber sql.NullInt64  `db:"jersey_number"`
	Positions    pq.StringArray `db:"positions"`
	IsCurrent    bool           `db:"is_current"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (m playerHistoryTableModel) toDomain() playerhistory.Entry {
	e := playerhistory.Entry{
		ID:         m.ID,
		PlayerID:   m.PlayerID,
		TeamID:     m.TeamID,
		SeasonID:   m.SeasonID,
		LeagueID:   nullInt64Ptr(m.LeagueID),
		DivisionID: nullInt64Ptr(m.DivisionID),
		AgeGroupID: nullInt64Ptr(m.AgeGroupID),
		IsCurrent:  m.IsCurrent,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.JerseyNumber.Valid {
		number := int(m.JerseyNumber.Int64)
		e.JerseyNumber = &number
	}
	if len(m.Positions) > 0 {
		e.Positions = append([]string(nil), m.Positions...)
	}
	return e
}

type PlayerHistoryRepository struct {
	db *sqlx.DB
}

func NewPlayerHistoryRepository(db *sqlx.DB) *PlayerHistoryRepository {
	return &PlayerHistoryRepository{db: db}
}

// Upsert writes the (player, team, season) snapshot. When the entry is the
// player's current placement it clears the flag everywhere else in the same
// transaction, keeping at most one current row per player.
func (r *PlayerHistoryRepository) Upsert(ctx context.Context, e playerhistory.Entry) (playerhistory.Entry, error) {
	if err := e.Validate(); err != nil {
		return playerhistory.Entry{}, fmt.Errorf("upsert player history: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return playerhistory.Entry{}, mapError("begin upsert player history", err)
	}
	defer func() { _ = tx.Rollback() }()

	if e.IsCurrent {
		query, args, err := qb.Update("player_team_history").
			Set("is_current", false).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("player_id", e.PlayerID),
				qb.Eq("is_current", true),
			).
			ToSQL()
		if err != nil {
			return playerhistory.Entry{}, fmt.Errorf("build clear current placement query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return playerhistory.Entry{}, mapError("clear current placement", err)
		}
	}

	var jersey sql.NullInt64
	if e.JerseyNumber != nil {
		jersey = sql.NullInt64{Int64: int64(*e.JerseyNumber), Valid: true}
	}

	now := time.Now().UTC()
	query, args, err := qb.InsertInto("player_team_history").
		Columns("player_id", "team_id", "season_id", "league_id", "division_id", "age_group_id",
			"jersey_number", "positions", "is_current", "created_at", "updated_at").
		Values(e.PlayerID, e.TeamID, e.SeasonID, ptrNullInt64(e.LeagueID), ptrNullInt64(e.DivisionID),
			ptrNullInt64(e.AgeGroupID), jersey, pq.StringArray(e.Positions), e.IsCurrent, now, now).
		Suffix(`ON CONFLICT (player_id, team_id, season_id) DO UPDATE SET
			jersey_number = EXCLUDED.jersey_number,
			positions = EXCLUDED.positions,
			is_current = EXCLUDED.is_current,
			updated_at = NOW()
		RETURNING id`).
		ToSQL()
	if err != nil {
		return playerhistory.Entry{}, fmt.Errorf("build upsert player history query: %w", err)
	}
	if err := tx.GetContext(ctx, &e.ID, query, args...); err != nil {
		return playerhistory.Entry{}, mapError("upsert player history", err)
	}

	if err := tx.Commit(); err != nil {
		return playerhistory.Entry{}, mapError("commit upsert player history", err)
	}
	return e, nil
}

func (r *PlayerHistoryRepository) ListByPlayer(ctx context.Context, playerID string) ([]playerhistory.Entry, error) {
	query, args, err := qb.Select("*").From("player_team_history").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("season_id DESC", "id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list player history query: %w", err)
	}

	var rows []playerHistoryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select player history", err)
	}

	out := make([]playerhistory.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PlayerHistoryRepository) GetCurrent(ctx context.Context, playerID string) (playerhistory.Entry, bool, error) {
	query, args, err := qb.Select("*").From("player_team_history").
		Where(
			qb.Eq("player_id", playerID),
			qb.Eq("is_current", true),
		).
		ToSQL()
	if err != nil {
		return playerhistory.Entry{}, false, fmt.Errorf("build get current placement query: %w", err)
	}

	var row playerHistoryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return playerhistory.Entry{}, false, nil
		}
		return playerhistory.Entry{}, false, mapError("get current placement", err)
	}
	return row.toDomain(), true, nil
}
