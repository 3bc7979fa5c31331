package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Create(ctx context.Context, m match.Match) (match.Match, error) {
	query, args, err := qb.InsertInto("matches").
		Columns(
			"home_team_id", "away_team_id", "home_score", "away_score",
			"match_date", "match_time", "location",
			"season_id", "age_group_id", "match_type_id", "division_id",
			"status", "external_match_id", "source", "score_locked",
			"version", "created_at", "updated_at",
		).
		Values(
			m.HomeTeamID, m.AwayTeamID, scoreNullInt64(m.HomeScore), scoreNullInt64(m.AwayScore),
			m.MatchDate, ptrNullString(m.MatchTime), ptrNullString(m.Location),
			m.SeasonID, m.AgeGroupID, m.MatchTypeID, m.DivisionID,
			string(m.Status), ptrNullString(m.ExternalMatchID), string(m.Source), m.ScoreLocked,
			1, m.CreatedAt, m.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build insert match query: %w", err)
	}

	if err := r.db.GetContext(ctx, &m.ID, query, args...); err != nil {
		return match.Match{}, mapError("insert match", err)
	}
	m.Version = 1
	return m, nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id int64) (match.Match, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, externalID string) (match.Match, bool, error) {
	return r.getOne(ctx, qb.Eq("external_match_id", externalID))
}

func (r *MatchRepository) GetByKey(ctx context.Context, key match.Key) (match.Match, bool, error) {
	return r.getOne(ctx,
		qb.Eq("home_team_id", key.HomeTeamID),
		qb.Eq("away_team_id", key.AwayTeamID),
		qb.Eq("match_date", key.MatchDate),
		qb.Eq("season_id", key.SeasonID),
		qb.Eq("age_group_id", key.AgeGroupID),
		qb.Eq("match_type_id", key.MatchTypeID),
		qb.Eq("division_id", key.DivisionID),
	)
}

func (r *MatchRepository) getOne(ctx context.Context, conds ...qb.Condition) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From("matches").Where(conds...).ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, mapError("get match", err)
	}
	return row.toDomain(), true, nil
}

func detailSelect() *qb.SelectBuilder {
	return qb.Select(
		"m.id", "m.home_team_id", "m.away_team_id", "m.home_score", "m.away_score",
		"m.match_date", "m.match_time", "m.location",
		"m.season_id", "m.age_group_id", "m.match_type_id", "m.division_id",
		"m.status", "m.external_match_id", "m.source", "m.score_locked",
		"m.version", "m.created_at", "m.updated_at",
		"ht.name AS home_team_name", "aw.name AS away_team_name",
		"s.name AS season_name", "ag.name AS age_group_name",
		"d.name AS division_name", "mt.name AS match_type_name",
	).
		From("matches m").
		Join("JOIN teams ht ON ht.id = m.home_team_id").
		Join("JOIN teams aw ON aw.id = m.away_team_id").
		Join("JOIN seasons s ON s.id = m.season_id").
		Join("JOIN age_groups ag ON ag.id = m.age_group_id").
		Join("JOIN divisions d ON d.id = m.division_id").
		Join("JOIN match_types mt ON mt.id = m.match_type_id")
}

func (r *MatchRepository) GetDetail(ctx context.Context, id int64) (match.Detail, bool, error) {
	query, args, err := detailSelect().Where(qb.Eq("m.id", id)).ToSQL()
	if err != nil {
		return match.Detail{}, false, fmt.Errorf("build get match detail query: %w", err)
	}

	var row matchDetailModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Detail{}, false, nil
		}
		return match.Detail{}, false, mapError("get match detail", err)
	}
	return row.toDetail(), true, nil
}

func (r *MatchRepository) List(ctx context.Context, filter match.Filter) ([]match.Detail, error) {
	builder := detailSelect().OrderBy("m.match_date DESC", "m.id DESC")

	if filter.SeasonID != nil {
		builder = builder.Where(qb.Eq("m.season_id", *filter.SeasonID))
	}
	if filter.AgeGroupID != nil {
		builder = builder.Where(qb.Eq("m.age_group_id", *filter.AgeGroupID))
	}
	if filter.DivisionID != nil {
		builder = builder.Where(qb.Eq("m.division_id", *filter.DivisionID))
	}
	if filter.LeagueID != nil {
		builder = builder.Where(qb.Eq("d.league_id", *filter.LeagueID))
	}
	if filter.TeamID != nil {
		builder = builder.Where(qb.Expr("(m.home_team_id = ? OR m.away_team_id = ?)", *filter.TeamID, *filter.TeamID))
	}
	if filter.Status != nil {
		builder = builder.Where(qb.Eq("m.status", string(*filter.Status)))
	}
	if filter.DateFrom != nil {
		builder = builder.Where(qb.Gte("m.match_date", *filter.DateFrom))
	}
	if filter.DateTo != nil {
		builder = builder.Where(qb.Lte("m.match_date", *filter.DateTo))
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit).Offset(filter.Offset)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	var rows []matchDetailModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select matches", err)
	}

	out := make([]match.Detail, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDetail())
	}
	return out, nil
}

// Update writes only when the stored version matches. Zero rows with an
// existing id means a concurrent writer won; the caller sees a conflict.
func (r *MatchRepository) Update(ctx context.Context, m match.Match, expectedVersion int64) (match.Match, error) {
	query, args, err := qb.Update("matches").
		Set("home_score", scoreNullInt64(m.HomeScore)).
		Set("away_score", scoreNullInt64(m.AwayScore)).
		Set("match_date", m.MatchDate).
		Set("match_time", ptrNullString(m.MatchTime)).
		Set("location", ptrNullString(m.Location)).
		Set("status", string(m.Status)).
		Set("external_match_id", ptrNullString(m.ExternalMatchID)).
		Set("source", string(m.Source)).
		Set("score_locked", m.ScoreLocked).
		Set("updated_at", m.UpdatedAt).
		SetExpr("version", "version + 1").
		Where(
			qb.Eq("id", m.ID),
			qb.Eq("version", expectedVersion),
		).
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build update match query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return match.Match{}, mapError("update match", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return match.Match{}, mapError("update match rows affected", err)
	}
	if affected == 0 {
		if _, exists, err := r.GetByID(ctx, m.ID); err != nil {
			return match.Match{}, err
		} else if exists {
			return match.Match{}, fmt.Errorf("update match: %w: version %d is stale", usecase.ErrConflict, expectedVersion)
		}
		return match.Match{}, fmt.Errorf("update match: %w: match %d", usecase.ErrNotFound, m.ID)
	}

	m.Version = expectedVersion + 1
	return m, nil
}

func (r *MatchRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := qb.DeleteFrom("matches").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete match query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("delete match", err)
	}
	return nil
}

func (r *MatchRepository) ListCompleted(ctx context.Context, scope match.Scope) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(
			qb.Eq("division_id", scope.DivisionID),
			qb.Eq("season_id", scope.SeasonID),
			qb.Eq("age_group_id", scope.AgeGroupID),
			qb.Eq("status", string(match.StatusCompleted)),
		).
		OrderBy("match_date", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list completed matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select completed matches", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MatchRepository) GetTypeByName(ctx context.Context, name string) (match.Type, bool, error) {
	query, args, err := qb.Select("id", "name").From("match_types").
		Where(qb.Expr("LOWER(name) = LOWER(?)", name)).
		ToSQL()
	if err != nil {
		return match.Type{}, false, fmt.Errorf("build get match type query: %w", err)
	}

	var row match.Type
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Type{}, false, nil
		}
		return match.Type{}, false, mapError("get match type", err)
	}
	return row, true, nil
}

func (r *MatchRepository) ListTypes(ctx context.Context) ([]match.Type, error) {
	query, args, err := qb.Select("id", "name").From("match_types").OrderBy("id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match types query: %w", err)
	}

	var rows []match.Type
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select match types", err)
	}
	return rows, nil
}
