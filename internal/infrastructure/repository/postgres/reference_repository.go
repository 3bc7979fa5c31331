package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchtrack/matchtrack/internal/domain/agegroup"
	"github.com/matchtrack/matchtrack/internal/domain/division"
	"github.com/matchtrack/matchtrack/internal/domain/league"
	"github.com/matchtrack/matchtrack/internal/domain/season"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
)

// Reference-data repositories: leagues, divisions, seasons and age groups.
// All lookups by name are case-insensitive; ingestion resolves free-text
// names through them.

type leagueTableModel struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	IsActive bool   `db:"is_active"`
}

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) Create(ctx context.Context, l league.League) (league.League, error) {
	query, args, err := qb.InsertInto("leagues").
		Columns("name", "is_active").
		Values(l.Name, l.IsActive).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return league.League{}, fmt.Errorf("build insert league query: %w", err)
	}

	if err := r.db.GetContext(ctx, &l.ID, query, args...); err != nil {
		return league.League{}, mapError("insert league", err)
	}
	return l, nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, id int64) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *LeagueRepository) GetByName(ctx context.Context, name string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Expr("LOWER(name) = LOWER(?)", name))
}

func (r *LeagueRepository) getOne(ctx context.Context, cond qb.Condition) (league.League, bool, error) {
	query, args, err := qb.Select("id", "name", "is_active").From("leagues").Where(cond).ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build get league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, mapError("get league", err)
	}
	return league.League(row), true, nil
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	query, args, err := qb.Select("id", "name", "is_active").From("leagues").
		OrderBy("name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select leagues", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, league.League(row))
	}
	return out, nil
}

type divisionTableModel struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	LeagueID int64  `db:"league_id"`
	Level    int    `db:"level"`
}

type DivisionRepository struct {
	db *sqlx.DB
}

func NewDivisionRepository(db *sqlx.DB) *DivisionRepository {
	return &DivisionRepository{db: db}
}

func (r *DivisionRepository) Create(ctx context.Context, d division.Division) (division.Division, error) {
	query, args, err := qb.InsertInto("divisions").
		Columns("name", "league_id", "level").
		Values(d.Name, d.LeagueID, d.Level).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return division.Division{}, fmt.Errorf("build insert division query: %w", err)
	}

	if err := r.db.GetContext(ctx, &d.ID, query, args...); err != nil {
		return division.Division{}, mapError("insert division", err)
	}
	return d, nil
}

func (r *DivisionRepository) GetByID(ctx context.Context, id int64) (division.Division, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *DivisionRepository) GetByName(ctx context.Context, leagueID int64, name string) (division.Division, bool, error) {
	return r.getOne(ctx, qb.Eq("league_id", leagueID), qb.Expr("LOWER(name) = LOWER(?)", name))
}

func (r *DivisionRepository) getOne(ctx context.Context, conds ...qb.Condition) (division.Division, bool, error) {
	query, args, err := qb.Select("id", "name", "league_id", "level").From("divisions").
		Where(conds...).
		ToSQL()
	if err != nil {
		return division.Division{}, false, fmt.Errorf("build get division query: %w", err)
	}

	var row divisionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return division.Division{}, false, nil
		}
		return division.Division{}, false, mapError("get division", err)
	}
	return division.Division(row), true, nil
}

func (r *DivisionRepository) ListByLeague(ctx context.Context, leagueID int64) ([]division.Division, error) {
	query, args, err := qb.Select("id", "name", "league_id", "level").From("divisions").
		Where(qb.Eq("league_id", leagueID)).
		OrderBy("level", "name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list divisions query: %w", err)
	}

	var rows []divisionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select divisions", err)
	}

	out := make([]division.Division, 0, len(rows))
	for _, row := range rows {
		out = append(out, division.Division(row))
	}
	return out, nil
}

type seasonTableModel struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
}

type SeasonRepository struct {
	db *sqlx.DB
}

func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

func (r *SeasonRepository) Create(ctx context.Context, s season.Season) (season.Season, error) {
	query, args, err := qb.InsertInto("seasons").
		Columns("name", "start_date", "end_date").
		Values(s.Name, s.StartDate, s.EndDate).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return season.Season{}, fmt.Errorf("build insert season query: %w", err)
	}

	if err := r.db.GetContext(ctx, &s.ID, query, args...); err != nil {
		return season.Season{}, mapError("insert season", err)
	}
	return s, nil
}

func (r *SeasonRepository) GetByID(ctx context.Context, id int64) (season.Season, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *SeasonRepository) GetByName(ctx context.Context, name string) (season.Season, bool, error) {
	return r.getOne(ctx, qb.Expr("LOWER(name) = LOWER(?)", name))
}

func (r *SeasonRepository) getOne(ctx context.Context, cond qb.Condition) (season.Season, bool, error) {
	query, args, err := qb.Select("id", "name", "start_date", "end_date").From("seasons").
		Where(cond).
		ToSQL()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("build get season query: %w", err)
	}

	var row seasonTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Season{}, false, nil
		}
		return season.Season{}, false, mapError("get season", err)
	}
	return season.Season(row), true, nil
}

func (r *SeasonRepository) List(ctx context.Context) ([]season.Season, error) {
	query, args, err := qb.Select("id", "name", "start_date", "end_date").From("seasons").
		OrderBy("start_date DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list seasons query: %w", err)
	}

	var rows []seasonTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select seasons", err)
	}

	out := make([]season.Season, 0, len(rows))
	for _, row := range rows {
		out = append(out, season.Season(row))
	}
	return out, nil
}

type ageGroupTableModel struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type AgeGroupRepository struct {
	db *sqlx.DB
}

func NewAgeGroupRepository(db *sqlx.DB) *AgeGroupRepository {
	return &AgeGroupRepository{db: db}
}

func (r *AgeGroupRepository) GetByID(ctx context.Context, id int64) (agegroup.AgeGroup, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *AgeGroupRepository) GetByName(ctx context.Context, name string) (agegroup.AgeGroup, bool, error) {
	return r.getOne(ctx, qb.Expr("LOWER(name) = LOWER(?)", name))
}

func (r *AgeGroupRepository) getOne(ctx context.Context, cond qb.Condition) (agegroup.AgeGroup, bool, error) {
	query, args, err := qb.Select("id", "name").From("age_groups").Where(cond).ToSQL()
	if err != nil {
		return agegroup.AgeGroup{}, false, fmt.Errorf("build get age group query: %w", err)
	}

	var row ageGroupTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return agegroup.AgeGroup{}, false, nil
		}
		return agegroup.AgeGroup{}, false, mapError("get age group", err)
	}
	return agegroup.AgeGroup(row), true, nil
}

func (r *AgeGroupRepository) List(ctx context.Context) ([]agegroup.AgeGroup, error) {
	query, args, err := qb.Select("id", "name").From("age_groups").OrderBy("name").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list age groups query: %w", err)
	}

	var rows []ageGroupTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select age groups", err)
	}

	out := make([]agegroup.AgeGroup, 0, len(rows))
	for _, row := range rows {
		out = append(out, agegroup.AgeGroup(row))
	}
	return out, nil
}
