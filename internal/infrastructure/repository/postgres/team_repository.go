package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchtrack/matchtrack/internal/domain/team"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
)

type teamTableModel struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	City        sql.NullString `db:"city"`
	ClubID      sql.NullInt64  `db:"club_id"`
	LeagueID    int64          `db:"league_id"`
	AcademyTeam bool           `db:"academy_team"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:          m.ID,
		Name:        m.Name,
		City:        m.City.String,
		ClubID:      nullInt64Ptr(m.ClubID),
		LeagueID:    m.LeagueID,
		AcademyTeam: m.AcademyTeam,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type teamDetailModel struct {
	teamTableModel
	ClubName   sql.NullString `db:"club_name"`
	LeagueName string         `db:"league_name"`
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create inserts the team and its age-group rows in one transaction.
func (r *TeamRepository) Create(ctx context.Context, t team.Team, ageGroupIDs []int64) (team.Team, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return team.Team{}, mapError("begin create team", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := qb.InsertInto("teams").
		Columns("name", "city", "club_id", "league_id", "academy_team", "created_at", "updated_at").
		Values(t.Name, ptrNullString(t.City), ptrNullInt64(t.ClubID), t.LeagueID, t.AcademyTeam, t.CreatedAt, t.UpdatedAt).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return team.Team{}, fmt.Errorf("build insert team query: %w", err)
	}

	if err := tx.GetContext(ctx, &t.ID, query, args...); err != nil {
		return team.Team{}, mapError("insert team", err)
	}

	if len(ageGroupIDs) > 0 {
		builder := qb.InsertInto("team_age_groups").Columns("team_id", "age_group_id")
		for _, ageGroupID := range ageGroupIDs {
			builder = builder.Values(t.ID, ageGroupID)
		}
		query, args, err := builder.Suffix("ON CONFLICT (team_id, age_group_id) DO NOTHING").ToSQL()
		if err != nil {
			return team.Team{}, fmt.Errorf("build insert team age groups query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return team.Team{}, mapError("insert team age groups", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return team.Team{}, mapError("commit create team", err)
	}
	return t, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (team.Team, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *TeamRepository) GetByNameAndLeague(ctx context.Context, name string, leagueID int64) (team.Team, bool, error) {
	return r.getOne(ctx, qb.Expr("LOWER(name) = LOWER(?)", name), qb.Eq("league_id", leagueID))
}

func (r *TeamRepository) getOne(ctx context.Context, conds ...qb.Condition) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").Where(conds...).ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build get team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, mapError("get team", err)
	}
	return row.toDomain(), true, nil
}

func (r *TeamRepository) GetDetail(ctx context.Context, id int64) (team.Detail, bool, error) {
	query, args, err := qb.Select(
		"t.id", "t.name", "t.city", "t.club_id", "t.league_id", "t.academy_team",
		"t.created_at", "t.updated_at",
		"c.name AS club_name", "l.name AS league_name",
	).
		From("teams t").
		Join("LEFT JOIN clubs c ON c.id = t.club_id").
		Join("JOIN leagues l ON l.id = t.league_id").
		Where(qb.Eq("t.id", id)).
		ToSQL()
	if err != nil {
		return team.Detail{}, false, fmt.Errorf("build get team detail query: %w", err)
	}

	var row teamDetailModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Detail{}, false, nil
		}
		return team.Detail{}, false, mapError("get team detail", err)
	}

	return team.Detail{
		Team:       row.toDomain(),
		ClubName:   row.ClubName.String,
		LeagueName: row.LeagueName,
	}, true, nil
}

func (r *TeamRepository) List(ctx context.Context, filter team.ListFilter) ([]team.Team, error) {
	builder := qb.Select("*").From("teams").OrderBy("name")
	if filter.ClubID != nil {
		builder = builder.Where(qb.Eq("club_id", *filter.ClubID))
	}
	if filter.LeagueID != nil {
		builder = builder.Where(qb.Eq("league_id", *filter.LeagueID))
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit).Offset(filter.Offset)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select teams", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TeamRepository) Update(ctx context.Context, t team.Team) (team.Team, error) {
	query, args, err := qb.Update("teams").
		Set("name", t.Name).
		Set("city", ptrNullString(t.City)).
		Set("academy_team", t.AcademyTeam).
		Set("updated_at", t.UpdatedAt).
		Where(qb.Eq("id", t.ID)).
		ToSQL()
	if err != nil {
		return team.Team{}, fmt.Errorf("build update team query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return team.Team{}, mapError("update team", err)
	}
	return t, nil
}

func (r *TeamRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := qb.DeleteFrom("teams").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete team query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("delete team", err)
	}
	return nil
}
