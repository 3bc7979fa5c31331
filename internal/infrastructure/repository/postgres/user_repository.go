package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/matchtrack/matchtrack/internal/domain/user"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func profileInsertColumns() []string {
	return []string{
		"id", "username", "email", "phone_number", "role", "team_id", "club_id",
		"display_name", "player_number", "positions", "assigned_age_group_id",
		"invited_via_code", "created_at", "updated_at",
	}
}

func profileInsertValues(p user.Profile) []any {
	var playerNumber sql.NullInt64
	if p.PlayerNumber != nil {
		playerNumber = sql.NullInt64{Int64: int64(*p.PlayerNumber), Valid: true}
	}
	return []any{
		p.ID, p.Username, p.Email, ptrNullString(p.PhoneNumber), p.Role.String(),
		ptrNullInt64(p.TeamID), ptrNullInt64(p.ClubID), ptrNullString(p.DisplayName),
		playerNumber, pq.StringArray(p.Positions), ptrNullInt64(p.AssignedAgeGroupID),
		ptrNullString(p.InvitedViaCode), p.CreatedAt, p.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, p user.Profile) (user.Profile, error) {
	query, args, err := qb.InsertInto("profiles").
		Columns(profileInsertColumns()...).
		Values(profileInsertValues(p)...).
		ToSQL()
	if err != nil {
		return user.Profile{}, fmt.Errorf("build insert profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return user.Profile{}, mapError("insert profile", err)
	}
	return p, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (user.Profile, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (user.Profile, bool, error) {
	return r.getOne(ctx, qb.Expr("LOWER(username) = LOWER(?)", username))
}

func (r *UserRepository) getOne(ctx context.Context, cond qb.Condition) (user.Profile, bool, error) {
	query, args, err := qb.Select("*").From("profiles").Where(cond).ToSQL()
	if err != nil {
		return user.Profile{}, false, fmt.Errorf("build get profile query: %w", err)
	}

	var row profileTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.Profile{}, false, nil
		}
		return user.Profile{}, false, mapError("get profile", err)
	}
	return row.toDomain(), true, nil
}

func (r *UserRepository) Update(ctx context.Context, p user.Profile) (user.Profile, error) {
	var playerNumber sql.NullInt64
	if p.PlayerNumber != nil {
		playerNumber = sql.NullInt64{Int64: int64(*p.PlayerNumber), Valid: true}
	}

	query, args, err := qb.Update("profiles").
		Set("email", p.Email).
		Set("phone_number", ptrNullString(p.PhoneNumber)).
		Set("role", p.Role.String()).
		Set("team_id", ptrNullInt64(p.TeamID)).
		Set("club_id", ptrNullInt64(p.ClubID)).
		Set("display_name", ptrNullString(p.DisplayName)).
		Set("player_number", playerNumber).
		Set("positions", pq.StringArray(p.Positions)).
		Set("assigned_age_group_id", ptrNullInt64(p.AssignedAgeGroupID)).
		Set("updated_at", p.UpdatedAt).
		Where(qb.Eq("id", p.ID)).
		ToSQL()
	if err != nil {
		return user.Profile{}, fmt.Errorf("build update profile query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.Profile{}, mapError("update profile", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return user.Profile{}, fmt.Errorf("update profile: no row for id %s", p.ID)
	}
	return p, nil
}

func (r *UserRepository) ManagerTeamIDs(ctx context.Context, userID string) ([]int64, error) {
	query, args, err := qb.Select("team_id").From("manager_teams").
		Where(qb.Eq("user_id", userID)).
		OrderBy("team_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build manager teams query: %w", err)
	}

	var teamIDs []int64
	if err := r.db.SelectContext(ctx, &teamIDs, query, args...); err != nil {
		return nil, mapError("select manager teams", err)
	}
	return teamIDs, nil
}

func (r *UserRepository) AssignManagerTeam(ctx context.Context, userID string, teamID int64) error {
	query, args, err := qb.InsertInto("manager_teams").
		Columns("user_id", "team_id").
		Values(userID, teamID).
		Suffix("ON CONFLICT (user_id, team_id) DO NOTHING").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build assign manager team query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("assign manager team", err)
	}
	return nil
}
