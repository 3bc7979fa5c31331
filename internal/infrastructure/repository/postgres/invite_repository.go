package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchtrack/matchtrack/internal/domain/invite"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type inviteTableModel struct {
	ID          int64         `db:"id"`
	Code        string        `db:"code"`
	InviteType  string        `db:"invite_type"`
	TeamID      sql.NullInt64 `db:"team_id"`
	ClubID      sql.NullInt64 `db:"club_id"`
	AgeGroupID  sql.NullInt64 `db:"age_group_id"`
	MaxUses     int           `db:"max_uses"`
	CurrentUses int           `db:"current_uses"`
	ExpiresAt   time.Time     `db:"expires_at"`
	Status      string        `db:"status"`
	CreatedBy   string        `db:"created_by"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (m inviteTableModel) toDomain() invite.Invitation {
	return invite.Invitation{
		ID:          m.ID,
		Code:        m.Code,
		InviteType:  invite.Type(m.InviteType),
		TeamID:      nullInt64Ptr(m.TeamID),
		ClubID:      nullInt64Ptr(m.ClubID),
		AgeGroupID:  nullInt64Ptr(m.AgeGroupID),
		MaxUses:     m.MaxUses,
		CurrentUses: m.CurrentUses,
		ExpiresAt:   m.ExpiresAt,
		Status:      invite.Status(m.Status),
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type InviteRepository struct {
	db *sqlx.DB
}

func NewInviteRepository(db *sqlx.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func (r *InviteRepository) Create(ctx context.Context, i invite.Invitation) (invite.Invitation, error) {
	query, args, err := qb.InsertInto("invitations").
		Columns("code", "invite_type", "team_id", "club_id", "age_group_id",
			"max_uses", "current_uses", "expires_at", "status", "created_by", "created_at", "updated_at").
		Values(i.Code, string(i.InviteType), ptrNullInt64(i.TeamID), ptrNullInt64(i.ClubID), ptrNullInt64(i.AgeGroupID),
			i.MaxUses, i.CurrentUses, i.ExpiresAt, string(i.Status), i.CreatedBy, i.CreatedAt, i.UpdatedAt).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return invite.Invitation{}, fmt.Errorf("build insert invite query: %w", err)
	}

	if err := r.db.GetContext(ctx, &i.ID, query, args...); err != nil {
		return invite.Invitation{}, mapError("insert invite", err)
	}
	return i, nil
}

func (r *InviteRepository) GetByCode(ctx context.Context, code string) (invite.Invitation, bool, error) {
	return r.getOne(ctx, qb.Eq("code", code))
}

func (r *InviteRepository) GetByID(ctx context.Context, id int64) (invite.Invitation, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *InviteRepository) getOne(ctx context.Context, cond qb.Condition) (invite.Invitation, bool, error) {
	query, args, err := qb.Select("*").From("invitations").Where(cond).ToSQL()
	if err != nil {
		return invite.Invitation{}, false, fmt.Errorf("build get invite query: %w", err)
	}

	var row inviteTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return invite.Invitation{}, false, nil
		}
		return invite.Invitation{}, false, mapError("get invite", err)
	}
	return row.toDomain(), true, nil
}

func (r *InviteRepository) List(ctx context.Context, filter invite.ListFilter) ([]invite.Invitation, error) {
	builder := qb.Select("*").From("invitations").OrderBy("created_at DESC")
	if filter.CreatedBy != "" {
		builder = builder.Where(qb.Eq("created_by", filter.CreatedBy))
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit).Offset(filter.Offset)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list invites query: %w", err)
	}

	var rows []inviteTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select invites", err)
	}

	out := make([]invite.Invitation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *InviteRepository) Cancel(ctx context.Context, id int64) error {
	query, args, err := qb.Update("invitations").
		Set("status", string(invite.StatusCancelled)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", id),
			qb.Eq("status", string(invite.StatusPending)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build cancel invite query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError("cancel invite", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("cancel invite: %w: invite %d is not pending", usecase.ErrConflict, id)
	}
	return nil
}

// Consume increments the use counter and inserts the profile in one
// transaction. The increment carries all the guards in its WHERE clause, so
// losing a race shows up as zero rows, never as an oversold invite.
func (r *InviteRepository) Consume(ctx context.Context, code string, profile user.Profile) (invite.Invitation, user.Profile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return invite.Invitation{}, user.Profile{}, mapError("begin consume invite", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := qb.Update("invitations").
		SetExpr("current_uses", "current_uses + 1").
		SetExpr("status", "CASE WHEN current_uses + 1 >= max_uses THEN 'consumed' ELSE status END").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("code", code),
			qb.Eq("status", string(invite.StatusPending)),
			qb.Expr("current_uses < max_uses"),
			qb.Expr("expires_at > NOW()"),
		).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return invite.Invitation{}, user.Profile{}, fmt.Errorf("build consume invite query: %w", err)
	}

	var row inviteTableModel
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			// Re-read outside the guards to tell terminal states from races.
			return r.classifyConsumeFailure(ctx, code)
		}
		return invite.Invitation{}, user.Profile{}, mapError("consume invite", err)
	}

	insertQuery, insertArgs, err := qb.InsertInto("profiles").
		Columns(profileInsertColumns()...).
		Values(profileInsertValues(profile)...).
		ToSQL()
	if err != nil {
		return invite.Invitation{}, user.Profile{}, fmt.Errorf("build insert profile query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		return invite.Invitation{}, user.Profile{}, mapError("insert invited profile", err)
	}

	if err := tx.Commit(); err != nil {
		return invite.Invitation{}, user.Profile{}, mapError("commit consume invite", err)
	}
	return row.toDomain(), profile, nil
}

func (r *InviteRepository) classifyConsumeFailure(ctx context.Context, code string) (invite.Invitation, user.Profile, error) {
	current, exists, err := r.GetByCode(ctx, code)
	if err != nil {
		return invite.Invitation{}, user.Profile{}, err
	}
	if !exists {
		return invite.Invitation{}, user.Profile{}, fmt.Errorf("consume invite: %w: code not found", usecase.ErrNotFound)
	}
	if err := current.Consumable(time.Now().UTC()); err != nil {
		return invite.Invitation{}, user.Profile{}, err
	}
	// Still consumable on re-read: we lost a concurrent increment race.
	return invite.Invitation{}, user.Profile{}, invite.ErrUnavailable
}
