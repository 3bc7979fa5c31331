package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchtrack/matchtrack/internal/domain/user"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s user.Session) error {
	query, args, err := qb.InsertInto("sessions").
		Columns("id", "user_id", "family_id", "refresh_hash", "access_jti", "expires_at", "created_at").
		Values(s.ID, s.UserID, s.FamilyID, s.RefreshHash, s.AccessJTI, s.ExpiresAt, s.CreatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert session query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("insert session", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (user.Session, bool, error) {
	query, args, err := qb.Select("*").From("sessions").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return user.Session{}, false, fmt.Errorf("build get session query: %w", err)
	}

	var row sessionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.Session{}, false, nil
		}
		return user.Session{}, false, mapError("get session", err)
	}
	return row.toDomain(), true, nil
}

func (r *SessionRepository) GetByRefreshHash(ctx context.Context, hash string) (user.Session, bool, error) {
	query, args, err := qb.Select("*").From("sessions").
		Where(qb.Eq("refresh_hash", hash)).
		ToSQL()
	if err != nil {
		return user.Session{}, false, fmt.Errorf("build get session query: %w", err)
	}

	var row sessionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.Session{}, false, nil
		}
		return user.Session{}, false, mapError("get session", err)
	}
	return row.toDomain(), true, nil
}

// Rotate closes the old row and inserts its successor atomically. The
// conditional close means two concurrent rotations of the same token leave
// exactly one successor.
func (r *SessionRepository) Rotate(ctx context.Context, oldID string, next user.Session) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("begin rotate session", err)
	}
	defer func() { _ = tx.Rollback() }()

	closeQuery, closeArgs, err := qb.Update("sessions").
		SetExpr("rotated_at", "NOW()").
		Where(
			qb.Eq("id", oldID),
			qb.IsNull("rotated_at"),
			qb.IsNull("revoked_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build close session query: %w", err)
	}

	result, err := tx.ExecContext(ctx, closeQuery, closeArgs...)
	if err != nil {
		return mapError("close session", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("close session: row %s already rotated or revoked", oldID)
	}

	insertQuery, insertArgs, err := qb.InsertInto("sessions").
		Columns("id", "user_id", "family_id", "refresh_hash", "access_jti", "expires_at", "created_at").
		Values(next.ID, next.UserID, next.FamilyID, next.RefreshHash, next.AccessJTI, next.ExpiresAt, next.CreatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert session query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		return mapError("insert rotated session", err)
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit rotate session", err)
	}
	return nil
}

func (r *SessionRepository) RevokeFamily(ctx context.Context, familyID string) error {
	query, args, err := qb.Update("sessions").
		SetExpr("revoked_at", "NOW()").
		Where(
			qb.Eq("family_id", familyID),
			qb.IsNull("revoked_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build revoke family query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("revoke session family", err)
	}
	return nil
}
