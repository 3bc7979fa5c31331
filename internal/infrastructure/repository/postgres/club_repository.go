package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchtrack/matchtrack/internal/domain/club"
	qb "github.com/matchtrack/matchtrack/internal/platform/querybuilder"
)

type clubTableModel struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	City        sql.NullString `db:"city"`
	Website     sql.NullString `db:"website"`
	Description sql.NullString `db:"description"`
	ProAcademy  bool           `db:"pro_academy"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (m clubTableModel) toDomain() club.Club {
	return club.Club{
		ID:          m.ID,
		Name:        m.Name,
		City:        m.City.String,
		Website:     m.Website.String,
		Description: m.Description.String,
		ProAcademy:  m.ProAcademy,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type ClubRepository struct {
	db *sqlx.DB
}

func NewClubRepository(db *sqlx.DB) *ClubRepository {
	return &ClubRepository{db: db}
}

func (r *ClubRepository) Create(ctx context.Context, c club.Club) (club.Club, error) {
	query, args, err := qb.InsertInto("clubs").
		Columns("name", "city", "website", "description", "pro_academy", "is_active", "created_at", "updated_at").
		Values(c.Name, ptrNullString(c.City), ptrNullString(c.Website), ptrNullString(c.Description),
			c.ProAcademy, c.IsActive, c.CreatedAt, c.UpdatedAt).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return club.Club{}, fmt.Errorf("build insert club query: %w", err)
	}

	if err := r.db.GetContext(ctx, &c.ID, query, args...); err != nil {
		return club.Club{}, mapError("insert club", err)
	}
	return c, nil
}

func (r *ClubRepository) GetByID(ctx context.Context, id int64) (club.Club, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *ClubRepository) GetByName(ctx context.Context, name string) (club.Club, bool, error) {
	return r.getOne(ctx, qb.Expr("LOWER(name) = LOWER(?)", name))
}

func (r *ClubRepository) getOne(ctx context.Context, cond qb.Condition) (club.Club, bool, error) {
	query, args, err := qb.Select("*").From("clubs").Where(cond).ToSQL()
	if err != nil {
		return club.Club{}, false, fmt.Errorf("build get club query: %w", err)
	}

	var row clubTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return club.Club{}, false, nil
		}
		return club.Club{}, false, mapError("get club", err)
	}
	return row.toDomain(), true, nil
}

func (r *ClubRepository) List(ctx context.Context, filter club.ListFilter) ([]club.Club, error) {
	builder := qb.Select("*").From("clubs").OrderBy("name")
	if !filter.IncludeInactive {
		builder = builder.Where(qb.Eq("is_active", true))
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit).Offset(filter.Offset)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list clubs query: %w", err)
	}

	var rows []clubTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("select clubs", err)
	}

	out := make([]club.Club, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ClubRepository) Update(ctx context.Context, c club.Club) (club.Club, error) {
	query, args, err := qb.Update("clubs").
		Set("name", c.Name).
		Set("city", ptrNullString(c.City)).
		Set("website", ptrNullString(c.Website)).
		Set("description", ptrNullString(c.Description)).
		Set("pro_academy", c.ProAcademy).
		Set("updated_at", c.UpdatedAt).
		Where(qb.Eq("id", c.ID)).
		ToSQL()
	if err != nil {
		return club.Club{}, fmt.Errorf("build update club query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return club.Club{}, mapError("update club", err)
	}
	return c, nil
}

func (r *ClubRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query, args, err := qb.Update("clubs").
		Set("is_active", active).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set club active query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return mapError("set club active", err)
	}
	return nil
}
