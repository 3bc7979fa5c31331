package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SystemRepository backs health checks: connectivity plus the migration
// state golang-migrate records in schema_migrations.
type SystemRepository struct {
	db *sqlx.DB
}

func NewSystemRepository(db *sqlx.DB) *SystemRepository {
	return &SystemRepository{db: db}
}

func (r *SystemRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SystemRepository) SchemaVersion(ctx context.Context) (uint, bool, error) {
	var row struct {
		Version uint `db:"version"`
		Dirty   bool `db:"dirty"`
	}
	if err := r.db.GetContext(ctx, &row, "SELECT version, dirty FROM schema_migrations LIMIT 1"); err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, mapError("get schema version", err)
	}
	return row.Version, row.Dirty, nil
}
