package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/matchtrack/matchtrack/internal/usecase"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mapError translates driver errors into the service-level sentinels so use
// cases never inspect pq codes.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%s: %w: %s", op, usecase.ErrConflict, pqErr.Constraint)
		case "foreign_key_violation", "check_violation", "not_null_violation":
			return fmt.Errorf("%s: %w: %s", op, usecase.ErrInvariant, pqErr.Constraint)
		case "serialization_failure", "deadlock_detected":
			return fmt.Errorf("%s: %w: %v", op, usecase.ErrTransient, err)
		}
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			// connection, resource and operator-intervention classes
			return fmt.Errorf("%s: %w: %v", op, usecase.ErrTransient, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
