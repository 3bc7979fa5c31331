package invite

import (
	"context"

	"github.com/matchtrack/matchtrack/internal/domain/user"
)

type Repository interface {
	Create(ctx context.Context, i Invitation) (Invitation, error)
	GetByCode(ctx context.Context, code string) (Invitation, bool, error)
	GetByID(ctx context.Context, id int64) (Invitation, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Invitation, error)
	// Cancel flips a pending invite to cancelled; a non-pending invite is a
	// conflict.
	Cancel(ctx context.Context, id int64) error

	// Consume performs the conditional use-increment and the new-profile
	// insert in one transaction: the increment only succeeds while the row is
	// pending, under max_uses and unexpired. Losing a race surfaces
	// ErrUnavailable; terminal states surface their matching sentinel.
	Consume(ctx context.Context, code string, profile user.Profile) (Invitation, user.Profile, error)
}
