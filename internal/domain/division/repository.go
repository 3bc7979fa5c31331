package division

import "context"

type Repository interface {
	Create(ctx context.Context, d Division) (Division, error)
	GetByID(ctx context.Context, id int64) (Division, bool, error)
	GetByName(ctx context.Context, leagueID int64, name string) (Division, bool, error)
	ListByLeague(ctx context.Context, leagueID int64) ([]Division, error)
}
