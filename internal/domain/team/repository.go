package team

import "context"

type Repository interface {
	// Create inserts the team and its age-group mappings in one transaction.
	Create(ctx context.Context, t Team, ageGroupIDs []int64) (Team, error)
	GetByID(ctx context.Context, id int64) (Team, bool, error)
	GetDetail(ctx context.Context, id int64) (Detail, bool, error)
	GetByNameAndLeague(ctx context.Context, name string, leagueID int64) (Team, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Team, error)
	Update(ctx context.Context, t Team) (Team, error)
	Delete(ctx context.Context, id int64) error
}
