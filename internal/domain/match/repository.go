package match

import "context"

type Repository interface {
	Create(ctx context.Context, m Match) (Match, error)
	GetByID(ctx context.Context, id int64) (Match, bool, error)
	GetDetail(ctx context.Context, id int64) (Detail, bool, error)
	GetByExternalID(ctx context.Context, externalID string) (Match, bool, error)
	GetByKey(ctx context.Context, key Key) (Match, bool, error)
	List(ctx context.Context, filter Filter) ([]Detail, error)
	// Update succeeds only when the stored version equals expectedVersion;
	// a lost race reports a conflict the caller may retry.
	Update(ctx context.Context, m Match, expectedVersion int64) (Match, error)
	Delete(ctx context.Context, id int64) error
	// ListCompleted returns completed matches inside a standings scope.
	ListCompleted(ctx context.Context, scope Scope) ([]Match, error)

	GetTypeByName(ctx context.Context, name string) (Type, bool, error)
	ListTypes(ctx context.Context) ([]Type, error)
}

// Scope identifies one standings table.
type Scope struct {
	LeagueID   int64
	DivisionID int64
	SeasonID   int64
	AgeGroupID int64
}
