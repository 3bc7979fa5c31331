package season

import "context"

type Repository interface {
	Create(ctx context.Context, s Season) (Season, error)
	GetByID(ctx context.Context, id int64) (Season, bool, error)
	GetByName(ctx context.Context, name string) (Season, bool, error)
	List(ctx context.Context) ([]Season, error)
}
