package league

import "context"

type Repository interface {
	Create(ctx context.Context, l League) (League, error)
	GetByID(ctx context.Context, id int64) (League, bool, error)
	GetByName(ctx context.Context, name string) (League, bool, error)
	List(ctx context.Context) ([]League, error)
}
