package club

import "context"

type Repository interface {
	Create(ctx context.Context, c Club) (Club, error)
	GetByID(ctx context.Context, id int64) (Club, bool, error)
	GetByName(ctx context.Context, name string) (Club, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Club, error)
	Update(ctx context.Context, c Club) (Club, error)
	// SetActive soft-deletes (false) or restores (true) a club.
	SetActive(ctx context.Context, id int64, active bool) error
}
