package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/matchtrack/matchtrack/internal/domain/club"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type ClubRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]club.Club
}

func NewClubRepository() *ClubRepository {
	return &ClubRepository{rows: make(map[int64]club.Club)}
}

func (r *ClubRepository) Create(_ context.Context, c club.Club) (club.Club, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if strings.EqualFold(existing.Name, c.Name) {
			return club.Club{}, fmt.Errorf("insert club: %w: name %s", usecase.ErrConflict, c.Name)
		}
	}
	r.nextID++
	c.ID = r.nextID
	r.rows[c.ID] = c
	return c, nil
}

func (r *ClubRepository) GetByID(_ context.Context, id int64) (club.Club, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.rows[id]
	return c, ok, nil
}

func (r *ClubRepository) GetByName(_ context.Context, name string) (club.Club, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.rows {
		if strings.EqualFold(c.Name, name) {
			return c, true, nil
		}
	}
	return club.Club{}, false, nil
}

func (r *ClubRepository) List(_ context.Context, filter club.ListFilter) ([]club.Club, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]club.Club, 0, len(r.rows))
	for _, c := range r.rows {
		if !filter.IncludeInactive && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *ClubRepository) Update(_ context.Context, c club.Club) (club.Club, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rows[c.ID]; !exists {
		return club.Club{}, fmt.Errorf("update club: no row for id %d", c.ID)
	}
	r.rows[c.ID] = c
	return c, nil
}

func (r *ClubRepository) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.rows[id]
	if !exists {
		return fmt.Errorf("set club active: no row for id %d", id)
	}
	c.IsActive = active
	r.rows[id] = c
	return nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
