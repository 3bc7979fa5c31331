package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/playerhistory"
)

type PlayerHistoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]playerhistory.Entry
}

func NewPlayerHistoryRepository() *PlayerHistoryRepository {
	return &PlayerHistoryRepository{rows: make(map[int64]playerhistory.Entry)}
}

func (r *PlayerHistoryRepository) Upsert(_ context.Context, e playerhistory.Entry) (playerhistory.Entry, error) {
	if err := e.Validate(); err != nil {
		return playerhistory.Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if e.IsCurrent {
		for id, existing := range r.rows {
			if existing.PlayerID == e.PlayerID && existing.IsCurrent {
				existing.IsCurrent = false
				existing.UpdatedAt = now
				r.rows[id] = existing
			}
		}
	}

	for id, existing := range r.rows {
		if existing.PlayerID == e.PlayerID && existing.TeamID == e.TeamID && existing.SeasonID == e.SeasonID {
			e.ID = id
			e.CreatedAt = existing.CreatedAt
			e.UpdatedAt = now
			r.rows[id] = e
			return e, nil
		}
	}

	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = now
	e.UpdatedAt = now
	r.rows[e.ID] = e
	return e, nil
}

func (r *PlayerHistoryRepository) ListByPlayer(_ context.Context, playerID string) ([]playerhistory.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]playerhistory.Entry, 0)
	for _, e := range r.rows {
		if e.PlayerID == playerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeasonID != out[j].SeasonID {
			return out[i].SeasonID > out[j].SeasonID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *PlayerHistoryRepository) GetCurrent(_ context.Context, playerID string) (playerhistory.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.rows {
		if e.PlayerID == playerID && e.IsCurrent {
			return e, true, nil
		}
	}
	return playerhistory.Entry{}, false, nil
}
