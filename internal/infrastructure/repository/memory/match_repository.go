package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type MatchRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]match.Match
	types  map[int64]match.Type
	// name lookups feed the detail projections.
	TeamNames     map[int64]string
	SeasonNames   map[int64]string
	AgeGroupNames map[int64]string
	DivisionNames map[int64]string
	// DivisionLeague maps a division to its league for league filters.
	DivisionLeague map[int64]int64
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		rows:           make(map[int64]match.Match),
		types:          make(map[int64]match.Type),
		TeamNames:      make(map[int64]string),
		SeasonNames:    make(map[int64]string),
		AgeGroupNames:  make(map[int64]string),
		DivisionNames:  make(map[int64]string),
		DivisionLeague: make(map[int64]int64),
	}
}

// SeedTypes loads the match-type reference rows.
func (r *MatchRepository) SeedTypes(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		id := int64(len(r.types) + 1)
		r.types[id] = match.Type{ID: id, Name: name}
	}
}

func (r *MatchRepository) Create(_ context.Context, m match.Match) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if m.ExternalMatchID != "" && existing.ExternalMatchID == m.ExternalMatchID {
			return match.Match{}, fmt.Errorf("insert match: %w: external id %s", usecase.ErrConflict, m.ExternalMatchID)
		}
		if m.ExternalMatchID == "" && existing.ExternalMatchID == "" && existing.Key() == m.Key() {
			return match.Match{}, fmt.Errorf("insert match: %w: duplicate natural key", usecase.ErrConflict)
		}
	}

	r.nextID++
	m.ID = r.nextID
	m.Version = 1
	r.rows[m.ID] = m
	return m, nil
}

func (r *MatchRepository) GetByID(_ context.Context, id int64) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.rows[id]
	return m, ok, nil
}

func (r *MatchRepository) GetByExternalID(_ context.Context, externalID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.rows {
		if m.ExternalMatchID == externalID {
			return m, true, nil
		}
	}
	return match.Match{}, false, nil
}

func (r *MatchRepository) GetByKey(_ context.Context, key match.Key) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.rows {
		if m.Key() == key {
			return m, true, nil
		}
	}
	return match.Match{}, false, nil
}

func (r *MatchRepository) GetDetail(ctx context.Context, id int64) (match.Detail, bool, error) {
	m, ok, err := r.GetByID(ctx, id)
	if err != nil || !ok {
		return match.Detail{}, ok, err
	}
	return r.toDetail(m), true, nil
}

func (r *MatchRepository) toDetail(m match.Match) match.Detail {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return match.Detail{
		Match:         m,
		HomeTeamName:  r.TeamNames[m.HomeTeamID],
		AwayTeamName:  r.TeamNames[m.AwayTeamID],
		SeasonName:    r.SeasonNames[m.SeasonID],
		AgeGroupName:  r.AgeGroupNames[m.AgeGroupID],
		DivisionName:  r.DivisionNames[m.DivisionID],
		MatchTypeName: r.typeName(m.MatchTypeID),
	}
}

func (r *MatchRepository) typeName(id int64) string {
	if t, ok := r.types[id]; ok {
		return t.Name
	}
	return ""
}

func (r *MatchRepository) List(_ context.Context, filter match.Filter) ([]match.Detail, error) {
	r.mu.RLock()
	matches := make([]match.Match, 0, len(r.rows))
	for _, m := range r.rows {
		if filter.SeasonID != nil && m.SeasonID != *filter.SeasonID {
			continue
		}
		if filter.AgeGroupID != nil && m.AgeGroupID != *filter.AgeGroupID {
			continue
		}
		if filter.DivisionID != nil && m.DivisionID != *filter.DivisionID {
			continue
		}
		if filter.LeagueID != nil && r.DivisionLeague[m.DivisionID] != *filter.LeagueID {
			continue
		}
		if filter.TeamID != nil && m.HomeTeamID != *filter.TeamID && m.AwayTeamID != *filter.TeamID {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if filter.DateFrom != nil && m.MatchDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && m.MatchDate.After(*filter.DateTo) {
			continue
		}
		matches = append(matches, m)
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].MatchDate.Equal(matches[j].MatchDate) {
			return matches[i].MatchDate.After(matches[j].MatchDate)
		}
		return matches[i].ID > matches[j].ID
	})
	matches = paginate(matches, filter.Limit, filter.Offset)

	out := make([]match.Detail, 0, len(matches))
	for _, m := range matches {
		out = append(out, r.toDetail(m))
	}
	return out, nil
}

func (r *MatchRepository) Update(_ context.Context, m match.Match, expectedVersion int64) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rows[m.ID]
	if !ok {
		return match.Match{}, fmt.Errorf("update match: %w: match %d", usecase.ErrNotFound, m.ID)
	}
	if existing.Version != expectedVersion {
		return match.Match{}, fmt.Errorf("update match: %w: version %d is stale", usecase.ErrConflict, expectedVersion)
	}

	m.Version = expectedVersion + 1
	r.rows[m.ID] = m
	return m, nil
}

func (r *MatchRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *MatchRepository) ListCompleted(_ context.Context, scope match.Scope) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0)
	for _, m := range r.rows {
		if m.Status != match.StatusCompleted {
			continue
		}
		if m.DivisionID != scope.DivisionID || m.SeasonID != scope.SeasonID || m.AgeGroupID != scope.AgeGroupID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MatchRepository) GetTypeByName(_ context.Context, name string) (match.Type, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.types {
		if strings.EqualFold(t.Name, name) {
			return t, true, nil
		}
	}
	return match.Type{}, false, nil
}

func (r *MatchRepository) ListTypes(_ context.Context) ([]match.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
