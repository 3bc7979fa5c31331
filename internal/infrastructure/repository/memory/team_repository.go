package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type TeamRepository struct {
	mu        sync.RWMutex
	nextID    int64
	rows      map[int64]team.Team
	ageGroups map[int64][]int64
	// names resolves club/league ids to display names for GetDetail.
	ClubNames   map[int64]string
	LeagueNames map[int64]string
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{
		rows:        make(map[int64]team.Team),
		ageGroups:   make(map[int64][]int64),
		ClubNames:   make(map[int64]string),
		LeagueNames: make(map[int64]string),
	}
}

func (r *TeamRepository) Create(_ context.Context, t team.Team, ageGroupIDs []int64) (team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.LeagueID == t.LeagueID && strings.EqualFold(existing.Name, t.Name) &&
			equalClub(existing.ClubID, t.ClubID) {
			return team.Team{}, fmt.Errorf("insert team: %w: name %s", usecase.ErrConflict, t.Name)
		}
	}

	r.nextID++
	t.ID = r.nextID
	r.rows[t.ID] = t
	if len(ageGroupIDs) > 0 {
		r.ageGroups[t.ID] = append([]int64(nil), ageGroupIDs...)
	}
	return t, nil
}

func equalClub(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *TeamRepository) GetByID(_ context.Context, id int64) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.rows[id]
	return t, ok, nil
}

func (r *TeamRepository) GetDetail(_ context.Context, id int64) (team.Detail, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.rows[id]
	if !ok {
		return team.Detail{}, false, nil
	}

	detail := team.Detail{Team: t, LeagueName: r.LeagueNames[t.LeagueID]}
	if t.ClubID != nil {
		detail.ClubName = r.ClubNames[*t.ClubID]
	}
	return detail, true, nil
}

func (r *TeamRepository) GetByNameAndLeague(_ context.Context, name string, leagueID int64) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.rows {
		if t.LeagueID == leagueID && strings.EqualFold(t.Name, name) {
			return t, true, nil
		}
	}
	return team.Team{}, false, nil
}

func (r *TeamRepository) List(_ context.Context, filter team.ListFilter) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]team.Team, 0, len(r.rows))
	for _, t := range r.rows {
		if filter.ClubID != nil && (t.ClubID == nil || *t.ClubID != *filter.ClubID) {
			continue
		}
		if filter.LeagueID != nil && t.LeagueID != *filter.LeagueID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *TeamRepository) Update(_ context.Context, t team.Team) (team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rows[t.ID]; !exists {
		return team.Team{}, fmt.Errorf("update team: no row for id %d", t.ID)
	}
	r.rows[t.ID] = t
	return t, nil
}

func (r *TeamRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, id)
	delete(r.ageGroups, id)
	return nil
}
