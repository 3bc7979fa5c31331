package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/matchtrack/matchtrack/internal/domain/agegroup"
	"github.com/matchtrack/matchtrack/internal/domain/division"
	"github.com/matchtrack/matchtrack/internal/domain/league"
	"github.com/matchtrack/matchtrack/internal/domain/season"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type LeagueRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]league.League
}

func NewLeagueRepository() *LeagueRepository {
	return &LeagueRepository{rows: make(map[int64]league.League)}
}

func (r *LeagueRepository) Create(_ context.Context, l league.League) (league.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if strings.EqualFold(existing.Name, l.Name) {
			return league.League{}, fmt.Errorf("insert league: %w: name %s", usecase.ErrConflict, l.Name)
		}
	}
	r.nextID++
	l.ID = r.nextID
	r.rows[l.ID] = l
	return l, nil
}

func (r *LeagueRepository) GetByID(_ context.Context, id int64) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.rows[id]
	return l, ok, nil
}

func (r *LeagueRepository) GetByName(_ context.Context, name string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.rows {
		if strings.EqualFold(l.Name, name) {
			return l, true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]league.League, 0, len(r.rows))
	for _, l := range r.rows {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type DivisionRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]division.Division
}

func NewDivisionRepository() *DivisionRepository {
	return &DivisionRepository{rows: make(map[int64]division.Division)}
}

func (r *DivisionRepository) Create(_ context.Context, d division.Division) (division.Division, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if existing.LeagueID == d.LeagueID && strings.EqualFold(existing.Name, d.Name) {
			return division.Division{}, fmt.Errorf("insert division: %w: name %s", usecase.ErrConflict, d.Name)
		}
	}
	r.nextID++
	d.ID = r.nextID
	r.rows[d.ID] = d
	return d, nil
}

func (r *DivisionRepository) GetByID(_ context.Context, id int64) (division.Division, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.rows[id]
	return d, ok, nil
}

func (r *DivisionRepository) GetByName(_ context.Context, leagueID int64, name string) (division.Division, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.rows {
		if d.LeagueID == leagueID && strings.EqualFold(d.Name, name) {
			return d, true, nil
		}
	}
	return division.Division{}, false, nil
}

func (r *DivisionRepository) ListByLeague(_ context.Context, leagueID int64) ([]division.Division, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]division.Division, 0)
	for _, d := range r.rows {
		if d.LeagueID == leagueID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type SeasonRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]season.Season
}

func NewSeasonRepository() *SeasonRepository {
	return &SeasonRepository{rows: make(map[int64]season.Season)}
}

func (r *SeasonRepository) Create(_ context.Context, s season.Season) (season.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rows {
		if strings.EqualFold(existing.Name, s.Name) {
			return season.Season{}, fmt.Errorf("insert season: %w: name %s", usecase.ErrConflict, s.Name)
		}
	}
	r.nextID++
	s.ID = r.nextID
	r.rows[s.ID] = s
	return s, nil
}

func (r *SeasonRepository) GetByID(_ context.Context, id int64) (season.Season, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rows[id]
	return s, ok, nil
}

func (r *SeasonRepository) GetByName(_ context.Context, name string) (season.Season, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.rows {
		if strings.EqualFold(s.Name, name) {
			return s, true, nil
		}
	}
	return season.Season{}, false, nil
}

func (r *SeasonRepository) List(_ context.Context) ([]season.Season, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]season.Season, 0, len(r.rows))
	for _, s := range r.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

type AgeGroupRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]agegroup.AgeGroup
}

func NewAgeGroupRepository() *AgeGroupRepository {
	return &AgeGroupRepository{rows: make(map[int64]agegroup.AgeGroup)}
}

// Seed loads reference rows; tests call it instead of migrations.
func (r *AgeGroupRepository) Seed(groups ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range groups {
		r.nextID++
		r.rows[r.nextID] = agegroup.AgeGroup{ID: r.nextID, Name: name}
	}
}

func (r *AgeGroupRepository) GetByID(_ context.Context, id int64) (agegroup.AgeGroup, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rows[id]
	return a, ok, nil
}

func (r *AgeGroupRepository) GetByName(_ context.Context, name string) (agegroup.AgeGroup, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.rows {
		if strings.EqualFold(a.Name, name) {
			return a, true, nil
		}
	}
	return agegroup.AgeGroup{}, false, nil
}

func (r *AgeGroupRepository) List(_ context.Context) ([]agegroup.AgeGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]agegroup.AgeGroup, 0, len(r.rows))
	for _, a := range r.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
