package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

// UserRepository is the in-memory profile store for tests and dev mode.
type UserRepository struct {
	mu           sync.RWMutex
	profiles     map[string]user.Profile
	managerTeams map[string]map[int64]struct{}
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		profiles:     make(map[string]user.Profile),
		managerTeams: make(map[string]map[int64]struct{}),
	}
}

func (r *UserRepository) Create(_ context.Context, p user.Profile) (user.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.ID]; exists {
		return user.Profile{}, fmt.Errorf("insert profile: %w: id %s", usecase.ErrConflict, p.ID)
	}
	for _, existing := range r.profiles {
		if strings.EqualFold(existing.Username, p.Username) {
			return user.Profile{}, fmt.Errorf("insert profile: %w: username %s", usecase.ErrConflict, p.Username)
		}
	}

	r.profiles[p.ID] = p
	return p, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (user.Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	return p, ok, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (user.Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if strings.EqualFold(p.Username, username) {
			return p, true, nil
		}
	}
	return user.Profile{}, false, nil
}

func (r *UserRepository) Update(_ context.Context, p user.Profile) (user.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.ID]; !exists {
		return user.Profile{}, fmt.Errorf("update profile: no row for id %s", p.ID)
	}
	r.profiles[p.ID] = p
	return p, nil
}

func (r *UserRepository) ManagerTeamIDs(_ context.Context, userID string) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teams := r.managerTeams[userID]
	out := make([]int64, 0, len(teams))
	for teamID := range teams {
		out = append(out, teamID)
	}
	return out, nil
}

func (r *UserRepository) AssignManagerTeam(_ context.Context, userID string, teamID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.managerTeams[userID] == nil {
		r.managerTeams[userID] = make(map[int64]struct{})
	}
	r.managerTeams[userID][teamID] = struct{}{}
	return nil
}

// SessionRepository is the in-memory refresh-session store.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]user.Session
	byHash   map[string]string
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]user.Session),
		byHash:   make(map[string]string),
	}
}

func (r *SessionRepository) Create(_ context.Context, s user.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("insert session: %w: id %s", usecase.ErrConflict, s.ID)
	}
	r.sessions[s.ID] = s
	r.byHash[s.RefreshHash] = s.ID
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (user.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	return s, ok, nil
}

func (r *SessionRepository) GetByRefreshHash(_ context.Context, hash string) (user.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHash[hash]
	if !ok {
		return user.Session{}, false, nil
	}
	return r.sessions[id], true, nil
}

func (r *SessionRepository) Rotate(_ context.Context, oldID string, next user.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.sessions[oldID]
	if !ok || old.RotatedAt != nil || old.RevokedAt != nil {
		return fmt.Errorf("close session: row %s already rotated or revoked", oldID)
	}

	now := next.CreatedAt
	old.RotatedAt = &now
	r.sessions[oldID] = old
	r.sessions[next.ID] = next
	r.byHash[next.RefreshHash] = next.ID
	return nil
}

func (r *SessionRepository) RevokeFamily(_ context.Context, familyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for id, s := range r.sessions {
		if s.FamilyID == familyID && s.RevokedAt == nil {
			revokedAt := now
			s.RevokedAt = &revokedAt
			r.sessions[id] = s
		}
	}
	return nil
}
