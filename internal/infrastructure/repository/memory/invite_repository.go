package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/invite"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

// InviteRepository mirrors the conditional-consume semantics of the SQL
// implementation under one mutex, so concurrency tests exercise the same
// guarantees.
type InviteRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]invite.Invitation
	byCode map[string]int64
	users  *UserRepository
	now    func() time.Time
}

func NewInviteRepository(users *UserRepository) *InviteRepository {
	return &InviteRepository{
		rows:   make(map[int64]invite.Invitation),
		byCode: make(map[string]int64),
		users:  users,
		now:    time.Now,
	}
}

// WithClock pins time for expiry tests.
func (r *InviteRepository) WithClock(now func() time.Time) *InviteRepository {
	r.now = now
	return r
}

func (r *InviteRepository) Create(_ context.Context, i invite.Invitation) (invite.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[i.Code]; exists {
		return invite.Invitation{}, fmt.Errorf("insert invite: %w: code exists", usecase.ErrConflict)
	}
	r.nextID++
	i.ID = r.nextID
	r.rows[i.ID] = i
	r.byCode[i.Code] = i.ID
	return i, nil
}

func (r *InviteRepository) GetByCode(_ context.Context, code string) (invite.Invitation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCode[code]
	if !ok {
		return invite.Invitation{}, false, nil
	}
	return r.rows[id], true, nil
}

func (r *InviteRepository) GetByID(_ context.Context, id int64) (invite.Invitation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.rows[id]
	return i, ok, nil
}

func (r *InviteRepository) List(_ context.Context, filter invite.ListFilter) ([]invite.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]invite.Invitation, 0, len(r.rows))
	for _, i := range r.rows {
		if filter.CreatedBy != "" && i.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *InviteRepository) Cancel(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.rows[id]
	if !ok || i.Status != invite.StatusPending {
		return fmt.Errorf("cancel invite: %w: invite %d is not pending", usecase.ErrConflict, id)
	}
	i.Status = invite.StatusCancelled
	i.UpdatedAt = r.now().UTC()
	r.rows[id] = i
	return nil
}

func (r *InviteRepository) Consume(ctx context.Context, code string, profile user.Profile) (invite.Invitation, user.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCode[code]
	if !ok {
		return invite.Invitation{}, user.Profile{}, fmt.Errorf("consume invite: %w: code not found", usecase.ErrNotFound)
	}

	i := r.rows[id]
	now := r.now().UTC()
	if err := i.Consumable(now); err != nil {
		return invite.Invitation{}, user.Profile{}, err
	}

	i.CurrentUses++
	if i.CurrentUses >= i.MaxUses {
		i.Status = invite.StatusConsumed
	}
	i.UpdatedAt = now
	r.rows[id] = i

	created, err := r.users.Create(ctx, profile)
	if err != nil {
		// Roll the increment back; the profile insert is part of the same
		// logical transaction.
		i.CurrentUses--
		if i.CurrentUses < i.MaxUses && i.Status == invite.StatusConsumed {
			i.Status = invite.StatusPending
		}
		r.rows[id] = i
		return invite.Invitation{}, user.Profile{}, err
	}

	return i, created, nil
}
