package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/spec-kit/access-token-service/internal/domain"
)

type memoryUserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

// NewMemoryUserRepository returns a process-local implementation used when
// no database is configured and in tests.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return ErrEmailTaken
	}

	r.nextID++
	now := time.Now().UTC()
	user.ID = r.nextID
	user.Email = email
	user.Abilities = abilitiesOrEmpty(user.Abilities)
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.Abilities = slices.Clone(user.Abilities)
	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user.Abilities = slices.Clone(user.Abilities)
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUserRepository) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}
