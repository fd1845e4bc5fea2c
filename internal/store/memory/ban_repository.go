package memory

import (
	"context"
	"sort"
	"sync"

	"guildq/internal/domain"
)

// BanRepository is an in-memory implementation of store.BanRepository.
type BanRepository struct {
	mu   sync.RWMutex
	bans map[uint64]*domain.Ban
}

// NewBanRepository creates a new in-memory ban list.
func NewBanRepository() *BanRepository {
	return &BanRepository{
		bans: make(map[uint64]*domain.Ban),
	}
}

// IsBanned reports whether the user is banned.
func (r *BanRepository) IsBanned(ctx context.Context, userID uint64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, banned := r.bans[userID]
	return banned, nil
}

// Get returns the user's ban.
func (r *BanRepository) Get(ctx context.Context, userID uint64) (*domain.Ban, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ban, exists := r.bans[userID]
	if !exists {
		return nil, domain.ErrBanNotFound
	}

	result := *ban
	return &result, nil
}

// List returns copies of every ban ordered by user id.
func (r *BanRepository) List(ctx context.Context) ([]*domain.Ban, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Ban, 0, len(r.bans))
	for _, ban := range r.bans {
		banCopy := *ban
		result = append(result, &banCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// Ban stores the ban.
func (r *BanRepository) Ban(ctx context.Context, ban *domain.Ban) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	banCopy := *ban
	r.bans[ban.UserID] = &banCopy
	return nil
}

// Unban lifts the user's ban.
func (r *BanRepository) Unban(ctx context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bans[userID]; !exists {
		return domain.ErrBanNotFound
	}
	delete(r.bans, userID)
	return nil
}
