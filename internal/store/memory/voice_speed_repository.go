package memory

import (
	"context"
	"sync"

	"guildq/internal/domain"
)

// VoiceSpeedRepository is an in-memory implementation of
// store.VoiceSpeedRepository.
type VoiceSpeedRepository struct {
	mu     sync.RWMutex
	speeds map[uint64]*domain.VoiceSpeed
}

// NewVoiceSpeedRepository creates a new in-memory speed repository.
func NewVoiceSpeedRepository() *VoiceSpeedRepository {
	return &VoiceSpeedRepository{
		speeds: make(map[uint64]*domain.VoiceSpeed),
	}
}

// Get returns the guild's stored speed.
func (r *VoiceSpeedRepository) Get(ctx context.Context, guildID uint64) (*domain.VoiceSpeed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	speed, exists := r.speeds[guildID]
	if !exists {
		return nil, domain.ErrVoiceSpeedNotFound
	}

	result := *speed
	return &result, nil
}

// Set stores or replaces the guild's speed.
func (r *VoiceSpeedRepository) Set(ctx context.Context, speed *domain.VoiceSpeed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	speedCopy := *speed
	r.speeds[speed.GuildID] = &speedCopy
	return nil
}

// Delete removes the guild's speed.
func (r *VoiceSpeedRepository) Delete(ctx context.Context, guildID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.speeds[guildID]; !exists {
		return domain.ErrVoiceSpeedNotFound
	}
	delete(r.speeds, guildID)
	return nil
}
