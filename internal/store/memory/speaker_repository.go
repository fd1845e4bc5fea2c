package memory

import (
	"context"
	"sync"

	"guildq/internal/domain"
)

// SpeakerRepository is an in-memory implementation of store.SpeakerRepository.
type SpeakerRepository struct {
	mu       sync.RWMutex
	speakers map[uint64]*domain.SpeakerSetting
}

// NewSpeakerRepository creates a new in-memory speaker repository.
func NewSpeakerRepository() *SpeakerRepository {
	return &SpeakerRepository{
		speakers: make(map[uint64]*domain.SpeakerSetting),
	}
}

// Get returns the user's stored setting.
func (r *SpeakerRepository) Get(ctx context.Context, userID uint64) (*domain.SpeakerSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	setting, exists := r.speakers[userID]
	if !exists {
		return nil, domain.ErrSpeakerNotFound
	}

	result := *setting
	return &result, nil
}

// Set stores or replaces the user's setting.
func (r *SpeakerRepository) Set(ctx context.Context, setting *domain.SpeakerSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	settingCopy := *setting
	r.speakers[setting.UserID] = &settingCopy
	return nil
}

// Delete removes the user's setting.
func (r *SpeakerRepository) Delete(ctx context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.speakers[userID]; !exists {
		return domain.ErrSpeakerNotFound
	}
	delete(r.speakers, userID)
	return nil
}
