package memory

import (
	"context"
	"sort"
	"sync"

	"guildq/internal/domain"
)

// DictionaryRepository is an in-memory implementation of
// store.DictionaryRepository.
type DictionaryRepository struct {
	mu      sync.RWMutex
	entries map[uint64]map[string]*domain.DictionaryEntry
}

// NewDictionaryRepository creates a new in-memory dictionary repository.
func NewDictionaryRepository() *DictionaryRepository {
	return &DictionaryRepository{
		entries: make(map[uint64]map[string]*domain.DictionaryEntry),
	}
}

// List returns copies of the guild's entries ordered by word.
func (r *DictionaryRepository) List(ctx context.Context, guildID uint64) ([]*domain.DictionaryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	guild := r.entries[guildID]
	result := make([]*domain.DictionaryEntry, 0, len(guild))
	for _, entry := range guild {
		entryCopy := *entry
		result = append(result, &entryCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Word < result[j].Word })
	return result, nil
}

// Get returns one entry.
func (r *DictionaryRepository) Get(ctx context.Context, guildID uint64, word string) (*domain.DictionaryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[guildID][word]
	if !exists {
		return nil, domain.ErrDictionaryEntryNotFound
	}

	result := *entry
	return &result, nil
}

// Set stores or replaces the entry.
func (r *DictionaryRepository) Set(ctx context.Context, entry *domain.DictionaryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild, exists := r.entries[entry.GuildID]
	if !exists {
		guild = make(map[string]*domain.DictionaryEntry)
		r.entries[entry.GuildID] = guild
	}
	entryCopy := *entry
	guild[entry.Word] = &entryCopy
	return nil
}

// Delete removes one entry.
func (r *DictionaryRepository) Delete(ctx context.Context, guildID uint64, word string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild := r.entries[guildID]
	if _, exists := guild[word]; !exists {
		return domain.ErrDictionaryEntryNotFound
	}
	delete(guild, word)
	if len(guild) == 0 {
		delete(r.entries, guildID)
	}
	return nil
}
