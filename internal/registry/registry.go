// Package registry provides the per-guild FIFO queue registry.
// Each guild owns an independent queue of speech items. All operations
// are serialized by a single mutex over the whole guild map, so every
// caller observes one total order of enqueues, dequeues and clears.
package registry

import (
	"sort"
	"sync"
)

// GuildID identifies one independent queue.
type GuildID = uint64

// Item is a single queued entry. The registry never inspects it.
type Item struct {
	Text      string `json:"text"`
	SpeakerID uint64 `json:"speaker_id"`
}

// Registry maps guilds to their queues.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	queues map[GuildID]*itemQueue
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		queues: make(map[GuildID]*itemQueue),
	}
}

// Enqueue appends an item to the tail of the guild's queue,
// creating the queue on first use.
func (r *Registry) Enqueue(guild GuildID, text string, speakerID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[guild]
	if !ok {
		q = newItemQueue()
		r.queues[guild] = q
	}
	q.push(Item{Text: text, SpeakerID: speakerID})
}

// Dequeue removes and returns the oldest item for the guild.
// The second result is false when the queue is absent or empty.
func (r *Registry) Dequeue(guild GuildID) (Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[guild]
	if !ok {
		return Item{}, false
	}
	return q.pop()
}

// Peek returns the head item without removing it.
func (r *Registry) Peek(guild GuildID) (Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[guild]
	if !ok {
		return Item{}, false
	}
	return q.front()
}

// Clear drops the guild's queue and everything in it.
func (r *Registry) Clear(guild GuildID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.queues, guild)
}

// Len returns the number of queued items for the guild.
func (r *Registry) Len(guild GuildID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[guild]
	if !ok {
		return 0
	}
	return uint64(q.len())
}

// Guilds returns the guilds that currently have a queue entry, ascending.
// A drained queue stays listed until it is cleared.
func (r *Registry) Guilds() []GuildID {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]GuildID, 0, len(r.queues))
	for guild := range r.queues {
		result = append(result, guild)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Total returns the number of items queued across all guilds.
func (r *Registry) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total uint64
	for _, q := range r.queues {
		total += uint64(q.len())
	}
	return total
}

// --- Test Helpers ---

// Reset removes every queue. Useful for test cleanup and shutdown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queues = make(map[GuildID]*itemQueue)
}
