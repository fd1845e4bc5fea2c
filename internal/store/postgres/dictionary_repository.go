package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"guildq/internal/domain"
	"guildq/internal/metrics"
)

// DictionaryRepository implements store.DictionaryRepository using PostgreSQL.
type DictionaryRepository struct {
	db *DB
}

// NewDictionaryRepository creates a new PostgreSQL-backed dictionary repository.
func NewDictionaryRepository(db *DB) *DictionaryRepository {
	return &DictionaryRepository{db: db}
}

// List returns the guild's entries ordered by word.
func (r *DictionaryRepository) List(ctx context.Context, guildID uint64) (entries []*domain.DictionaryEntry, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "list", time.Since(start).Seconds(), err) }()

	query := `
		SELECT word, reading, author_id, updated_at
		FROM guild_dictionary
		WHERE guild_id = $1
		ORDER BY word
	`

	rows, err := r.db.pool.Query(ctx, query, int64(guildID))
	if err != nil {
		return nil, fmt.Errorf("failed to list dictionary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry    = &domain.DictionaryEntry{GuildID: guildID}
			authorID int64
		)
		if err = rows.Scan(&entry.Word, &entry.Reading, &authorID, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dictionary entry: %w", err)
		}
		entry.AuthorID = uint64(authorID)
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dictionary: %w", err)
	}
	return entries, nil
}

// Get returns one entry.
func (r *DictionaryRepository) Get(ctx context.Context, guildID uint64, word string) (entry *domain.DictionaryEntry, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "read", time.Since(start).Seconds(), err) }()

	query := `
		SELECT reading, author_id, updated_at
		FROM guild_dictionary
		WHERE guild_id = $1 AND word = $2
	`

	entry = &domain.DictionaryEntry{GuildID: guildID, Word: word}
	var authorID int64
	err = r.db.pool.QueryRow(ctx, query, int64(guildID), word).Scan(&entry.Reading, &authorID, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDictionaryEntryNotFound
		}
		return nil, fmt.Errorf("failed to get dictionary entry: %w", err)
	}
	entry.AuthorID = uint64(authorID)
	return entry, nil
}

// Set stores or replaces the entry.
func (r *DictionaryRepository) Set(ctx context.Context, entry *domain.DictionaryEntry) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "write", time.Since(start).Seconds(), err) }()

	query := `
		INSERT INTO guild_dictionary (guild_id, word, reading, author_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, word) DO UPDATE SET
			reading = EXCLUDED.reading,
			author_id = EXCLUDED.author_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.pool.Exec(ctx, query,
		int64(entry.GuildID),
		entry.Word,
		entry.Reading,
		int64(entry.AuthorID),
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set dictionary entry: %w", err)
	}
	return nil
}

// Delete removes one entry.
func (r *DictionaryRepository) Delete(ctx context.Context, guildID uint64, word string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "delete", time.Since(start).Seconds(), err) }()

	result, err := r.db.pool.Exec(ctx,
		`DELETE FROM guild_dictionary WHERE guild_id = $1 AND word = $2`,
		int64(guildID), word,
	)
	if err != nil {
		return fmt.Errorf("failed to delete dictionary entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDictionaryEntryNotFound
	}
	return nil
}
