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

// VoiceSpeedRepository implements store.VoiceSpeedRepository using PostgreSQL.
type VoiceSpeedRepository struct {
	db *DB
}

// NewVoiceSpeedRepository creates a new PostgreSQL-backed speed repository.
func NewVoiceSpeedRepository(db *DB) *VoiceSpeedRepository {
	return &VoiceSpeedRepository{db: db}
}

// Get returns the guild's stored speed.
func (r *VoiceSpeedRepository) Get(ctx context.Context, guildID uint64) (speed *domain.VoiceSpeed, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "read", time.Since(start).Seconds(), err) }()

	speed = &domain.VoiceSpeed{GuildID: guildID}
	err = r.db.pool.QueryRow(ctx,
		`SELECT speed, updated_at FROM server_voice_speed WHERE guild_id = $1`,
		int64(guildID),
	).Scan(&speed.Speed, &speed.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVoiceSpeedNotFound
		}
		return nil, fmt.Errorf("failed to get voice speed: %w", err)
	}
	return speed, nil
}

// Set stores or replaces the guild's speed.
func (r *VoiceSpeedRepository) Set(ctx context.Context, speed *domain.VoiceSpeed) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "write", time.Since(start).Seconds(), err) }()

	query := `
		INSERT INTO server_voice_speed (guild_id, speed, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id) DO UPDATE SET
			speed = EXCLUDED.speed,
			updated_at = EXCLUDED.updated_at
	`

	if _, err = r.db.pool.Exec(ctx, query, int64(speed.GuildID), speed.Speed, speed.UpdatedAt); err != nil {
		return fmt.Errorf("failed to set voice speed: %w", err)
	}
	return nil
}

// Delete removes the guild's speed.
func (r *VoiceSpeedRepository) Delete(ctx context.Context, guildID uint64) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "delete", time.Since(start).Seconds(), err) }()

	result, err := r.db.pool.Exec(ctx, `DELETE FROM server_voice_speed WHERE guild_id = $1`, int64(guildID))
	if err != nil {
		return fmt.Errorf("failed to delete voice speed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVoiceSpeedNotFound
	}
	return nil
}
