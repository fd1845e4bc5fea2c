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

const storeName = "postgres"

// SpeakerRepository implements store.SpeakerRepository using PostgreSQL.
// Ids are stored as BIGINT by reinterpreting the uint64 bits, which
// round-trips every value.
type SpeakerRepository struct {
	db *DB
}

// NewSpeakerRepository creates a new PostgreSQL-backed speaker repository.
func NewSpeakerRepository(db *DB) *SpeakerRepository {
	return &SpeakerRepository{db: db}
}

// Get returns the user's stored setting.
func (r *SpeakerRepository) Get(ctx context.Context, userID uint64) (setting *domain.SpeakerSetting, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "read", time.Since(start).Seconds(), err) }()

	query := `SELECT speaker_id, updated_at FROM user_voice WHERE user_id = $1`

	var (
		speakerID int64
		updatedAt time.Time
	)
	err = r.db.pool.QueryRow(ctx, query, int64(userID)).Scan(&speakerID, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSpeakerNotFound
		}
		return nil, fmt.Errorf("failed to get speaker: %w", err)
	}

	return &domain.SpeakerSetting{
		UserID:    userID,
		SpeakerID: uint64(speakerID),
		UpdatedAt: updatedAt,
	}, nil
}

// Set stores or replaces the user's setting.
func (r *SpeakerRepository) Set(ctx context.Context, setting *domain.SpeakerSetting) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "write", time.Since(start).Seconds(), err) }()

	query := `
		INSERT INTO user_voice (user_id, speaker_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			speaker_id = EXCLUDED.speaker_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.pool.Exec(ctx, query,
		int64(setting.UserID),
		int64(setting.SpeakerID),
		setting.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set speaker: %w", err)
	}
	return nil
}

// Delete removes the user's setting.
func (r *SpeakerRepository) Delete(ctx context.Context, userID uint64) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "delete", time.Since(start).Seconds(), err) }()

	result, err := r.db.pool.Exec(ctx, `DELETE FROM user_voice WHERE user_id = $1`, int64(userID))
	if err != nil {
		return fmt.Errorf("failed to delete speaker: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSpeakerNotFound
	}
	return nil
}
