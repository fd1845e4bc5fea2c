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

// BanRepository implements store.BanRepository using PostgreSQL.
type BanRepository struct {
	db *DB
}

// NewBanRepository creates a new PostgreSQL-backed ban list.
func NewBanRepository(db *DB) *BanRepository {
	return &BanRepository{db: db}
}

// IsBanned reports whether the user is banned.
func (r *BanRepository) IsBanned(ctx context.Context, userID uint64) (banned bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "read", time.Since(start).Seconds(), err) }()

	err = r.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM banlist WHERE user_id = $1)`,
		int64(userID),
	).Scan(&banned)
	if err != nil {
		return false, fmt.Errorf("failed to check ban: %w", err)
	}
	return banned, nil
}

// Get returns the user's ban.
func (r *BanRepository) Get(ctx context.Context, userID uint64) (ban *domain.Ban, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "read", time.Since(start).Seconds(), err) }()

	ban = &domain.Ban{UserID: userID}
	err = r.db.pool.QueryRow(ctx,
		`SELECT reason, created_at FROM banlist WHERE user_id = $1`,
		int64(userID),
	).Scan(&ban.Reason, &ban.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBanNotFound
		}
		return nil, fmt.Errorf("failed to get ban: %w", err)
	}
	return ban, nil
}

// List returns every ban ordered by user id.
func (r *BanRepository) List(ctx context.Context) (bans []*domain.Ban, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "list", time.Since(start).Seconds(), err) }()

	rows, err := r.db.pool.Query(ctx, `SELECT user_id, reason, created_at FROM banlist ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ban    = &domain.Ban{}
			userID int64
		)
		if err = rows.Scan(&userID, &ban.Reason, &ban.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ban: %w", err)
		}
		ban.UserID = uint64(userID)
		bans = append(bans, ban)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bans: %w", err)
	}
	return bans, nil
}

// Ban stores the ban.
func (r *BanRepository) Ban(ctx context.Context, ban *domain.Ban) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "write", time.Since(start).Seconds(), err) }()

	query := `
		INSERT INTO banlist (user_id, reason, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET reason = EXCLUDED.reason
	`

	if _, err = r.db.pool.Exec(ctx, query, int64(ban.UserID), ban.Reason, ban.CreatedAt); err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}
	return nil
}

// Unban lifts the user's ban.
func (r *BanRepository) Unban(ctx context.Context, userID uint64) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "delete", time.Since(start).Seconds(), err) }()

	result, err := r.db.pool.Exec(ctx, `DELETE FROM banlist WHERE user_id = $1`, int64(userID))
	if err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBanNotFound
	}
	return nil
}
