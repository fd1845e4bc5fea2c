package domain

import (
	"errors"
	"time"
)

// Ban blocks a user from every guild. A banned user's speech is rejected
// and they cannot change settings.
type Ban struct {
	UserID    uint64    `json:"user_id,string"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrBanNotFound is returned when a user is not banned.
var ErrBanNotFound = errors.New("ban not found")

// BanRequest is the optional body of a ban.
type BanRequest struct {
	Reason string `json:"reason"`
}
