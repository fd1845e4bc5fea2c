package domain

import (
	"errors"
	"time"
)

// SpeakerSetting is a user's chosen synthesis voice.
type SpeakerSetting struct {
	UserID    uint64    `json:"user_id,string"`
	SpeakerID uint64    `json:"speaker_id"`
	UpdatedAt time.Time `json:"updated_at"`

	// Default is true when no setting is stored and the service default applies.
	Default bool `json:"default"`
}

// ErrSpeakerNotFound is returned when a user has no stored setting.
var ErrSpeakerNotFound = errors.New("speaker setting not found")

// SetSpeakerRequest is the input for changing a user's voice.
type SetSpeakerRequest struct {
	SpeakerID *uint64 `json:"speaker_id"`
}

// ErrEmptySpeakerID is returned when speaker_id is missing from the request.
var ErrEmptySpeakerID = errors.New("speaker_id is required")

// Validate checks the request carries a speaker.
func (r *SetSpeakerRequest) Validate() error {
	if r.SpeakerID == nil {
		return ErrEmptySpeakerID
	}
	return nil
}
