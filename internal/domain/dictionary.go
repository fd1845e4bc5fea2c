package domain

import (
	"errors"
	"strings"
	"time"
)

// MaxDictionaryWordLength bounds both sides of a dictionary entry.
const MaxDictionaryWordLength = 100

// DictionaryEntry rewrites Word as Reading before a guild's text is spoken.
type DictionaryEntry struct {
	GuildID   uint64    `json:"guild_id,string"`
	Word      string    `json:"word"`
	Reading   string    `json:"reading"`
	AuthorID  uint64    `json:"author_id,string"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dictionary errors.
var (
	ErrEmptyWord               = errors.New("word is required")
	ErrEmptyReading            = errors.New("reading is required")
	ErrDictionaryWordTooLong   = errors.New("word or reading exceeds maximum length")
	ErrDictionaryEntryNotFound = errors.New("dictionary entry not found")
)

// SetDictionaryEntryRequest is the input for adding or replacing a guild
// dictionary entry.
type SetDictionaryEntryRequest struct {
	Word     string `json:"word"`
	Reading  string `json:"reading"`
	AuthorID uint64 `json:"author_id,string"`
}

// Validate checks required fields.
func (r *SetDictionaryEntryRequest) Validate() error {
	if strings.TrimSpace(r.Word) == "" {
		return ErrEmptyWord
	}
	if strings.TrimSpace(r.Reading) == "" {
		return ErrEmptyReading
	}
	if len([]rune(r.Word)) > MaxDictionaryWordLength || len([]rune(r.Reading)) > MaxDictionaryWordLength {
		return ErrDictionaryWordTooLong
	}
	if r.AuthorID == 0 {
		return ErrEmptyUserID
	}
	return nil
}

// ToEntry converts the request into an entry for the guild.
func (r *SetDictionaryEntryRequest) ToEntry(guildID uint64) *DictionaryEntry {
	return &DictionaryEntry{
		GuildID:   guildID,
		Word:      r.Word,
		Reading:   r.Reading,
		AuthorID:  r.AuthorID,
		UpdatedAt: time.Now().UTC(),
	}
}
