package playback

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"guildq/internal/domain"
	"guildq/internal/registry"
	"guildq/internal/store"
)

// Preparer turns a dequeued item into what the Speaker synthesizes.
// It runs just before Speak, so settings changed while an item waited in
// the queue still apply to it.
type Preparer interface {
	Prepare(ctx context.Context, guildID uint64, item registry.Item) (Utterance, error)
}

// Text rewriting defaults.
const (
	DefaultMaxSpokenLength = 70
	DefaultTruncateSuffix  = "省略"
	DefaultLinkText        = "リンク省略"
	DefaultEmojiPrefix     = "えもじ:"
)

var (
	customEmojiPattern = regexp.MustCompile(`<a?:([a-zA-Z0-9_]+):\d+>`)
	linkPattern        = regexp.MustCompile(`https?://\S+`)
)

// TextOptions configures TextPreparer. Zero values take the defaults above;
// a negative MaxSpokenLength disables truncation.
type TextOptions struct {
	MaxSpokenLength int
	TruncateSuffix  string
	LinkText        string
	EmojiPrefix     string
}

func (o *TextOptions) applyDefaults() {
	if o.MaxSpokenLength == 0 {
		o.MaxSpokenLength = DefaultMaxSpokenLength
	}
	if o.TruncateSuffix == "" {
		o.TruncateSuffix = DefaultTruncateSuffix
	}
	if o.LinkText == "" {
		o.LinkText = DefaultLinkText
	}
	if o.EmojiPrefix == "" {
		o.EmojiPrefix = DefaultEmojiPrefix
	}
}

// TextPreparer rewrites links and custom emoji, applies the guild
// dictionary, truncates long text and looks up the guild's speed.
type TextPreparer struct {
	dictionary store.DictionaryRepository
	speeds     store.VoiceSpeedRepository
	opts       TextOptions
}

// NewTextPreparer creates a preparer backed by the given settings stores.
func NewTextPreparer(dictionary store.DictionaryRepository, speeds store.VoiceSpeedRepository, opts TextOptions) *TextPreparer {
	opts.applyDefaults()
	return &TextPreparer{
		dictionary: dictionary,
		speeds:     speeds,
		opts:       opts,
	}
}

// Prepare builds the utterance for item.
func (p *TextPreparer) Prepare(ctx context.Context, guildID uint64, item registry.Item) (Utterance, error) {
	u := plainUtterance(item)

	entries, err := p.dictionary.List(ctx, guildID)
	if err != nil {
		return u, fmt.Errorf("failed to load dictionary: %w", err)
	}
	u.Text = p.Rewrite(item.Text, entries)

	speed, err := p.speeds.Get(ctx, guildID)
	switch {
	case err == nil:
		u.Speed = speed.Speed
	case errors.Is(err, domain.ErrVoiceSpeedNotFound):
	default:
		return u, fmt.Errorf("failed to load voice speed: %w", err)
	}
	return u, nil
}

// Rewrite applies link and emoji rewriting, then the dictionary, then
// truncation. Dictionary words are matched longest first and replacements
// are never rewritten again.
func (p *TextPreparer) Rewrite(text string, entries []*domain.DictionaryEntry) string {
	text = customEmojiPattern.ReplaceAllString(text, p.opts.EmojiPrefix+"${1}")
	text = linkPattern.ReplaceAllLiteralString(text, p.opts.LinkText)

	if len(entries) > 0 {
		sorted := make([]*domain.DictionaryEntry, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool {
			return utf8.RuneCountInString(sorted[i].Word) > utf8.RuneCountInString(sorted[j].Word)
		})

		pairs := make([]string, 0, 2*len(sorted))
		for _, entry := range sorted {
			if entry.Word == "" {
				continue
			}
			pairs = append(pairs, entry.Word, entry.Reading)
		}
		text = strings.NewReplacer(pairs...).Replace(text)
	}

	if p.opts.MaxSpokenLength > 0 && utf8.RuneCountInString(text) > p.opts.MaxSpokenLength {
		text = string([]rune(text)[:p.opts.MaxSpokenLength]) + p.opts.TruncateSuffix
	}
	return text
}
