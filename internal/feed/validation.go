package feed

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// validatePostContent enforces the post content policy: exact-trimmed,
// non-empty, bounded length. Length is counted in runes so multi-byte
// content gets the same budget as ASCII.
func (e *Engine) validatePostContent(content string) error {
	if strings.TrimSpace(content) != content {
		return fmt.Errorf("%w: post not trimmed", ErrInvalidContent)
	}
	if content == "" {
		return fmt.Errorf("%w: post cannot be empty", ErrInvalidContent)
	}
	if n := utf8.RuneCountInString(content); n > e.cfg.MaxPostLength {
		return fmt.Errorf("%w: post too long (%d > %d)", ErrInvalidContent, n, e.cfg.MaxPostLength)
	}
	return nil
}

// maxEmojiLen bounds the emoji field. Generous enough for multi-codepoint
// emoji (flags, skin tones), small enough to reject arbitrary text.
const maxEmojiLen = 16

// validateProfile enforces the profile policy: a short non-empty emoji and a
// color from the fixed palette.
func (e *Engine) validateProfile(p Profile) error {
	if p.Emoji == "" {
		return fmt.Errorf("%w: profile emoji required", ErrInvalidContent)
	}
	if len(p.Emoji) > maxEmojiLen {
		return fmt.Errorf("%w: profile emoji too long", ErrInvalidContent)
	}
	for _, c := range ProfileColors {
		if c == p.Color {
			return nil
		}
	}
	return fmt.Errorf("%w: color %q not in palette", ErrInvalidContent, p.Color)
}
