// Package emoji validates the emoji labels attached to topics. A label must
// be a single grapheme cluster that actually renders as an emoji, so
// multi-emoji strings, plain letters, and padded input are all rejected.
package emoji

import (
	"errors"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// ErrNotSingleEmoji is returned for input that is not exactly one emoji.
var ErrNotSingleEmoji = errors.New("exactly one emoji required")

// Validate checks that s is exactly one emoji with no surrounding
// whitespace.
func Validate(s string) error {
	if s == "" || strings.TrimSpace(s) != s {
		return ErrNotSingleEmoji
	}
	gr := uniseg.NewGraphemes(s)
	if !gr.Next() {
		return ErrNotSingleEmoji
	}
	cluster := gr.Runes()
	if gr.Next() {
		// More than one grapheme cluster.
		return ErrNotSingleEmoji
	}
	if !isEmojiCluster(cluster) {
		return ErrNotSingleEmoji
	}
	return nil
}

// isEmojiCluster reports whether a single grapheme cluster renders as an
// emoji. Joined sequences (flags, skin tones, ZWJ families) qualify as long
// as at least one rune is emoji-like and none are plain letters or digits
// standing alone.
func isEmojiCluster(runes []rune) bool {
	hasEmoji := false
	for _, r := range runes {
		switch {
		case isEmojiRune(r):
			hasEmoji = true
		case r == 0x200D || r == 0xFE0F || r == 0x20E3:
			// Joiners and presentation selectors ride along.
		case unicode.Is(unicode.Mn, r):
			// Combining marks.
		case len(runes) > 1 && (unicode.IsDigit(r) || r == '#' || r == '*'):
			// Keycap bases ("1" in 1️⃣) only count inside a sequence.
		default:
			return false
		}
	}
	return hasEmoji
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // symbols, pictographs, supplements
		return true
	case r >= 0x2600 && r <= 0x27BF: // miscellaneous symbols, dingbats
		return true
	case r >= 0x2300 && r <= 0x23FF: // technical (⌚, ⏰)
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows and stars (⭐)
		return true
	case r == 0x2934 || r == 0x2935:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r == 0x3030 || r == 0x303D || r == 0x3297 || r == 0x3299:
		return true
	case r == 0x00A9 || r == 0x00AE: // © and ® with presentation selector
		return true
	case r >= 0x2190 && r <= 0x21FF: // arrows (↔️)
		return true
	case r == 0x203C || r == 0x2049: // ‼️ and ⁉️
		return true
	case r >= 0x2100 && r <= 0x214F: // letterlike (™️, ℹ️)
		return true
	case r >= 0x25A0 && r <= 0x25FF: // geometric shapes
		return true
	case r >= 0x2900 && r <= 0x297F:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return false
	}
	return false
}
