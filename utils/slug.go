package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Slugify converts a title into a URL-safe lowercase identifier: letters and
// digits kept, everything else collapsed into single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DisambiguateSlug appends the current unix timestamp to a colliding slug.
// Last-write-wins: two simultaneous creations with the same title and the
// same timestamp remain an accepted race.
func DisambiguateSlug(slug string) string {
	return fmt.Sprintf("%s-%d", slug, time.Now().Unix())
}
