package voice

import (
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`([^`]*)`")
	imageRe       = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)]*)\)`)
	citationRe    = regexp.MustCompile(`\[\d+\]|【[^】]*】`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletRe      = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	quoteRe       = regexp.MustCompile(`(?m)^>\s*`)
	emphasisRe    = regexp.MustCompile(`[*_]{1,3}`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// SpeechText derives the speech-safe form of a rendered assistant message:
// markdown fencing, formatting, and citation markers are stripped and
// whitespace collapsed. Returns "" when nothing speakable remains.
func SpeechText(raw string) string {
	text := fencedBlockRe.ReplaceAllString(raw, " ")
	text = imageRe.ReplaceAllString(text, " ")
	text = citationRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "")
	text = quoteRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
