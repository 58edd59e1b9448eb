package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxFilenameLength bounds a sanitized title, in characters
	MaxFilenameLength = 150

	// FallbackFilename replaces titles that sanitize to nothing
	FallbackFilename = "downloaded_media"
)

var (
	reservedChars  = regexp.MustCompile("[<>:\"/\\\\|?*()\\[\\]{}#%&=+@!$,;'`~]")
	whitespaceRuns = regexp.MustCompile(`[\s\x{0B}\x{1C}-\x{1F}\x{85}\p{Z}]+`)
	underscoreRuns = regexp.MustCompile(`_{2,}`)
	edgeTrimCutset = "._"
)

// SanitizeFilename maps an arbitrary media title to a filesystem-safe name.
// The result never contains a reserved character or whitespace, never starts or
// ends with a dot or underscore, is at most MaxFilenameLength characters long
// and is never empty. Applying it twice yields the same value.
func SanitizeFilename(title string) string {
	name := reservedChars.ReplaceAllString(title, "_")
	name = whitespaceRuns.ReplaceAllString(name, "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, edgeTrimCutset)

	if utf8.RuneCountInString(name) > MaxFilenameLength {
		name = string([]rune(name)[:MaxFilenameLength])
		name = strings.Trim(name, edgeTrimCutset)
	}

	if name == "" {
		return FallbackFilename
	}
	return name
}
