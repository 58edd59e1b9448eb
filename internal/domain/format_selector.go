package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ProgressiveFilter restricts a yt-dlp format to a single continuous
// HTTP(S) transfer, excluding HLS and DASH fragment protocols.
const ProgressiveFilter = "[protocol^=http][protocol!*=dash]"

var (
	heightQuality  = regexp.MustCompile(`^(\d+)p$`)
	bitrateQuality = regexp.MustCompile(`^(\d+)k$`)
)

// SelectFormat maps a media kind and a quality preference to a yt-dlp
// format-selector expression. Alternatives are separated by "/" in order of
// preference and the expression always ends with an unrestricted fallback.
func SelectFormat(kind MediaKind, quality string) string {
	quality = strings.ToLower(strings.TrimSpace(quality))

	switch kind {
	case KindVideo:
		return selectVideoFormat(quality)
	case KindAudio:
		return selectAudioFormat(quality)
	case KindImage:
		return selectImageFormat(quality)
	default:
		return "best"
	}
}

func selectVideoFormat(quality string) string {
	if quality == "worst" {
		return "worst" + ProgressiveFilter + "/worst"
	}
	if m := heightQuality.FindStringSubmatch(quality); m != nil {
		h := m[1]
		return fmt.Sprintf("best[height<=%s][ext=mp4]%s/best[height<=%s]%s/best[height<=%s]/best",
			h, ProgressiveFilter, h, ProgressiveFilter, h)
	}
	// "best" and anything unrecognized
	return "best[ext=mp4]" + ProgressiveFilter + "/best" + ProgressiveFilter + "/best[ext=mp4]/best"
}

func selectAudioFormat(quality string) string {
	if quality == "worst" {
		return "worstaudio/worst"
	}
	if m := bitrateQuality.FindStringSubmatch(quality); m != nil {
		return fmt.Sprintf("bestaudio[abr<=%s]/bestaudio/best", m[1])
	}
	return "bestaudio/best"
}

func selectImageFormat(quality string) string {
	if quality == "original" {
		return "best"
	}
	return "best[ext=jpg]/best[ext=png]/best[ext=webp]/best"
}

// RelaxSelector drops the progressive-protocol constraint from a selector,
// letting a retry accept fragmented streams the first attempt rejected.
// Alternatives that become duplicates are removed, keeping the first one.
func RelaxSelector(selector string) string {
	relaxed := strings.ReplaceAll(selector, ProgressiveFilter, "")

	seen := make(map[string]bool)
	var parts []string
	for _, part := range strings.Split(relaxed, "/") {
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "best"
	}
	return strings.Join(parts, "/")
}

// AudioQuality maps a quality preference to the kbps value passed to the
// audio extraction post-processor.
func AudioQuality(quality string) string {
	quality = strings.ToLower(strings.TrimSpace(quality))
	if quality == "best" {
		return "320"
	}
	if m := bitrateQuality.FindStringSubmatch(quality); m != nil {
		return m[1]
	}
	return "192"
}
