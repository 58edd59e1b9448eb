package domain

import (
	"fmt"
	"strings"
)

// MediaKind represents the kind of media a client asks for
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
	KindImage MediaKind = "image"
)

// DefaultQuality is used when a request carries no quality preference
const DefaultQuality = "best"

// ParseMediaKind maps a client-facing format name to a MediaKind.
// It accepts the container names used by the web UI (MP4, MP3, IMAGE)
// as well as the kind names themselves, case-insensitively.
func ParseMediaKind(format string) (MediaKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "MP4", "VIDEO":
		return KindVideo, true
	case "MP3", "AUDIO":
		return KindAudio, true
	case "IMAGE", "IMG":
		return KindImage, true
	default:
		return "", false
	}
}

// ValidateKind checks if a media kind is supported
func ValidateKind(kind MediaKind) bool {
	return kind == KindVideo || kind == KindAudio || kind == KindImage
}

// ContentType returns the response content type for a media kind.
// It is derived from the requested kind, not sniffed from the bytes.
func (k MediaKind) ContentType() string {
	switch k {
	case KindVideo:
		return "video/mp4"
	case KindAudio:
		return "audio/mpeg"
	case KindImage:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// FormatName returns the client-facing format name for a media kind
func (k MediaKind) FormatName() string {
	switch k {
	case KindVideo:
		return "MP4"
	case KindAudio:
		return "MP3"
	case KindImage:
		return "IMAGE"
	default:
		return strings.ToUpper(string(k))
	}
}

// KindFromExtension infers a media kind from a file extension (with or without dot)
func KindFromExtension(ext string) MediaKind {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp4", "mkv", "webm", "mov", "m4v":
		return KindVideo
	case "mp3", "m4a", "opus", "ogg", "wav", "aac":
		return KindAudio
	default:
		return KindImage
	}
}

// DownloadRequest represents a single media download request
type DownloadRequest struct {
	URL     string    `json:"url"`
	Kind    MediaKind `json:"kind"`
	Quality string    `json:"quality"`
}

// NewDownloadRequest builds a request from the wire format name.
// An unknown format yields an invalid-input error.
func NewDownloadRequest(url, format, quality string) (DownloadRequest, error) {
	kind, ok := ParseMediaKind(format)
	if !ok {
		return DownloadRequest{}, NewMediaError(KindInvalidInput,
			fmt.Sprintf("Unsupported format: %s", format), nil)
	}
	req := DownloadRequest{URL: strings.TrimSpace(url), Kind: kind, Quality: strings.TrimSpace(quality)}
	if req.Quality == "" {
		req.Quality = DefaultQuality
	}
	return req, nil
}

// Validate checks the request invariants before any engine call is made
func (r DownloadRequest) Validate() error {
	if r.URL == "" || !(strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://")) {
		return NewMediaError(KindInvalidInput, "Invalid URL provided", nil)
	}
	if !ValidateKind(r.Kind) {
		return NewMediaError(KindInvalidInput, fmt.Sprintf("Unsupported format: %s", r.Kind), nil)
	}
	return nil
}

// FormatSpec describes one client-facing format and its quality choices
type FormatSpec struct {
	Name           string    `json:"name"`
	Kind           MediaKind `json:"kind"`
	Description    string    `json:"description"`
	Extensions     []string  `json:"extensions"`
	QualityOptions []string  `json:"quality_options"`
}

// SupportedFormats lists the formats offered to clients
var SupportedFormats = []FormatSpec{
	{
		Name:           "MP4",
		Kind:           KindVideo,
		Description:    "Video file",
		Extensions:     []string{".mp4"},
		QualityOptions: []string{"best", "worst", "720p", "480p", "360p"},
	},
	{
		Name:           "MP3",
		Kind:           KindAudio,
		Description:    "Audio file",
		Extensions:     []string{".mp3"},
		QualityOptions: []string{"best", "worst", "320k", "256k", "192k", "128k"},
	},
	{
		Name:           "IMAGE",
		Kind:           KindImage,
		Description:    "Image file",
		Extensions:     []string{".jpg", ".png", ".webp"},
		QualityOptions: []string{"best", "original"},
	},
}

// SupportedPlatforms lists platforms known to work well through the engine
var SupportedPlatforms = []string{
	"YouTube",
	"Instagram",
	"Twitter/X",
	"Pinterest",
	"TikTok",
	"Facebook",
	"And many more via yt-dlp",
}
