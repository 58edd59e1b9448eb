package domain

import "time"

// PostProcessorKind names a post-processing step run after download
type PostProcessorKind string

const (
	PostExtractAudio PostProcessorKind = "extract_audio"
	PostRemuxVideo   PostProcessorKind = "remux_video"
)

// PostProcessor is a single post-processing directive
type PostProcessor struct {
	Kind    PostProcessorKind `json:"kind"`
	Format  string            `json:"format"`
	Quality string            `json:"quality,omitempty"`
}

// OptionBundle is the complete configuration for one engine attempt.
// A bundle is never changed after it is handed to the engine; derive a
// new one with Clone.
type OptionBundle struct {
	Variant             string            `json:"variant"`
	OutputTemplate      string            `json:"output_template"`
	Format              string            `json:"format"`
	NoPlaylist          bool              `json:"no_playlist"`
	ConcurrentFragments int               `json:"concurrent_fragments"`
	Retries             int               `json:"retries"`
	FragmentRetries     int               `json:"fragment_retries"`
	SocketTimeout       time.Duration     `json:"socket_timeout"`
	GeoBypass           bool              `json:"geo_bypass"`
	SkipSubtitles       bool              `json:"skip_subtitles"`
	SkipAutoSubtitles   bool              `json:"skip_auto_subtitles"`
	SkipThumbnails      bool              `json:"skip_thumbnails"`
	SkipInfoJSON        bool              `json:"skip_info_json"`
	SkipChapters        bool              `json:"skip_chapters"`
	UserAgent           string            `json:"user_agent"`
	Headers             map[string]string `json:"headers"`
	SleepInterval       time.Duration     `json:"sleep_interval"`
	MaxSleepInterval    time.Duration     `json:"max_sleep_interval"`
	SleepRequests       time.Duration     `json:"sleep_requests"`
	ExtractorArgs       map[string]string `json:"extractor_args"`
	PostProcessors      []PostProcessor   `json:"post_processors"`
	MaxFileSize         int64             `json:"max_file_size"`
	CookieFile          string            `json:"cookie_file,omitempty"`
}

// Clone returns a deep copy; maps and slices are not shared with b
func (b *OptionBundle) Clone() *OptionBundle {
	c := *b

	if b.Headers != nil {
		c.Headers = make(map[string]string, len(b.Headers))
		for k, v := range b.Headers {
			c.Headers[k] = v
		}
	}
	if b.ExtractorArgs != nil {
		c.ExtractorArgs = make(map[string]string, len(b.ExtractorArgs))
		for k, v := range b.ExtractorArgs {
			c.ExtractorArgs[k] = v
		}
	}
	if b.PostProcessors != nil {
		c.PostProcessors = append([]PostProcessor(nil), b.PostProcessors...)
	}

	return &c
}
