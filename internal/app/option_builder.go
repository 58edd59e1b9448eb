package app

import "github.com/yourusername/media-proxy-go/internal/domain"

const (
	VariantPrimary  = "primary"
	VariantFallback = "fallback"

	primaryYouTubeArgs  = "player_client=android,web;player_skip=webpage"
	fallbackYouTubeArgs = "player_client=android,web,ios,tv_embedded;player_skip=webpage,configs,js;lang=en;skip=dash,hls"
)

// OptionBuilder assembles engine option bundles
type OptionBuilder struct {
	engine      *domain.EngineConfig
	maxFileSize int64
	rotator     *UserAgentRotator
}

// NewOptionBuilder creates an option builder sharing the given rotator
func NewOptionBuilder(engine *domain.EngineConfig, maxFileSize int64, rotator *UserAgentRotator) *OptionBuilder {
	return &OptionBuilder{
		engine:      engine,
		maxFileSize: maxFileSize,
		rotator:     rotator,
	}
}

// Primary builds the first-attempt bundle for a request writing to outputPath
func (b *OptionBuilder) Primary(kind domain.MediaKind, quality, outputPath string) *domain.OptionBundle {
	userAgent := b.rotator.Current()

	bundle := &domain.OptionBundle{
		Variant:             VariantPrimary,
		OutputTemplate:      outputPath,
		Format:              domain.SelectFormat(kind, quality),
		NoPlaylist:          true,
		ConcurrentFragments: 1,
		Retries:             b.engine.Retries,
		FragmentRetries:     b.engine.FragmentRetries,
		SocketTimeout:       b.engine.SocketTimeout,
		GeoBypass:           true,
		SkipSubtitles:       true,
		SkipAutoSubtitles:   true,
		SkipThumbnails:      true,
		SkipInfoJSON:        true,
		SkipChapters:        true,
		UserAgent:           userAgent,
		Headers:             browserHeaders(userAgent),
		SleepInterval:       b.engine.SleepInterval,
		MaxSleepInterval:    b.engine.MaxSleepInterval,
		SleepRequests:       b.engine.SleepRequests,
		ExtractorArgs:       map[string]string{"youtube": primaryYouTubeArgs},
		PostProcessors:      postProcessors(kind, quality),
		MaxFileSize:         b.maxFileSize,
		CookieFile:          b.engine.CookieFile,
	}

	return bundle
}

// Metadata builds the bundle used for metadata-only extraction
func (b *OptionBuilder) Metadata(kind domain.MediaKind, quality string) *domain.OptionBundle {
	bundle := b.Primary(kind, quality, "")
	bundle.Variant = "metadata"
	bundle.PostProcessors = nil
	return bundle
}

// Fallback derives a retry bundle from prior. prior is left untouched.
func (b *OptionBuilder) Fallback(prior *domain.OptionBundle) *domain.OptionBundle {
	bundle := prior.Clone()

	userAgent := b.rotator.Next()
	bundle.Variant = VariantFallback
	bundle.UserAgent = userAgent
	if bundle.Headers == nil {
		bundle.Headers = browserHeaders(userAgent)
	}
	if bundle.ExtractorArgs == nil {
		bundle.ExtractorArgs = make(map[string]string)
	}
	bundle.Headers["User-Agent"] = userAgent
	bundle.ExtractorArgs["youtube"] = fallbackYouTubeArgs
	bundle.Format = domain.RelaxSelector(prior.Format)

	return bundle
}

func browserHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

func postProcessors(kind domain.MediaKind, quality string) []domain.PostProcessor {
	switch kind {
	case domain.KindAudio:
		return []domain.PostProcessor{{
			Kind:    domain.PostExtractAudio,
			Format:  "mp3",
			Quality: domain.AudioQuality(quality),
		}}
	case domain.KindVideo:
		return []domain.PostProcessor{{
			Kind:   domain.PostRemuxVideo,
			Format: "mp4",
		}}
	default:
		return nil
	}
}
