package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
)

const unknownValue = "Unknown"

// Previewer fetches display metadata for a URL without downloading it
type Previewer struct {
	engine   domain.Engine
	resolver domain.URLResolver
	builder  *OptionBuilder
	pool     *WorkerPool
	metrics  *infrastructure.Metrics
	logger   *zap.Logger
}

// NewPreviewer creates a previewer. resolver and metrics may be nil.
func NewPreviewer(
	engine domain.Engine,
	resolver domain.URLResolver,
	builder *OptionBuilder,
	pool *WorkerPool,
	metrics *infrastructure.Metrics,
	logger *zap.Logger,
) *Previewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Previewer{
		engine:   engine,
		resolver: resolver,
		builder:  builder,
		pool:     pool,
		metrics:  metrics,
		logger:   logger,
	}
}

// Preview runs one metadata-only engine call and formats the result
func (p *Previewer) Preview(ctx context.Context, req domain.DownloadRequest) (*domain.MediaInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	url := req.URL
	if p.resolver != nil {
		url = p.resolver.Resolve(ctx, url)
	}

	bundle := p.builder.Metadata(req.Kind, req.Quality)

	var result *domain.ExtractionResult
	started := time.Now()
	err := p.pool.Run(ctx, context.WithoutCancel(ctx), func(jobCtx context.Context) error {
		var err error
		result, err = p.engine.ExtractInfo(jobCtx, url, bundle)
		return err
	})
	p.metrics.ObserveEngineCall("metadata", time.Since(started).Seconds())

	if err == nil && result == nil {
		err = domain.EngineError("no metadata returned")
	}
	if err != nil {
		p.logger.Warn("Media info extraction failed",
			zap.String("url", url),
			zap.Error(err))
		return nil, domain.NewMediaError(domain.KindMetadataFailure,
			fmt.Sprintf("Could not extract media information: %s", err), err)
	}

	return FormatMediaInfo(result), nil
}

// FormatMediaInfo converts engine metadata into display strings
func FormatMediaInfo(r *domain.ExtractionResult) *domain.MediaInfo {
	return &domain.MediaInfo{
		Title:     orDefault(r.Title, "Unknown Title"),
		Duration:  FormatDuration(r.Duration),
		Thumbnail: r.Thumbnail,
		Platform:  orDefault(r.ExtractorKey, unknownValue),
		Filesize:  FormatFileSize(r.Filesize),
		Uploader:  orDefault(r.Uploader, unknownValue),
		ViewCount: r.ViewCount,
	}
}

// FormatDuration renders seconds as "1h 2m 5s", omitting zero leading units
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return unknownValue
	}

	total := int64(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// FormatFileSize renders a byte count with binary units and one decimal
func FormatFileSize(size int64) string {
	if size <= 0 {
		return unknownValue
	}

	units := []string{"B", "KB", "MB", "GB"}
	value := float64(size)
	for _, unit := range units {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
