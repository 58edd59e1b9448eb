package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
)

// DefaultAttempts is the number of engine download attempts per request:
// the primary bundle and one fallback
const DefaultAttempts = 2

// Orchestrator drives a download request from validation to a file on disk
type Orchestrator struct {
	engine    domain.Engine
	resolver  domain.URLResolver
	storage   domain.MediaStorage
	builder   *OptionBuilder
	pool      *WorkerPool
	metrics   *infrastructure.Metrics
	logger    *zap.Logger
	attempts  int
	scanSlack time.Duration
	newID     func() string
}

// OrchestratorOption customizes an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithAttempts sets the number of download attempts, primary included
func WithAttempts(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithScanSlack widens the reconciliation scan window before attempt start
func WithScanSlack(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scanSlack = d
	}
}

// WithIDGenerator replaces the filename id source
func WithIDGenerator(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.newID = fn
	}
}

// NewOrchestrator creates a download orchestrator. resolver and metrics may be nil.
func NewOrchestrator(
	engine domain.Engine,
	resolver domain.URLResolver,
	storage domain.MediaStorage,
	builder *OptionBuilder,
	pool *WorkerPool,
	metrics *infrastructure.Metrics,
	logger *zap.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		resolver: resolver,
		storage:  storage,
		builder:  builder,
		pool:     pool,
		metrics:  metrics,
		logger:   logger,
		attempts: DefaultAttempts,
		newID:    shortID,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Download runs one request to completion. It never returns a nil outcome;
// failures are reported through the outcome, not as errors.
func (o *Orchestrator) Download(ctx context.Context, req domain.DownloadRequest) *domain.DownloadOutcome {
	outcome := o.download(ctx, req)
	o.metrics.ObserveOutcome(req.Kind, outcome)
	outcome.Kind = req.Kind
	return outcome
}

func (o *Orchestrator) download(ctx context.Context, req domain.DownloadRequest) *domain.DownloadOutcome {
	// VALIDATING
	if err := req.Validate(); err != nil {
		o.logger.Info("Rejected download request",
			zap.String("url", req.URL),
			zap.String("kind", string(req.Kind)),
			zap.Error(err))
		return domain.FailedOutcome(err, 0)
	}
	if req.Quality == "" {
		req.Quality = domain.DefaultQuality
	}

	// RESOLVING_URL
	url := o.resolve(ctx, req.URL)

	// FETCHING_METADATA
	info, err := o.fetchMetadata(ctx, url, req.Kind, req.Quality)
	if err != nil {
		o.logger.Error("Metadata extraction failed",
			zap.String("url", url),
			zap.Error(err))
		return domain.FailedOutcome(err, 0)
	}

	// ATTEMPTING
	title := domain.SanitizeFilename(info.Title)
	id := o.newID()
	ext := outputExtension(req.Kind, info.Ext)
	base := fmt.Sprintf("%s_%s", title, id)
	predicted := filepath.Join(o.storage.Dir(), base+"."+ext)
	template := filepath.Join(o.storage.Dir(), base+".%(ext)s")

	o.logger.Info("Starting download",
		zap.String("url", url),
		zap.String("kind", string(req.Kind)),
		zap.String("quality", req.Quality),
		zap.String("target", predicted))

	var (
		bundle  *domain.OptionBundle
		lastErr error
	)
	for attempt := 1; attempt <= o.attempts; attempt++ {
		if attempt == 1 {
			bundle = o.builder.Primary(req.Kind, req.Quality, template)
		} else {
			bundle = o.builder.Fallback(bundle)
			o.logger.Warn("Retrying download with fallback options",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", o.attempts),
				zap.Error(lastErr))
		}

		attemptStart := time.Now()
		reported, err := o.runDownload(ctx, url, bundle)
		o.metrics.ObserveAttempt(bundle.Variant, err)
		if err != nil {
			lastErr = err
			o.logger.Warn("Download attempt failed",
				zap.String("url", url),
				zap.String("variant", bundle.Variant),
				zap.Int("attempt", attempt),
				zap.Error(err))
			o.removeLeftovers(title, id)
			continue
		}

		// RECONCILING
		file, err := o.reconcile(reported, predicted, title, id, attemptStart)
		if err != nil {
			o.logger.Error("Download finished but output is missing",
				zap.String("url", url),
				zap.String("expected", predicted),
				zap.String("reported", reported))
			o.removeLeftovers(title, id)
			return domain.FailedOutcome(domain.NewMediaError(domain.KindReconciliationFailure,
				"Download completed but file not found", err), attempt)
		}

		if file.Path != predicted {
			o.logger.Info("Output name differs from prediction",
				zap.String("expected", predicted),
				zap.String("actual", file.Path))
		}
		o.logger.Info("Download completed",
			zap.String("url", url),
			zap.String("file", file.Path),
			zap.Int64("size", file.Size),
			zap.Int("attempts", attempt))

		return &domain.DownloadOutcome{
			Success:   true,
			Filename:  file.Name,
			Filepath:  file.Path,
			Title:     info.Title,
			SizeBytes: file.Size,
			Attempts:  attempt,
		}
	}

	o.logger.Error("Download failed after all attempts",
		zap.String("url", url),
		zap.Int("attempts", o.attempts),
		zap.Error(lastErr))

	return domain.FailedOutcome(classifyAttemptError(lastErr), o.attempts)
}

// resolve expands short links; any failure keeps the original URL
func (o *Orchestrator) resolve(ctx context.Context, url string) string {
	if o.resolver == nil {
		return url
	}
	resolved := o.resolver.Resolve(ctx, url)
	if resolved == "" {
		return url
	}
	if resolved != url {
		o.logger.Info("Resolved short link",
			zap.String("url", url),
			zap.String("resolved", resolved))
	}
	return resolved
}

func (o *Orchestrator) fetchMetadata(ctx context.Context, url string, kind domain.MediaKind, quality string) (*domain.ExtractionResult, error) {
	bundle := o.builder.Metadata(kind, quality)

	var info *domain.ExtractionResult
	started := time.Now()
	err := o.pool.Run(ctx, context.WithoutCancel(ctx), func(jobCtx context.Context) error {
		var err error
		info, err = o.engine.ExtractInfo(jobCtx, url, bundle)
		return err
	})
	o.metrics.ObserveEngineCall("metadata", time.Since(started).Seconds())

	if err == nil && info == nil {
		err = domain.EngineError("no metadata returned")
	}
	if err != nil {
		return nil, domain.NewMediaError(domain.KindMetadataFailure,
			fmt.Sprintf("Could not extract media information: %s", err), err)
	}
	return info, nil
}

func (o *Orchestrator) runDownload(ctx context.Context, url string, bundle *domain.OptionBundle) (string, error) {
	var reported string
	started := time.Now()
	err := o.pool.Run(ctx, context.WithoutCancel(ctx), func(jobCtx context.Context) error {
		var err error
		reported, err = o.engine.Download(jobCtx, url, bundle)
		return err
	})
	o.metrics.ObserveEngineCall("download", time.Since(started).Seconds())
	return reported, err
}

// reconcile locates the file an attempt produced: the engine-reported path,
// then the predicted path, then a scan bounded to this attempt's window
func (o *Orchestrator) reconcile(reported, predicted, title, id string, attemptStart time.Time) (*domain.StoredFile, error) {
	if reported != "" && strings.Contains(filepath.Base(reported), id) {
		if file, err := o.storage.Stat(reported); err == nil {
			return file, nil
		}
	}

	if file, err := o.storage.Stat(predicted); err == nil {
		return file, nil
	}

	return o.storage.FindOutput(title, id, attemptStart.Add(-o.scanSlack))
}

func (o *Orchestrator) removeLeftovers(title, id string) {
	removed, err := o.storage.RemoveMatching(title, id)
	if err != nil {
		o.logger.Warn("Failed to remove partial files",
			zap.String("id", id),
			zap.Error(err))
		return
	}
	if removed > 0 {
		o.logger.Debug("Removed partial files",
			zap.String("id", id),
			zap.Int("count", removed))
	}
}

// classifyAttemptError maps the last attempt error to its user-facing form
func classifyAttemptError(err error) error {
	if err == nil {
		err = errors.New("no attempts were made")
	}
	if errors.Is(err, domain.ErrEngineFailure) {
		return domain.NewMediaError(domain.KindDownloadFailure,
			fmt.Sprintf("Download failed: %s", err), err)
	}
	return domain.NewMediaError(domain.KindUnexpectedFailure,
		fmt.Sprintf("An unexpected error occurred: %s", err), err)
}

// outputExtension is the extension the final file is expected to carry
func outputExtension(kind domain.MediaKind, engineExt string) string {
	switch kind {
	case domain.KindAudio:
		return "mp3"
	case domain.KindVideo:
		return "mp4"
	default:
		ext := strings.TrimPrefix(strings.ToLower(engineExt), ".")
		if ext == "" {
			return "jpg"
		}
		return ext
	}
}

func shortID() string {
	return uuid.New().String()[:8]
}
