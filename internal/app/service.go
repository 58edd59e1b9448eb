package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
	"github.com/yourusername/media-proxy-go/pkg/logger"
)

// DownloadService is the entry point used by the HTTP layer
type DownloadService struct {
	orchestrator *Orchestrator
	previewer    *Previewer
	storage      domain.MediaStorage
	history      domain.HistoryRepository
	metrics      *infrastructure.Metrics
	log          *logger.LoggerAdapter
}

// NewDownloadService creates a new download service. history may be nil,
// in which case outcomes are not recorded.
func NewDownloadService(
	orchestrator *Orchestrator,
	previewer *Previewer,
	storage domain.MediaStorage,
	history domain.HistoryRepository,
	metrics *infrastructure.Metrics,
	log *logger.LoggerAdapter,
) *DownloadService {
	if log == nil {
		log = logger.NewNopAdapter()
	}
	return &DownloadService{
		orchestrator: orchestrator,
		previewer:    previewer,
		storage:      storage,
		history:      history,
		metrics:      metrics,
		log:          log,
	}
}

// Download materializes the media on disk and leaves it for a later
// OpenFile call
func (s *DownloadService) Download(ctx context.Context, req domain.DownloadRequest) *domain.DownloadOutcome {
	outcome := s.orchestrator.Download(ctx, req)
	s.record(req, outcome, false)
	return outcome
}

// StreamDownload downloads the media and opens it for streaming. When the
// outcome is unsuccessful the stream is nil.
func (s *DownloadService) StreamDownload(ctx context.Context, req domain.DownloadRequest) (*MediaStream, *domain.DownloadOutcome) {
	outcome := s.orchestrator.Download(ctx, req)
	if !outcome.Success {
		s.record(req, outcome, true)
		return nil, outcome
	}

	file := &domain.StoredFile{Name: outcome.Filename, Path: outcome.Filepath, Size: outcome.SizeBytes}
	stream, err := OpenStream(s.storage, file, req.Kind, s.metrics, s.log.App())
	if err != nil {
		s.log.LogAppError("Failed to open downloaded file",
			zap.String("path", outcome.Filepath),
			zap.Error(err))
		if _, rmErr := s.storage.Remove(outcome.Filepath); rmErr != nil {
			s.log.App().Warn("Failed to remove unopened file", zap.Error(rmErr))
		}
		outcome = domain.FailedOutcome(domain.NewMediaError(domain.KindUnexpectedFailure,
			fmt.Sprintf("An unexpected error occurred: %s", err), err), outcome.Attempts)
		outcome.Kind = req.Kind
	}

	s.record(req, outcome, true)
	return stream, outcome
}

// OpenFile opens a previously downloaded file by its client-facing name.
// The content type follows the file extension.
func (s *DownloadService) OpenFile(filename string) (*MediaStream, error) {
	path, err := s.storage.Resolve(filename)
	if err != nil {
		return nil, domain.NewMediaError(domain.KindInvalidInput, "Invalid filename", err)
	}

	file, err := s.storage.Stat(path)
	if err != nil {
		return nil, err
	}

	kind := domain.KindFromExtension(filepath.Ext(file.Name))
	return OpenStream(s.storage, file, kind, s.metrics, s.log.App())
}

// MediaInfo previews a URL without downloading it
func (s *DownloadService) MediaInfo(ctx context.Context, req domain.DownloadRequest) (*domain.MediaInfo, error) {
	return s.previewer.Preview(ctx, req)
}

// Cleanup removes every file in the downloads directory except the placeholder
func (s *DownloadService) Cleanup() (int, error) {
	removed, err := s.storage.Cleanup()
	if err != nil {
		s.log.LogAppError("Cleanup failed", zap.Int("removed", removed), zap.Error(err))
		return removed, err
	}
	s.log.LogDownloadEvent("cleanup", zap.Int("removed", removed))
	return removed, nil
}

// ListHistory returns recorded outcomes, newest first
func (s *DownloadService) ListHistory(filters map[string]interface{}, limit int) ([]*domain.DownloadRecord, error) {
	if s.history == nil {
		return []*domain.DownloadRecord{}, nil
	}
	return s.history.FindAll(filters, limit)
}

// HistoryStats returns aggregate counts over recorded outcomes
func (s *DownloadService) HistoryStats() (*domain.HistoryStats, error) {
	if s.history == nil {
		return &domain.HistoryStats{
			ByKind:  map[domain.MediaKind]int64{},
			ByError: map[domain.ErrorKind]int64{},
		}, nil
	}
	return s.history.GetStats()
}

// HistoryEnabled reports whether outcomes are being recorded
func (s *DownloadService) HistoryEnabled() bool {
	return s.history != nil
}

// Platforms lists the platforms advertised to clients
func (s *DownloadService) Platforms() []string {
	return domain.SupportedPlatforms
}

// Formats lists the formats advertised to clients
func (s *DownloadService) Formats() []domain.FormatSpec {
	return domain.SupportedFormats
}

func (s *DownloadService) record(req domain.DownloadRequest, outcome *domain.DownloadOutcome, streamed bool) {
	if outcome.Success {
		s.log.LogDownloadEvent("download_completed",
			zap.String("url", req.URL),
			zap.String("kind", string(req.Kind)),
			zap.String("quality", req.Quality),
			zap.String("filename", outcome.Filename),
			zap.Int64("size_bytes", outcome.SizeBytes),
			zap.Int("attempts", outcome.Attempts),
			zap.Bool("streamed", streamed))
	} else {
		s.log.LogDownloadEvent("download_failed",
			zap.String("url", req.URL),
			zap.String("kind", string(req.Kind)),
			zap.String("error_kind", string(outcome.ErrorKind)),
			zap.String("error", outcome.ErrorMessage),
			zap.Int("attempts", outcome.Attempts),
			zap.Bool("streamed", streamed))
	}

	// Invalid input never reached the engine; keep it out of history
	if s.history == nil || outcome.ErrorKind == domain.KindInvalidInput {
		return
	}

	record := domain.NewDownloadRecord(req, streamed)
	record.ApplyOutcome(outcome)
	if err := s.history.Create(record); err != nil {
		s.log.LogAppError("Failed to record download history",
			zap.String("url", req.URL),
			zap.Error(err))
	}
}

// IsNotFound reports whether err means a requested file does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrFileNotFound)
}
