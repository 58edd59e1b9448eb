package app

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
)

// ChunkSize is the size of each chunk handed to the client
const ChunkSize = 8 * 1024

// MediaStream serves a downloaded file in fixed-size chunks and deletes it
// exactly once, after the last chunk or when the consumer closes early.
type MediaStream struct {
	Filename    string
	ContentType string
	Size        int64

	path    string
	reader  io.ReadCloser
	storage domain.MediaStorage
	metrics *infrastructure.Metrics
	logger  *zap.Logger
	buf     []byte
	sent    int64

	releaseOnce sync.Once
	releaseErr  error
}

// OpenStream opens file for streaming. On error the file is left in place.
func OpenStream(
	storage domain.MediaStorage,
	file *domain.StoredFile,
	kind domain.MediaKind,
	metrics *infrastructure.Metrics,
	logger *zap.Logger,
) (*MediaStream, error) {
	reader, err := storage.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MediaStream{
		Filename:    file.Name,
		ContentType: kind.ContentType(),
		Size:        file.Size,
		path:        file.Path,
		reader:      reader,
		storage:     storage,
		metrics:     metrics,
		logger:      logger,
		buf:         make([]byte, ChunkSize),
	}, nil
}

// Next returns the next chunk of at most ChunkSize bytes. It returns io.EOF
// once the file is drained, at which point the file has been deleted. The
// returned slice is only valid until the next call.
func (s *MediaStream) Next() ([]byte, error) {
	n, err := io.ReadFull(s.reader, s.buf)
	if n > 0 {
		s.sent += int64(n)
		return s.buf[:n], nil
	}
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		if cerr := s.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, io.EOF
	}
	if err == nil {
		return nil, io.ErrNoProgress
	}
	s.Close()
	return nil, fmt.Errorf("failed to read %s: %w", s.Filename, err)
}

// WriteTo copies every chunk to w, then releases the file. The file is
// deleted even when w fails part way.
func (s *MediaStream) WriteTo(w io.Writer) (int64, error) {
	defer s.Close()

	var written int64
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write chunk: %w", err)
		}
	}
}

// Close releases the reader and deletes the backing file. It is safe to call
// more than once; only the first call does any work.
func (s *MediaStream) Close() error {
	s.releaseOnce.Do(func() {
		if err := s.reader.Close(); err != nil {
			s.logger.Warn("Failed to close media file",
				zap.String("file", s.path),
				zap.Error(err))
		}

		removed, err := s.storage.Remove(s.path)
		switch {
		case err != nil:
			s.releaseErr = err
			s.logger.Error("Failed to clean up file",
				zap.String("file", s.path),
				zap.Error(err))
		case !removed:
			s.logger.Info("File already removed",
				zap.String("file", s.path))
		default:
			s.logger.Info("Cleaned up temporary file",
				zap.String("file", s.path),
				zap.Int64("bytes_sent", s.sent))
		}

		s.metrics.AddBytesServed(s.sent)
	})
	return s.releaseErr
}

// BytesSent returns the number of bytes handed out so far
func (s *MediaStream) BytesSent() int64 {
	return s.sent
}
