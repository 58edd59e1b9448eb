package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/pkg/logger"
)

// mockHistoryRepo implements domain.HistoryRepository for testing
type mockHistoryRepo struct {
	mu        sync.Mutex
	records   []*domain.DownloadRecord
	createErr error
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{}
}

func (m *mockHistoryRepo) Create(record *domain.DownloadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockHistoryRepo) FindByID(id string) (*domain.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockHistoryRepo) FindAll(filters map[string]interface{}, limit int) ([]*domain.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.DownloadRecord, 0, len(m.records))
	for _, r := range m.records {
		if status, ok := filters["status"]; ok && status != r.Status {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockHistoryRepo) GetStats() (*domain.HistoryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.HistoryStats{
		ByKind:  map[domain.MediaKind]int64{},
		ByError: map[domain.ErrorKind]int64{},
	}
	for _, r := range m.records {
		stats.Total++
		stats.ByKind[r.Kind]++
		if r.IsCompleted() {
			stats.Completed++
			stats.TotalBytes += r.SizeBytes
		} else {
			stats.Failed++
			stats.ByError[r.ErrorKind]++
		}
	}
	return stats, nil
}

func (m *mockHistoryRepo) Close() error {
	return nil
}

type serviceFixture struct {
	*orchestratorFixture
	history *mockHistoryRepo
	service *DownloadService
}

func newServiceFixture(t *testing.T, steps ...downloadStep) *serviceFixture {
	t.Helper()
	f := newOrchestratorFixture(t, steps...)

	config := domain.DefaultConfig()
	builder := NewOptionBuilder(&config.Engine, config.Download.MaxFileSize, f.rotator)
	previewer := NewPreviewer(f.engine, nil, builder, NewWorkerPool(1), nil, zap.NewNop())

	history := newMockHistoryRepo()
	service := NewDownloadService(f.orch, previewer, f.storage, history, nil, logger.NewNopAdapter())
	return &serviceFixture{orchestratorFixture: f, history: history, service: service}
}

func TestService_DownloadRecordsHistory(t *testing.T) {
	f := newServiceFixture(t, writeAs("mp4"))

	outcome := f.service.Download(context.Background(), videoRequest("https://example.com/v"))
	require.True(t, outcome.Success, outcome.ErrorMessage)

	// File stays on disk until fetched
	exists, err := afero.Exists(f.fs, outcome.Filepath)
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, f.history.records, 1)
	record := f.history.records[0]
	assert.Equal(t, domain.StatusCompleted, record.Status)
	assert.Equal(t, outcome.Filename, record.Filename)
	assert.False(t, record.Streamed)
	assert.Equal(t, 1, record.Attempts)
}

func TestService_FailedDownloadRecorded(t *testing.T) {
	f := newServiceFixture(t, failWithPartial("HTTP Error 403"), failWithPartial("HTTP Error 429"))

	outcome := f.service.Download(context.Background(), videoRequest("https://example.com/v"))
	require.False(t, outcome.Success)

	require.Len(t, f.history.records, 1)
	assert.Equal(t, domain.StatusFailed, f.history.records[0].Status)
	assert.Equal(t, domain.KindDownloadFailure, f.history.records[0].ErrorKind)
	assert.Contains(t, f.history.records[0].ErrorMessage, "HTTP Error 429")
}

func TestService_InvalidInputNotRecorded(t *testing.T) {
	f := newServiceFixture(t)

	outcome := f.service.Download(context.Background(), videoRequest("ftp://x"))
	assert.Equal(t, domain.KindInvalidInput, outcome.ErrorKind)
	assert.Empty(t, f.history.records)
}

func TestService_HistoryErrorDoesNotFailDownload(t *testing.T) {
	f := newServiceFixture(t, writeAs("mp4"))
	f.history.createErr = errors.New("disk full")

	outcome := f.service.Download(context.Background(), videoRequest("https://example.com/v"))
	assert.True(t, outcome.Success)
}

func TestService_StreamDownloadDeletesAfterDrain(t *testing.T) {
	f := newServiceFixture(t, writeAs("mp4"))

	stream, outcome := f.service.StreamDownload(context.Background(), videoRequest("https://example.com/v"))
	require.True(t, outcome.Success, outcome.ErrorMessage)
	require.NotNil(t, stream)
	assert.Equal(t, "video/mp4", stream.ContentType)

	var buf bytes.Buffer
	_, err := stream.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "media-bytes", buf.String())

	exists, err := afero.Exists(f.fs, outcome.Filepath)
	require.NoError(t, err)
	assert.False(t, exists)

	require.Len(t, f.history.records, 1)
	assert.True(t, f.history.records[0].Streamed)
}

func TestService_StreamDownloadFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.engine.infoErr = domain.EngineError("Unsupported URL")

	stream, outcome := f.service.StreamDownload(context.Background(), videoRequest("https://example.com/v"))
	assert.Nil(t, stream)
	assert.False(t, outcome.Success)
	assert.Equal(t, domain.KindMetadataFailure, outcome.ErrorKind)
}

func TestService_OpenFile(t *testing.T) {
	f := newServiceFixture(t)
	path := filepath.Join(testDir, "song_1a2b3c4d.mp3")
	require.NoError(t, afero.WriteFile(f.fs, path, []byte("mp3"), 0644))

	stream, err := f.service.OpenFile("song_1a2b3c4d.mp3")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", stream.ContentType)
	assert.Equal(t, int64(3), stream.Size)
	require.NoError(t, stream.Close())

	exists, err := afero.Exists(f.fs, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_OpenFileErrors(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.OpenFile("missing.mp4")
	assert.True(t, IsNotFound(err))

	_, err = f.service.OpenFile("../etc/passwd")
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	_, err = f.service.OpenFile(".gitkeep")
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestService_Cleanup(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(testDir, "a.mp4"), []byte("a"), 0644))
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(testDir, "b.mp3"), []byte("b"), 0644))

	removed, err := f.service.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	exists, err := afero.Exists(f.fs, filepath.Join(testDir, ".gitkeep"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestService_MediaInfo(t *testing.T) {
	f := newServiceFixture(t)
	f.engine.info = &domain.ExtractionResult{Title: "Clip", Duration: 65, ExtractorKey: "Youtube", Filesize: 2048}

	info, err := f.service.MediaInfo(context.Background(), videoRequest("https://example.com/v"))
	require.NoError(t, err)
	assert.Equal(t, "Clip", info.Title)
	assert.Equal(t, "1m 5s", info.Duration)
	assert.Equal(t, "2.0 KB", info.Filesize)
}

func TestService_HistoryQueries(t *testing.T) {
	f := newServiceFixture(t, writeAs("mp4"), failWithPartial("a"), failWithPartial("b"))

	f.service.Download(context.Background(), videoRequest("https://example.com/ok"))
	f.service.Download(context.Background(), videoRequest("https://example.com/bad"))

	all, err := f.service.ListHistory(nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := f.service.ListHistory(map[string]interface{}{"status": domain.StatusFailed}, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	stats, err := f.service.HistoryStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.ByError[domain.KindDownloadFailure])
}

func TestService_WithoutHistory(t *testing.T) {
	f := newOrchestratorFixture(t, writeAs("mp4"))
	service := NewDownloadService(f.orch, nil, f.storage, nil, nil, nil)

	outcome := service.Download(context.Background(), videoRequest("https://example.com/v"))
	assert.True(t, outcome.Success)
	assert.False(t, service.HistoryEnabled())

	records, err := service.ListHistory(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	stats, err := service.HistoryStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	assert.NotEmpty(t, service.Platforms())
	assert.Len(t, service.Formats(), 3)
}
