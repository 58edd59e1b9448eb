package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/app"
	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
	"github.com/yourusername/media-proxy-go/pkg/logger"
)

const routerTestDir = "/srv/media"

// stubEngine writes a fixed payload for every download
type stubEngine struct {
	mu          sync.Mutex
	fs          afero.Fs
	title       string
	infoErr     error
	downloadErr error
	payload     []byte
}

func (e *stubEngine) ExtractInfo(ctx context.Context, url string, opts *domain.OptionBundle) (*domain.ExtractionResult, error) {
	if e.infoErr != nil {
		return nil, e.infoErr
	}
	return &domain.ExtractionResult{
		Title:        e.title,
		Ext:          "mp4",
		Duration:     125,
		Filesize:     3 * 1024 * 1024,
		ExtractorKey: "Youtube",
		Uploader:     "someone",
	}, nil
}

func (e *stubEngine) Download(ctx context.Context, url string, opts *domain.OptionBundle) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.downloadErr != nil {
		return "", e.downloadErr
	}
	path := strings.Replace(opts.OutputTemplate, "%(ext)s", "mp4", 1)
	return path, afero.WriteFile(e.fs, path, e.payload, 0644)
}

type routerFixture struct {
	fs      afero.Fs
	engine  *stubEngine
	history *infrastructure.SQLiteHistoryRepository
	handler http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	storage := infrastructure.NewAferoStorage(fs, routerTestDir, ".gitkeep")
	require.NoError(t, storage.Ensure())

	engine := &stubEngine{fs: fs, title: "Router Clip", payload: bytes.Repeat([]byte("v"), 20000)}

	config := domain.DefaultConfig()
	rotator := app.NewUserAgentRotator(config.Engine.UserAgents)
	builder := app.NewOptionBuilder(&config.Engine, config.Download.MaxFileSize, rotator)
	pool := app.NewWorkerPool(2)
	metrics := infrastructure.NewMetrics()

	orch := app.NewOrchestrator(engine, nil, storage, builder, pool, metrics, zap.NewNop(),
		app.WithIDGenerator(func() string { return "0badcafe" }))
	previewer := app.NewPreviewer(engine, nil, builder, pool, metrics, zap.NewNop())

	history, err := infrastructure.NewSQLiteHistoryRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	multiLogger, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { multiLogger.Close() })
	logAdapter := logger.NewLoggerAdapter(zap.NewNop(), multiLogger)

	service := app.NewDownloadService(orch, previewer, storage, history, metrics, logAdapter)
	janitor := app.NewJanitor(storage, &config.Download, metrics, logAdapter)

	handler := SetupRouter(service, janitor, pool, metrics, logAdapter, t.TempDir())
	return &routerFixture{fs: fs, engine: engine, history: history, handler: handler}
}

func (f *routerFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouter_DownloadThenFetch(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/download", mediaBody("https://example.com/v", "mp4"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Download completed successfully!", resp["message"])
	assert.Equal(t, "Router_Clip_0badcafe.mp4", resp["filename"])
	assert.Equal(t, "/downloads/Router_Clip_0badcafe.mp4", resp["download_url"])

	w = f.do(http.MethodGet, "/downloads/Router_Clip_0badcafe.mp4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, 20000, w.Body.Len())

	exists, _ := afero.Exists(f.fs, filepath.Join(routerTestDir, "Router_Clip_0badcafe.mp4"))
	assert.False(t, exists, "file must be deleted after it is served")

	w = f.do(http.MethodGet, "/downloads/Router_Clip_0badcafe.mp4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_DownloadInvalidInput(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/download", mediaBody("ftp://x", "mp4"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Invalid URL provided", resp["message"])

	w = f.do(http.MethodPost, "/api/download", mediaBody("https://example.com/v", "gif"))
	resp = decode(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["message"], "Unsupported format")

	w = f.do(http.MethodPost, "/api/download", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_StreamDownload(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/stream-download", mediaBody("https://example.com/v", "MP4"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="Router_Clip_0badcafe.mp4"`)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, 20000, w.Body.Len())

	files, err := afero.ReadDir(f.fs, routerTestDir)
	require.NoError(t, err)
	for _, file := range files {
		assert.Equal(t, ".gitkeep", file.Name())
	}

	records, err := f.history.FindAll(nil, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Streamed)
}

func TestRouter_StreamDownloadErrors(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/stream-download", mediaBody("not-a-url", "MP4"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.engine.downloadErr = domain.EngineError("HTTP Error 403: Forbidden")
	w = f.do(http.MethodPost, "/api/stream-download", mediaBody("https://example.com/v", "MP4"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode(t, w)
	assert.Contains(t, resp["message"], "HTTP Error 403")
	assert.Equal(t, string(domain.KindDownloadFailure), resp["error_kind"])
}

func TestRouter_MediaInfo(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/media-info", mediaBody("https://example.com/v", "MP4"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Router Clip", resp["title"])
	assert.Equal(t, "2m 5s", resp["duration"])
	assert.Equal(t, "3.0 MB", resp["filesize"])
	assert.Equal(t, "Youtube", resp["platform"])

	f.engine.infoErr = domain.EngineError("Unsupported URL")
	w = f.do(http.MethodPost, "/api/media-info", mediaBody("https://example.com/v", "MP4"))
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["message"], "Could not extract media information")
}

func TestRouter_ServeFileRejectsTraversal(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/downloads/.gitkeep", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/downloads/..%5Cetc%5Cpasswd", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Cleanup(t *testing.T) {
	f := newRouterFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(routerTestDir, "a.mp4"), []byte("a"), 0644))

	w := f.do(http.MethodPost, "/api/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Cleaned up 1 files", resp["message"])

	resp = decode(t, f.do(http.MethodPost, "/api/cleanup", nil))
	assert.Equal(t, "Downloads directory is already clean", resp["message"])
}

func TestRouter_CatalogAndHistory(t *testing.T) {
	f := newRouterFixture(t)

	resp := decode(t, f.do(http.MethodGet, "/api/platforms", nil))
	assert.Contains(t, resp["platforms"], "YouTube")

	resp = decode(t, f.do(http.MethodGet, "/api/formats", nil))
	assert.Len(t, resp["formats"], 3)

	f.do(http.MethodPost, "/api/download", mediaBody("https://example.com/v", "MP3"))

	resp = decode(t, f.do(http.MethodGet, "/api/downloads?format=mp3", nil))
	assert.Equal(t, float64(1), resp["count"])
	resp = decode(t, f.do(http.MethodGet, "/api/downloads?format=MP4", nil))
	assert.Equal(t, float64(0), resp["count"])

	w := f.do(http.MethodGet, "/api/downloads?format=gif", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp = decode(t, f.do(http.MethodGet, "/api/downloads/stats", nil))
	assert.Equal(t, float64(1), resp["total"])
	assert.Equal(t, float64(1), resp["completed"])
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	workers := resp["workers"].(map[string]interface{})
	assert.Equal(t, float64(2), workers["size"])

	// Janitor was never started
	w = f.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.do(http.MethodPost, "/api/download", mediaBody("https://example.com/v", "MP4"))
	w = f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "media_proxy_download_attempts_total")
}

func TestRouter_LogsAndIndex(t *testing.T) {
	f := newRouterFixture(t)
	f.do(http.MethodPost, "/api/download", mediaBody("https://example.com/v", "MP4"))

	resp := decode(t, f.do(http.MethodGet, "/api/logs/categories", nil))
	assert.Len(t, resp["categories"], 3)

	w := f.do(http.MethodGet, "/api/logs/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.GreaterOrEqual(t, resp["count"], float64(1))

	w = f.do(http.MethodGet, "/api/logs/queue", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/logs/download?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Media Proxy")

	w = f.do(http.MethodOptions, "/api/download", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// mediaBody builds a request body for the media endpoints
func mediaBody(url, format string) map[string]string {
	return map[string]string{"url": url, "format": format, "quality": "best"}
}
