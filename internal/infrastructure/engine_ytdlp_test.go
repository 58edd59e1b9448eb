package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/pkg/logger"
)

func testBundle() *domain.OptionBundle {
	return &domain.OptionBundle{
		Variant:             "primary",
		OutputTemplate:      "/tmp/downloads/clip_1a2b3c4d.%(ext)s",
		Format:              "best[ext=mp4]/best",
		NoPlaylist:          true,
		ConcurrentFragments: 1,
		Retries:             5,
		FragmentRetries:     5,
		SocketTimeout:       60 * time.Second,
		GeoBypass:           true,
		SkipSubtitles:       true,
		SkipThumbnails:      true,
		UserAgent:           "UA/1.0",
		Headers: map[string]string{
			"User-Agent":      "UA/1.0",
			"Accept-Language": "en-US",
			"Accept":          "*/*",
		},
		SleepInterval:    time.Second,
		MaxSleepInterval: 3 * time.Second,
		SleepRequests:    500 * time.Millisecond,
		ExtractorArgs:    map[string]string{"youtube": "player_client=android,web"},
		PostProcessors:   []domain.PostProcessor{{Kind: domain.PostExtractAudio, Format: "mp3", Quality: "320"}},
		MaxFileSize:      1024,
		CookieFile:       "/nonexistent/cookies.txt",
	}
}

// argValue returns the value following flag, or "" if absent
func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(testBundle())

	assert.Equal(t, "/tmp/downloads/clip_1a2b3c4d.%(ext)s", argValue(args, "-o"))
	assert.Contains(t, args, "--no-mtime")
	assert.Equal(t, "best[ext=mp4]/best", argValue(args, "-f"))
	assert.Contains(t, args, "--no-playlist")
	assert.Equal(t, "5", argValue(args, "--retries"))
	assert.Equal(t, "5", argValue(args, "--fragment-retries"))
	assert.Equal(t, "60", argValue(args, "--socket-timeout"))
	assert.Contains(t, args, "--geo-bypass")
	assert.Contains(t, args, "--no-write-subs")
	assert.Contains(t, args, "--no-write-thumbnail")
	assert.NotContains(t, args, "--no-write-info-json")
	assert.Equal(t, "UA/1.0", argValue(args, "--user-agent"))
	assert.Equal(t, "1", argValue(args, "--sleep-interval"))
	assert.Equal(t, "3", argValue(args, "--max-sleep-interval"))
	assert.Equal(t, "0.5", argValue(args, "--sleep-requests"))
	assert.Equal(t, "youtube:player_client=android,web", argValue(args, "--extractor-args"))
	assert.Contains(t, args, "-x")
	assert.Equal(t, "mp3", argValue(args, "--audio-format"))
	assert.Equal(t, "320K", argValue(args, "--audio-quality"))
	assert.Equal(t, "1024", argValue(args, "--max-filesize"))
	assert.NotContains(t, args, "--cookies", "missing cookie file must be skipped")

	// Headers sorted, User-Agent not duplicated
	var headers []string
	for i, a := range args {
		if a == "--add-header" {
			headers = append(headers, args[i+1])
		}
	}
	assert.Equal(t, []string{"Accept:*/*", "Accept-Language:en-US"}, headers)
}

func TestBuildArgs_RemuxAndCookies(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# Netscape"), 0644))

	opts := &domain.OptionBundle{
		PostProcessors: []domain.PostProcessor{{Kind: domain.PostRemuxVideo, Format: "mp4"}},
		CookieFile:     cookies,
	}
	args := BuildArgs(opts)

	assert.Equal(t, "mp4", argValue(args, "--remux-video"))
	assert.Equal(t, cookies, argValue(args, "--cookies"))
	assert.NotContains(t, args, "-o")
	assert.NotContains(t, args, "-x")
	assert.Contains(t, args, "--no-mtime", "set even on a minimal bundle")
}

func TestParseExtraction(t *testing.T) {
	data := []byte(`{"id":"abc","title":"Clip","duration":65.5,"ext":"webm",
		"filesize":null,"filesize_approx":2048.7,"extractor_key":"Youtube",
		"view_count":42,"uploader":"someone","thumbnail":"https://img"}`)

	result, err := ParseExtraction(data)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.ID)
	assert.Equal(t, "Clip", result.Title)
	assert.Equal(t, 65.5, result.Duration)
	assert.Equal(t, "webm", result.Ext)
	assert.Equal(t, int64(2048), result.Filesize)
	assert.Equal(t, "Youtube", result.ExtractorKey)
	assert.Equal(t, int64(42), result.ViewCount)

	_, err = ParseExtraction([]byte("not json"))
	assert.ErrorIs(t, err, domain.ErrEngineFailure)
}

func TestEngineErrorMessage(t *testing.T) {
	stderr := []byte("[youtube] abc: Downloading webpage\nWARNING: something\nERROR: [youtube] abc: Video unavailable\n")
	assert.Equal(t, "[youtube] abc: Video unavailable", engineErrorMessage(stderr, nil))

	assert.Equal(t, "last words", engineErrorMessage([]byte("first\nlast words\n"), nil))
	assert.Contains(t, engineErrorMessage(nil, os.ErrNotExist), "yt-dlp failed")
}

// fakeYTDLP writes a shell script standing in for the yt-dlp binary
func fakeYTDLP(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestYTDLPEngine_ExtractInfo(t *testing.T) {
	binary := fakeYTDLP(t, `echo '{"id":"x1","title":"Hello","ext":"mp4"}'`)
	engine := NewYTDLPEngine(binary, "", nil)

	result, err := engine.ExtractInfo(context.Background(), "https://example.com/v", testBundle())
	require.NoError(t, err)
	assert.Equal(t, "Hello", result.Title)
}

func TestYTDLPEngine_DownloadReportsPathAndLogs(t *testing.T) {
	logsDir := t.TempDir()
	binary := fakeYTDLP(t, `echo "[download] 100%" >&2
echo "/tmp/downloads/clip_1a2b3c4d.mp4"`)
	engine := NewYTDLPEngine(binary, logsDir, nil)

	path, err := engine.Download(context.Background(), "https://example.com/v", testBundle())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/downloads/clip_1a2b3c4d.mp4", path)

	data, err := os.ReadFile(logger.CategoryLogPath(logsDir, logger.CategoryEngine, time.Now()))
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "$ "+binary)
	assert.Contains(t, log, "[download] 100%")
	assert.Contains(t, log, "SUCCESS: primary finished")
	assert.True(t, strings.HasSuffix(log, "=== END ===\n\n"))
}

func TestYTDLPEngine_Failure(t *testing.T) {
	binary := fakeYTDLP(t, `echo "ERROR: HTTP Error 403: Forbidden" >&2
exit 1`)
	engine := NewYTDLPEngine(binary, t.TempDir(), nil)

	_, err := engine.Download(context.Background(), "https://example.com/v", testBundle())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEngineFailure)
	assert.Contains(t, err.Error(), "HTTP Error 403: Forbidden")
}

func TestYTDLPEngine_MissingBinary(t *testing.T) {
	engine := NewYTDLPEngine(filepath.Join(t.TempDir(), "missing"), "", nil)

	_, err := engine.ExtractInfo(context.Background(), "https://example.com/v", testBundle())
	assert.ErrorIs(t, err, domain.ErrEngineFailure)
}

func TestShellEscapeCommand(t *testing.T) {
	cmd := ShellEscapeCommand("yt-dlp", "-o", "/tmp/a b/%(ext)s", "https://x.com/a?b=1")
	assert.Equal(t, "yt-dlp -o '/tmp/a b/%(ext)s' 'https://x.com/a?b=1'", cmd)
}
