package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/pkg/logger"
)

// YTDLPEngine implements domain.Engine by running the yt-dlp binary
type YTDLPEngine struct {
	binary  string
	logsDir string
	logger  *zap.Logger
	logMu   sync.Mutex
}

// NewYTDLPEngine creates an engine. Raw yt-dlp output is appended to the
// engine category log in logsDir; an empty logsDir discards it.
func NewYTDLPEngine(binary, logsDir string, log *zap.Logger) *YTDLPEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &YTDLPEngine{
		binary:  binary,
		logsDir: logsDir,
		logger:  log,
	}
}

// ytdlpInfo is the subset of yt-dlp's JSON dump we read
type ytdlpInfo struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Duration       float64 `json:"duration"`
	Thumbnail      string  `json:"thumbnail"`
	Uploader       string  `json:"uploader"`
	Ext            string  `json:"ext"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
	ExtractorKey   string  `json:"extractor_key"`
	ViewCount      float64 `json:"view_count"`
	WebpageURL     string  `json:"webpage_url"`
}

// ExtractInfo runs yt-dlp in metadata-only mode
func (e *YTDLPEngine) ExtractInfo(ctx context.Context, url string, opts *domain.OptionBundle) (*domain.ExtractionResult, error) {
	args := append(BuildArgs(opts), "--dump-single-json", "--skip-download", url)

	stdout, err := e.run(ctx, "metadata", args)
	if err != nil {
		return nil, err
	}
	return ParseExtraction(stdout)
}

// Download runs yt-dlp and returns the final path it reports after
// post-processing, or "" if it printed none
func (e *YTDLPEngine) Download(ctx context.Context, url string, opts *domain.OptionBundle) (string, error) {
	args := append(BuildArgs(opts), "--no-simulate", "--print", "after_move:filepath", url)

	stdout, err := e.run(ctx, opts.Variant, args)
	if err != nil {
		return "", err
	}
	return lastLine(stdout), nil
}

// run executes yt-dlp, capturing stdout and teeing stderr into the engine log
func (e *YTDLPEngine) run(ctx context.Context, label string, args []string) ([]byte, error) {
	runID := uuid.New().String()[:8]
	cmdLine := ShellEscapeCommand(e.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdout = &stdout

	logFile, err := e.openLogFile()
	if err != nil {
		e.logger.Warn("Failed to open engine log", zap.Error(err))
		cmd.Stderr = &stderr
	} else {
		defer logFile.Close()
		cmd.Stderr = io.MultiWriter(&stderr, logFile)
		e.writeLogHeader(logFile, runID, label, cmdLine)
	}

	e.logger.Debug("Running yt-dlp",
		zap.String("run_id", runID),
		zap.String("mode", label),
		zap.String("command", cmdLine))

	err = cmd.Run()
	if err != nil {
		msg := engineErrorMessage(stderr.Bytes(), err)
		if logFile != nil {
			e.writeLogFooter(logFile, false, msg)
		}
		return nil, domain.EngineError("%s", msg)
	}

	if logFile != nil {
		e.writeLogFooter(logFile, true, fmt.Sprintf("%s finished", label))
	}
	return stdout.Bytes(), nil
}

// openLogFile opens today's engine log for appending
func (e *YTDLPEngine) openLogFile() (*os.File, error) {
	if e.logsDir == "" {
		return nil, fmt.Errorf("no logs directory configured")
	}
	if err := os.MkdirAll(e.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	path := logger.CategoryLogPath(e.logsDir, logger.CategoryEngine, time.Now())
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// writeLogHeader writes the run start marker
func (e *YTDLPEngine) writeLogHeader(w io.Writer, runID, label, cmdLine string) {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n=== [%s] %s: %s ===\n", timestamp, label, runID)
	fmt.Fprintf(w, "$ %s\n", cmdLine)
}

// writeLogFooter writes the run end marker
func (e *YTDLPEngine) writeLogFooter(w io.Writer, success bool, message string) {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, status, message)
	fmt.Fprint(w, "=== END ===\n\n")
}

// BuildArgs translates an option bundle into yt-dlp flags. Map-valued
// options are emitted in key order so the command line is stable.
func BuildArgs(opts *domain.OptionBundle) []string {
	// Output mtime must be the download time: reconciliation and the
	// janitor both compare against it
	args := []string{"--newline", "--no-color", "--no-mtime"}

	if opts.OutputTemplate != "" {
		args = append(args, "-o", opts.OutputTemplate)
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.NoPlaylist {
		args = append(args, "--no-playlist")
	}
	if opts.ConcurrentFragments > 0 {
		args = append(args, "--concurrent-fragments", strconv.Itoa(opts.ConcurrentFragments))
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	if opts.FragmentRetries > 0 {
		args = append(args, "--fragment-retries", strconv.Itoa(opts.FragmentRetries))
	}
	if opts.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", seconds(opts.SocketTimeout))
	}
	if opts.GeoBypass {
		args = append(args, "--geo-bypass")
	}
	if opts.SkipSubtitles {
		args = append(args, "--no-write-subs")
	}
	if opts.SkipAutoSubtitles {
		args = append(args, "--no-write-auto-subs")
	}
	if opts.SkipThumbnails {
		args = append(args, "--no-write-thumbnail")
	}
	if opts.SkipInfoJSON {
		args = append(args, "--no-write-info-json")
	}
	if opts.SkipChapters {
		args = append(args, "--no-embed-chapters")
	}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	for _, key := range sortedKeys(opts.Headers) {
		// --user-agent already carries it
		if strings.EqualFold(key, "User-Agent") {
			continue
		}
		args = append(args, "--add-header", key+":"+opts.Headers[key])
	}
	if opts.SleepInterval > 0 {
		args = append(args, "--sleep-interval", seconds(opts.SleepInterval))
		if opts.MaxSleepInterval >= opts.SleepInterval {
			args = append(args, "--max-sleep-interval", seconds(opts.MaxSleepInterval))
		}
	}
	if opts.SleepRequests > 0 {
		args = append(args, "--sleep-requests", seconds(opts.SleepRequests))
	}
	for _, key := range sortedKeys(opts.ExtractorArgs) {
		args = append(args, "--extractor-args", key+":"+opts.ExtractorArgs[key])
	}
	for _, pp := range opts.PostProcessors {
		switch pp.Kind {
		case domain.PostExtractAudio:
			args = append(args, "-x", "--audio-format", pp.Format)
			if pp.Quality != "" {
				args = append(args, "--audio-quality", pp.Quality+"K")
			}
		case domain.PostRemuxVideo:
			args = append(args, "--remux-video", pp.Format)
		}
	}
	if opts.MaxFileSize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(opts.MaxFileSize, 10))
	}
	if opts.CookieFile != "" && fileExists(opts.CookieFile) {
		args = append(args, "--cookies", opts.CookieFile)
	}

	return args
}

// ParseExtraction decodes yt-dlp's single-JSON dump
func ParseExtraction(data []byte) (*domain.ExtractionResult, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(bytes.TrimSpace(data), &info); err != nil {
		return nil, domain.EngineError("unreadable metadata: %v", err)
	}

	size := info.Filesize
	if size <= 0 {
		size = info.FilesizeApprox
	}

	return &domain.ExtractionResult{
		ID:           info.ID,
		Title:        info.Title,
		Duration:     info.Duration,
		Thumbnail:    info.Thumbnail,
		Uploader:     info.Uploader,
		Ext:          info.Ext,
		Filesize:     int64(size),
		ExtractorKey: info.ExtractorKey,
		ViewCount:    int64(info.ViewCount),
		WebpageURL:   info.WebpageURL,
	}, nil
}

// engineErrorMessage picks the most useful line from yt-dlp's stderr
func engineErrorMessage(stderr []byte, runErr error) string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(stderr))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	errLines := lo.Filter(lines, func(line string, _ int) bool {
		return strings.HasPrefix(line, "ERROR:")
	})
	if len(errLines) > 0 {
		return strings.TrimSpace(strings.TrimPrefix(errLines[len(errLines)-1], "ERROR:"))
	}
	if len(lines) > 0 {
		return lines[len(lines)-1]
	}
	return fmt.Sprintf("yt-dlp failed: %v", runErr)
}

func lastLine(data []byte) string {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
