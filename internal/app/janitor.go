package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
	"github.com/yourusername/media-proxy-go/pkg/logger"
)

// Janitor periodically removes stale files from the downloads directory,
// such as files that were downloaded but never fetched
type Janitor struct {
	storage  domain.MediaStorage
	config   *domain.DownloadConfig
	metrics  *infrastructure.Metrics
	log      *logger.LoggerAdapter
	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	lastRun  time.Time
}

// NewJanitor creates a new janitor
func NewJanitor(
	storage domain.MediaStorage,
	config *domain.DownloadConfig,
	metrics *infrastructure.Metrics,
	log *logger.LoggerAdapter,
) *Janitor {
	if log == nil {
		log = logger.NewNopAdapter()
	}
	return &Janitor{
		storage: storage,
		config:  config,
		metrics: metrics,
		log:     log,
	}
}

// Start begins sweeping. With sweep_on_startup the first sweep runs
// before Start returns.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor already running")
	}
	j.running = true
	j.stopChan = make(chan struct{})
	j.mu.Unlock()

	j.log.LogDownloadEvent("janitor_started",
		zap.Duration("interval", j.config.SweepInterval),
		zap.Duration("file_ttl", j.config.FileTTL))

	if j.config.SweepOnStartup {
		j.Sweep()
	}

	if j.config.SweepInterval > 0 {
		j.wg.Add(1)
		go j.run(ctx, j.stopChan)
	}

	return nil
}

// Stop stops the sweep loop and waits for it to exit
func (j *Janitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor not running")
	}
	j.running = false
	close(j.stopChan)
	j.mu.Unlock()

	j.wg.Wait()
	j.log.LogDownloadEvent("janitor_stopped")
	return nil
}

// IsRunning returns whether the janitor is running
func (j *Janitor) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.running
}

// LastRun returns when the last sweep finished, zero if none has
func (j *Janitor) LastRun() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastRun
}

// Sweep removes files older than the configured TTL once
func (j *Janitor) Sweep() int {
	removed, err := j.storage.Sweep(j.config.FileTTL)
	if err != nil {
		j.log.LogAppError("Sweep failed", zap.Int("removed", removed), zap.Error(err))
	}
	if removed > 0 {
		j.log.LogDownloadEvent("files_swept", zap.Int("removed", removed))
	}
	j.metrics.AddFilesSwept(removed)

	j.mu.Lock()
	j.lastRun = time.Now()
	j.mu.Unlock()
	return removed
}

func (j *Janitor) run(ctx context.Context, stop <-chan struct{}) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// A later Start may already own a new stop channel
			j.mu.Lock()
			if j.stopChan == stop {
				j.running = false
			}
			j.mu.Unlock()
			j.log.App().Debug("Janitor stopped", zap.String("reason", "context_cancelled"))
			return
		case <-stop:
			j.log.App().Debug("Janitor stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}
