package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/yourusername/media-proxy-go/internal/app"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	janitor      *app.Janitor
	pool         *app.WorkerPool
	downloadsDir string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(janitor *app.Janitor, pool *app.WorkerPool, downloadsDir string) *HealthHandler {
	return &HealthHandler{
		janitor:      janitor,
		pool:         pool,
		downloadsDir: downloadsDir,
	}
}

// DiskStatus describes the filesystem holding the downloads directory
type DiskStatus struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
	Janitor struct {
		Running bool       `json:"running"`
		LastRun *time.Time `json:"last_run,omitempty"`
	} `json:"janitor"`
	Workers struct {
		Size   int `json:"size"`
		Active int `json:"active"`
	} `json:"workers"`
	Disk *DiskStatus `json:"disk,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "healthy",
		Message: "Media downloader is running",
		Version: Version,
	}
	if h.janitor != nil {
		response.Janitor.Running = h.janitor.IsRunning()
		if last := h.janitor.LastRun(); !last.IsZero() {
			response.Janitor.LastRun = &last
		}
	}
	if h.pool != nil {
		response.Workers.Size = h.pool.Size()
		response.Workers.Active = h.pool.Active()
	}
	if usage, err := disk.Usage(h.downloadsDir); err == nil {
		response.Disk = &DiskStatus{
			Path:        usage.Path,
			TotalBytes:  usage.Total,
			FreeBytes:   usage.Free,
			UsedPercent: usage.UsedPercent,
		}
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.janitor != nil && !h.janitor.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "janitor not running",
		})
		return
	}
	if _, err := disk.Usage(h.downloadsDir); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "downloads directory unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
