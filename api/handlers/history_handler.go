package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/app"
	"github.com/yourusername/media-proxy-go/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryHandler serves recorded download outcomes
type HistoryHandler struct {
	service *app.DownloadService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(service *app.DownloadService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger,
	}
}

// ListDownloads handles GET /api/downloads
func (h *HistoryHandler) ListDownloads(c *gin.Context) {
	// Parse query parameters for filtering
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if format := c.Query("format"); format != "" {
		kind, ok := domain.ParseMediaKind(format)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format"})
			return
		}
		filters["kind"] = string(kind)
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := h.service.ListHistory(filters, limit)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":   h.service.HistoryEnabled(),
		"count":     len(records),
		"downloads": records,
	})
}

// GetStats handles GET /api/downloads/stats
func (h *HistoryHandler) GetStats(c *gin.Context) {
	stats, err := h.service.HistoryStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
