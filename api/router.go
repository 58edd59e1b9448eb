package api

import (
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/media-proxy-go/api/handlers"
	"github.com/yourusername/media-proxy-go/api/middleware"
	"github.com/yourusername/media-proxy-go/internal/app"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
	"github.com/yourusername/media-proxy-go/pkg/logger"
	"github.com/yourusername/media-proxy-go/web"
)

// SetupRouter sets up the HTTP router. janitor and metrics may be nil.
func SetupRouter(
	service *app.DownloadService,
	janitor *app.Janitor,
	pool *app.WorkerPool,
	metrics *infrastructure.Metrics,
	logAdapter *logger.LoggerAdapter,
	downloadsDir string,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logAdapter))
	router.Use(middleware.Recovery(logAdapter))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(janitor, pool, downloadsDir)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	mediaHandler := handlers.NewMediaHandler(service, logAdapter.App())
	historyHandler := handlers.NewHistoryHandler(service, logAdapter.App())

	api := router.Group("/api")
	{
		api.POST("/download", mediaHandler.Download)
		api.POST("/media-info", mediaHandler.MediaInfo)
		api.POST("/stream-download", mediaHandler.StreamDownload)
		api.POST("/cleanup", mediaHandler.Cleanup)
		api.GET("/platforms", mediaHandler.Platforms)
		api.GET("/formats", mediaHandler.Formats)

		downloads := api.Group("/downloads")
		{
			downloads.GET("", historyHandler.ListDownloads)
			downloads.GET("/stats", historyHandler.GetStats)
		}

		// Log endpoints need the categorized log directory
		if logsDir := logAdapter.LogsDir(); logsDir != "" {
			logHandler := handlers.NewLogHandler(logsDir)
			wsHandler := handlers.NewLogWebSocketHandler(logsDir, logAdapter.App())
			logs := api.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/stream", wsHandler.HandleWebSocket)
			}
		}
	}

	router.GET("/downloads/:filename", mediaHandler.ServeFile)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	}

	// Embedded web UI
	staticFS := web.GetStaticFS()
	router.StaticFS("/static", http.FS(staticFS))
	router.GET("/", func(c *gin.Context) {
		serveFile(c, staticFS, "index.html")
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	})

	return router
}

// serveFile serves a file from the embedded filesystem with proper content type
func serveFile(c *gin.Context, staticFS fs.FS, filePath string) {
	file, err := staticFS.Open(filePath)
	if err != nil {
		c.String(http.StatusNotFound, "Frontend not found")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to read file: %v", err)
		return
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(filePath, ".html"):
		contentType = "text/html; charset=utf-8"
	case strings.HasSuffix(filePath, ".css"):
		contentType = "text/css; charset=utf-8"
	case strings.HasSuffix(filePath, ".js"):
		contentType = "application/javascript; charset=utf-8"
	}

	c.Data(http.StatusOK, contentType, content)
}
