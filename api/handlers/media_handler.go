package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/app"
	"github.com/yourusername/media-proxy-go/internal/domain"
)

// MediaHandler handles download, preview and file requests
type MediaHandler struct {
	service *app.DownloadService
	logger  *zap.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service *app.DownloadService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		service: service,
		logger:  logger,
	}
}

// MediaRequest is the body of every media endpoint
type MediaRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

// DownloadResponse is returned by POST /api/download
type DownloadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// MediaInfoResponse is returned by POST /api/media-info
type MediaInfoResponse struct {
	Success bool `json:"success"`
	*domain.MediaInfo
	Message string `json:"message,omitempty"`
}

// bindRequest parses the body, answering 400 itself when it is malformed
func (h *MediaHandler) bindRequest(c *gin.Context) (*MediaRequest, bool) {
	var body MediaRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return nil, false
	}
	return &body, true
}

// toDownloadRequest validates the format name. A missing format means MP4.
func (r *MediaRequest) toDownloadRequest() (domain.DownloadRequest, error) {
	format := r.Format
	if format == "" {
		format = domain.KindVideo.FormatName()
	}
	return domain.NewDownloadRequest(r.URL, format, r.Quality)
}

// Download handles POST /api/download
func (h *MediaHandler) Download(c *gin.Context) {
	body, ok := h.bindRequest(c)
	if !ok {
		return
	}
	req, err := body.toDownloadRequest()
	if err != nil {
		c.JSON(http.StatusOK, DownloadResponse{Success: false, Message: err.Error()})
		return
	}

	h.logger.Info("Download request received",
		zap.String("url", req.URL),
		zap.String("kind", string(req.Kind)),
		zap.String("quality", req.Quality))

	outcome := h.service.Download(c.Request.Context(), req)
	if !outcome.Success {
		c.JSON(http.StatusOK, DownloadResponse{Success: false, Message: outcome.ErrorMessage})
		return
	}

	c.JSON(http.StatusOK, DownloadResponse{
		Success:     true,
		Message:     "Download completed successfully!",
		DownloadURL: "/downloads/" + url.PathEscape(outcome.Filename),
		Filename:    outcome.Filename,
	})
}

// MediaInfo handles POST /api/media-info
func (h *MediaHandler) MediaInfo(c *gin.Context) {
	body, ok := h.bindRequest(c)
	if !ok {
		return
	}
	req, err := body.toDownloadRequest()
	if err != nil {
		c.JSON(http.StatusOK, MediaInfoResponse{Success: false, Message: err.Error()})
		return
	}

	info, err := h.service.MediaInfo(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusOK, MediaInfoResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MediaInfoResponse{Success: true, MediaInfo: info})
}

// StreamDownload handles POST /api/stream-download. The file is sent as an
// attachment and deleted once sent or when the client goes away.
func (h *MediaHandler) StreamDownload(c *gin.Context) {
	body, ok := h.bindRequest(c)
	if !ok {
		return
	}
	req, err := body.toDownloadRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	stream, outcome := h.service.StreamDownload(c.Request.Context(), req)
	if !outcome.Success {
		c.JSON(statusForKind(outcome.ErrorKind), gin.H{
			"success":    false,
			"message":    outcome.ErrorMessage,
			"error_kind": outcome.ErrorKind,
		})
		return
	}

	h.sendStream(c, stream, true)
}

// ServeFile handles GET /downloads/:filename
func (h *MediaHandler) ServeFile(c *gin.Context) {
	filename := c.Param("filename")

	stream, err := h.service.OpenFile(filename)
	switch {
	case app.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found"})
		return
	case domain.IsKind(err, domain.KindInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid filename"})
		return
	case err != nil:
		h.logger.Error("Failed to open file", zap.String("filename", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to open file"})
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	h.sendStream(c, stream, false)
}

// Cleanup handles POST /api/cleanup
func (h *MediaHandler) Cleanup(c *gin.Context) {
	removed, err := h.service.Cleanup()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": fmt.Sprintf("Cleanup failed: %s", err),
			"removed": removed,
		})
		return
	}

	message := fmt.Sprintf("Cleaned up %d files", removed)
	if removed == 0 {
		message = "Downloads directory is already clean"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"removed": removed,
	})
}

// Platforms handles GET /api/platforms
func (h *MediaHandler) Platforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": h.service.Platforms()})
}

// Formats handles GET /api/formats
func (h *MediaHandler) Formats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formats": h.service.Formats()})
}

// sendStream writes the stream in chunks and always releases it
func (h *MediaHandler) sendStream(c *gin.Context, stream *app.MediaStream, attachment bool) {
	defer stream.Close()

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q; filename*=UTF-8''%s",
		disposition, stream.Filename, url.PathEscape(stream.Filename)))
	c.Header("Content-Type", stream.ContentType)
	c.Header("Content-Length", fmt.Sprintf("%d", stream.Size))
	c.Status(http.StatusOK)

	if err := h.copyChunks(c, stream); err != nil {
		h.logger.Warn("Streaming interrupted",
			zap.String("filename", stream.Filename),
			zap.Int64("bytes_sent", stream.BytesSent()),
			zap.Error(err))
	}
}

// copyChunks writes chunks until the stream is drained or the client leaves
func (h *MediaHandler) copyChunks(c *gin.Context, stream *app.MediaStream) error {
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, err := stream.Next()
		if len(chunk) > 0 {
			if _, werr := c.Writer.Write(chunk); werr != nil {
				return werr
			}
			c.Writer.Flush()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// statusForKind maps a failure kind to the status used by the binary endpoints
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindMetadataFailure, domain.KindDownloadFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
