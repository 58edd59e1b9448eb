package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the final status of a download request
type DownloadStatus string

const (
	StatusCompleted DownloadStatus = "completed"
	StatusFailed    DownloadStatus = "failed"
)

// DownloadRecord is a history entry for one download request
type DownloadRecord struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	URL          string         `json:"url" gorm:"not null"`
	Kind         MediaKind      `json:"kind" gorm:"not null;index"`
	Quality      string         `json:"quality"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	Filename     string         `json:"filename,omitempty"`
	Title        string         `json:"title,omitempty"`
	SizeBytes    int64          `json:"size_bytes"`
	Attempts     int            `json:"attempts" gorm:"default:0"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Streamed     bool           `json:"streamed"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownloadRecord creates a history entry for a request
func NewDownloadRecord(req DownloadRequest, streamed bool) *DownloadRecord {
	return &DownloadRecord{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Kind:      req.Kind,
		Quality:   req.Quality,
		Streamed:  streamed,
		CreatedAt: time.Now(),
	}
}

// ApplyOutcome copies the terminal state of a download into the record
func (r *DownloadRecord) ApplyOutcome(outcome *DownloadOutcome) {
	now := time.Now()
	r.CompletedAt = &now
	r.Attempts = outcome.Attempts

	if outcome.Success {
		r.Status = StatusCompleted
		r.Filename = outcome.Filename
		r.Title = outcome.Title
		r.SizeBytes = outcome.SizeBytes
		return
	}

	r.Status = StatusFailed
	r.ErrorKind = outcome.ErrorKind
	r.ErrorMessage = outcome.ErrorMessage
}

// IsCompleted checks if the download succeeded
func (r *DownloadRecord) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// Duration returns how long the request took, zero if unfinished
func (r *DownloadRecord) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.CreatedAt)
}
