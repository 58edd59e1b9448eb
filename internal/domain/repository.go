package domain

// HistoryRepository defines the interface for download history persistence
type HistoryRepository interface {
	// Create stores a new record
	Create(record *DownloadRecord) error

	// FindByID finds a record by ID
	FindByID(id string) (*DownloadRecord, error)

	// FindAll finds records with optional column filters, newest first.
	// A limit of zero or less means no limit.
	FindAll(filters map[string]interface{}, limit int) ([]*DownloadRecord, error)

	// GetStats returns aggregate counts
	GetStats() (*HistoryStats, error)

	// Close releases the underlying storage
	Close() error
}

// HistoryStats represents download history statistics
type HistoryStats struct {
	Total      int64               `json:"total"`
	Completed  int64               `json:"completed"`
	Failed     int64               `json:"failed"`
	TotalBytes int64               `json:"total_bytes"`
	ByKind     map[MediaKind]int64 `json:"by_kind"`
	ByError    map[ErrorKind]int64 `json:"by_error"`
}
