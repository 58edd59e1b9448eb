package domain

import "context"

// ExtractionResult is the metadata the engine reports for a URL
type ExtractionResult struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Duration     float64 `json:"duration"`
	Thumbnail    string  `json:"thumbnail"`
	Uploader     string  `json:"uploader"`
	Ext          string  `json:"ext"`
	Filesize     int64   `json:"filesize"`
	ExtractorKey string  `json:"extractor_key"`
	ViewCount    int64   `json:"view_count"`
	WebpageURL   string  `json:"webpage_url"`
}

// Engine is the external extraction engine
type Engine interface {
	// ExtractInfo fetches metadata without downloading any media
	ExtractInfo(ctx context.Context, url string, opts *OptionBundle) (*ExtractionResult, error)

	// Download writes the media to opts.OutputTemplate and returns the path
	// the engine reports it actually wrote, or "" if it reported none
	Download(ctx context.Context, url string, opts *OptionBundle) (string, error)
}

// URLResolver expands short links into their canonical URL
type URLResolver interface {
	Resolve(ctx context.Context, url string) string
}
