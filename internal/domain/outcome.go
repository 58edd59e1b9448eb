package domain

// DownloadOutcome is the terminal result of one download request
type DownloadOutcome struct {
	Success      bool      `json:"success"`
	Filename     string    `json:"filename,omitempty"`
	Filepath     string    `json:"filepath,omitempty"`
	Title        string    `json:"title,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	Attempts     int       `json:"attempts"`
	Kind         MediaKind `json:"kind,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// FailedOutcome builds a failure outcome from a classified error
func FailedOutcome(err error, attempts int) *DownloadOutcome {
	return &DownloadOutcome{
		Success:      false,
		Attempts:     attempts,
		ErrorKind:    KindOf(err),
		ErrorMessage: err.Error(),
	}
}

// MediaInfo is a display-ready preview of a media URL
type MediaInfo struct {
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Thumbnail string `json:"thumbnail"`
	Platform  string `json:"platform"`
	Filesize  string `json:"filesize"`
	Uploader  string `json:"uploader"`
	ViewCount int64  `json:"view_count"`
}
