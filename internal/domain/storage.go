package domain

import (
	"io"
	"time"
)

// StoredFile describes a file in the downloads directory
type StoredFile struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// MediaStorage is the downloads directory the engine writes into
type MediaStorage interface {
	// Dir returns the downloads directory
	Dir() string

	// Ensure creates the directory and its placeholder file
	Ensure() error

	// Resolve maps a bare filename to a path inside Dir, rejecting
	// anything that would escape it
	Resolve(filename string) (string, error)

	// Stat returns ErrFileNotFound if path does not exist
	Stat(path string) (*StoredFile, error)

	// Open opens path for reading
	Open(path string) (io.ReadCloser, error)

	// Remove deletes path. A missing file is not an error; removed reports
	// whether anything was deleted.
	Remove(path string) (removed bool, err error)

	// FindOutput returns the newest file whose name starts with prefix,
	// contains id and was modified at or after since
	FindOutput(prefix, id string, since time.Time) (*StoredFile, error)

	// RemoveMatching deletes every file whose name starts with prefix and
	// contains id, including partial downloads
	RemoveMatching(prefix, id string) (int, error)

	// Cleanup deletes every file except the placeholder
	Cleanup() (int, error)

	// Sweep deletes files, except the placeholder, older than maxAge
	Sweep(maxAge time.Duration) (int, error)

	// List returns the files currently stored, excluding the placeholder
	List() ([]*StoredFile, error)
}
