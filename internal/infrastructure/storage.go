package infrastructure

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/yourusername/media-proxy-go/internal/domain"
)

// partialSuffixes are the in-progress extensions yt-dlp leaves behind
var partialSuffixes = []string{".part", ".ytdl", ".temp", ".tmp"}

// AferoStorage implements domain.MediaStorage on an afero filesystem
type AferoStorage struct {
	fs          afero.Fs
	dir         string
	placeholder string
}

// NewAferoStorage creates a storage rooted at dir
func NewAferoStorage(fs afero.Fs, dir, placeholder string) *AferoStorage {
	return &AferoStorage{
		fs:          fs,
		dir:         filepath.Clean(dir),
		placeholder: placeholder,
	}
}

// NewOSStorage creates a storage on the host filesystem. A relative dir is
// made absolute so stored files always carry absolute paths.
func NewOSStorage(dir, placeholder string) *AferoStorage {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return NewAferoStorage(afero.NewOsFs(), dir, placeholder)
}

// Dir returns the downloads directory
func (s *AferoStorage) Dir() string {
	return s.dir
}

// Ensure creates the downloads directory and its placeholder
func (s *AferoStorage) Ensure() error {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create downloads directory: %w", err)
	}
	if s.placeholder == "" {
		return nil
	}

	placeholder := filepath.Join(s.dir, s.placeholder)
	exists, err := afero.Exists(s.fs, placeholder)
	if err != nil {
		return fmt.Errorf("failed to check placeholder: %w", err)
	}
	if !exists {
		if err := afero.WriteFile(s.fs, placeholder, nil, 0644); err != nil {
			return fmt.Errorf("failed to create placeholder: %w", err)
		}
	}
	return nil
}

// Resolve maps a client-supplied filename to a path inside the directory
func (s *AferoStorage) Resolve(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	if filename == s.placeholder {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return filepath.Join(s.dir, filename), nil
}

// Stat describes path
func (s *AferoStorage) Stat(path string) (*domain.StoredFile, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, domain.ErrFileNotFound
	}
	return toStoredFile(path, info), nil
}

// Open opens path for reading
func (s *AferoStorage) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// Remove deletes path; a missing file reports removed=false and no error
func (s *AferoStorage) Remove(path string) (bool, error) {
	err := s.fs.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to remove %s: %w", path, err)
}

// FindOutput locates a finished download by name fragments and age
func (s *AferoStorage) FindOutput(prefix, id string, since time.Time) (*domain.StoredFile, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	candidates := lo.Filter(files, func(f *domain.StoredFile, _ int) bool {
		return strings.HasPrefix(f.Name, prefix) &&
			strings.Contains(f.Name, id) &&
			!isPartial(f.Name) &&
			!f.ModTime.Before(since)
	})
	if len(candidates) == 0 {
		return nil, domain.ErrFileNotFound
	}

	newest := lo.MaxBy(candidates, func(a, b *domain.StoredFile) bool {
		return a.ModTime.After(b.ModTime)
	})
	return newest, nil
}

// RemoveMatching deletes every file for one request, partial or not
func (s *AferoStorage) RemoveMatching(prefix, id string) (int, error) {
	files, err := s.files()
	if err != nil {
		return 0, err
	}

	matching := lo.Filter(files, func(f *domain.StoredFile, _ int) bool {
		return strings.HasPrefix(f.Name, prefix) && strings.Contains(f.Name, id)
	})
	return s.removeAll(matching)
}

// Cleanup deletes all files except the placeholder
func (s *AferoStorage) Cleanup() (int, error) {
	files, err := s.files()
	if err != nil {
		return 0, err
	}
	return s.removeAll(files)
}

// Sweep deletes files last modified more than maxAge ago
func (s *AferoStorage) Sweep(maxAge time.Duration) (int, error) {
	files, err := s.files()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	stale := lo.Filter(files, func(f *domain.StoredFile, _ int) bool {
		return f.ModTime.Before(cutoff)
	})
	return s.removeAll(stale)
}

// List returns the stored files, excluding the placeholder
func (s *AferoStorage) List() ([]*domain.StoredFile, error) {
	return s.files()
}

// files lists regular files in the directory, excluding the placeholder.
// A missing directory yields no files.
func (s *AferoStorage) files() ([]*domain.StoredFile, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read downloads directory: %w", err)
	}

	files := lo.FilterMap(entries, func(info os.FileInfo, _ int) (*domain.StoredFile, bool) {
		if info.IsDir() || info.Name() == s.placeholder {
			return nil, false
		}
		return toStoredFile(filepath.Join(s.dir, info.Name()), info), true
	})
	return files, nil
}

func (s *AferoStorage) removeAll(files []*domain.StoredFile) (int, error) {
	removed := 0
	var errs []error
	for _, f := range files {
		ok, err := s.Remove(f.Path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func toStoredFile(path string, info os.FileInfo) *domain.StoredFile {
	return &domain.StoredFile{
		Name:    info.Name(),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

func isPartial(name string) bool {
	return lo.SomeBy(partialSuffixes, func(suffix string) bool {
		return strings.HasSuffix(name, suffix)
	})
}
