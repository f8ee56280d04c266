// Package storage manages the on-disk media directory: uploaded files,
// annotated outputs, and the size cap over both.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenewatch/internal/logger"
)

// MediaStore persists uploads and annotated frames under a single
// directory, pruning oldest files when the directory outgrows its cap.
type MediaStore struct {
	dir      string
	maxBytes int64
	mu       sync.Mutex
	logger   *logger.Logger
}

// NewMediaStore creates the media directory if needed. maxSizeGB caps the
// directory size; 0 disables pruning.
func NewMediaStore(dir string, maxSizeGB int64, logger *logger.Logger) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &MediaStore{
		dir:      dir,
		maxBytes: maxSizeGB << 30,
		logger:   logger,
	}, nil
}

// SaveUpload writes an uploaded file under a collision-free name derived
// from the original filename and returns the stored path.
func (s *MediaStore) SaveUpload(src io.Reader, originalName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fmt.Sprintf("%s_%s%s",
		time.Now().Format("2006-01-02_15-04-05"),
		uuid.NewString()[:8],
		sanitizeExt(originalName))
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	s.pruneLocked()
	return path, nil
}

// SaveAnnotated writes annotated JPEG bytes next to the source media and
// returns the stored path.
func (s *MediaStore) SaveAnnotated(sourcePath string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := "annotated_" + strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath)) + ".jpg"
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write annotated image: %w", err)
	}

	s.pruneLocked()
	return path, nil
}

// Size returns the current size of the media directory in bytes.
func (s *MediaStore) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size, _, err := s.scanLocked()
	return size, err
}

type mediaFile struct {
	path    string
	size    int64
	modTime time.Time
}

func (s *MediaStore) scanLocked() (int64, []mediaFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read media directory: %w", err)
	}

	var total int64
	var files []mediaFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		files = append(files, mediaFile{
			path:    filepath.Join(s.dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return total, files, nil
}

// pruneLocked removes oldest files until the directory fits the cap.
func (s *MediaStore) pruneLocked() {
	if s.maxBytes <= 0 {
		return
	}

	total, files, err := s.scanLocked()
	if err != nil {
		s.logger.Error("Media prune scan failed: %v", err)
		return
	}
	if total <= s.maxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		if total <= s.maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			s.logger.Error("Failed to prune %s: %v", f.path, err)
			continue
		}
		total -= f.size
		s.logger.Info("Pruned old media file %s", filepath.Base(f.path))
	}
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 8 {
		return ".bin"
	}
	return ext
}
