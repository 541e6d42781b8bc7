// Package backgrounds manages the directory of stock background images.
//
// Items returns a snapshot; selection works on that copy, so a concurrent
// Refresh or AddFiles never changes a list that is being scored. Mutations
// are expected between batch jobs.
package backgrounds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/menta2k/listingkit/internal/utils"
)

// Library is the ordered list of background files in one directory
type Library struct {
	mu     sync.RWMutex
	dir    string
	items  []string
	logger *zap.Logger
}

// New creates a library rooted at dir. The directory is created on first use.
func New(dir string) *Library {
	return &Library{dir: dir, logger: zap.NewNop()}
}

// SetLogger replaces the library's logger
func (l *Library) SetLogger(logger *zap.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Dir returns the background directory
func (l *Library) Dir() string {
	return l.dir
}

// Items returns a copy of the current background paths
func (l *Library) Items() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of known backgrounds
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Refresh rescans the directory and returns the number of backgrounds found
func (l *Library) Refresh() (int, error) {
	if err := l.ensureDir(); err != nil {
		l.mu.Lock()
		l.items = nil
		l.mu.Unlock()
		return 0, err
	}

	files, err := utils.ListImageFilesFlat(l.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan backgrounds: %w", err)
	}

	l.mu.Lock()
	l.items = files
	l.mu.Unlock()

	l.logger.Debug("backgrounds refreshed", zap.String("dir", l.dir), zap.Int("count", len(files)))
	return len(files), nil
}

// AddFiles copies files into the background directory. Name clashes get a
// _N suffix. It returns how many were added and one message per failure.
func (l *Library) AddFiles(paths []string) (int, []string) {
	if err := l.ensureDir(); err != nil {
		return 0, []string{err.Error()}
	}

	added := 0
	var errs []string
	for _, src := range paths {
		if !utils.FileExists(src) {
			errs = append(errs, fmt.Sprintf("File not found: %s", src))
			continue
		}

		l.mu.Lock()
		dest := utils.UniquePath(l.dir, filepath.Base(src))
		err := utils.CopyFile(src, dest)
		if err == nil {
			l.items = append(l.items, dest)
		}
		l.mu.Unlock()

		if err != nil {
			errs = append(errs, fmt.Sprintf("Error copying %s: %v", filepath.Base(src), err))
			continue
		}
		added++
	}
	return added, errs
}

// AddFromFolder copies every image directly inside folder
func (l *Library) AddFromFolder(folder string) (int, []string) {
	if !utils.DirExists(folder) {
		return 0, nil
	}
	files, err := utils.ListImageFilesFlat(folder)
	if err != nil {
		return 0, []string{err.Error()}
	}
	return l.AddFiles(files)
}

// AddFromTree copies every image found anywhere below folder
func (l *Library) AddFromTree(folder string) (int, []string) {
	if !utils.DirExists(folder) {
		return 0, nil
	}
	files, err := utils.ListImageFiles(folder)
	if err != nil {
		return 0, []string{err.Error()}
	}
	return l.AddFiles(files)
}

// Remove deletes a background from disk and from the list
func (l *Library) Remove(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, p := range l.items {
		if p == path {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove background: %w", err)
	}
	return nil
}

func (l *Library) ensureDir() error {
	if l.dir == "" {
		return errors.New("background folder is not configured")
	}
	if err := utils.EnsureDir(l.dir); err != nil {
		return fmt.Errorf("background folder does not exist: %w", err)
	}
	return nil
}
