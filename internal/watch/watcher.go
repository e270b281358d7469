// Package watch reloads configuration files when they change on disk
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"careerboost/internal/errors"
)

const defaultDebounce = time.Second

// FileWatcher calls a callback once a burst of changes to any of its files
// has settled. Directories are watched as well so atomic renames are seen.
type FileWatcher struct {
	mu sync.Mutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// New creates a watcher for files. Empty paths are ignored. name labels
// the log lines.
func New(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay <= 0 {
		debounceDelay = defaultDebounce
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	var watched []string
	for _, f := range files {
		if f != "" {
			watched = append(watched, f)
		}
	}
	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching
func (w *FileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("%s watcher is already running", w.name)
	}
	if len(w.files) == 0 {
		return fmt.Errorf("%s watcher has no files to watch", w.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher
	w.updateModTimes()

	for _, file := range w.files {
		if err := w.add(file); err != nil {
			w.logger.Warn("Failed to watch file", "watcher", w.name, "file", file, "error", err)
		}
	}

	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.loop(w.fsWatcher, w.stopChan, w.done)

	w.logger.Info("File watcher started",
		"watcher", w.name,
		"files", w.files,
		"debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops watching and waits for the event loop to exit
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	err := w.fsWatcher.Close()
	done := w.done
	w.running = false
	w.mu.Unlock()

	<-done
	if err != nil {
		w.logger.LogError(err, "Failed to close file watcher", "watcher", w.name)
		return err
	}
	w.logger.Info("File watcher stopped", "watcher", w.name)
	return nil
}

// IsRunning reports whether the watcher is active
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Files returns the watched paths
func (w *FileWatcher) Files() []string {
	return slices.Clone(w.files)
}

func (w *FileWatcher) add(file string) error {
	if err := w.fsWatcher.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	dir := filepath.Dir(file)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (w *FileWatcher) updateModTimes() {
	for _, file := range w.files {
		if stat, err := os.Stat(file); err == nil {
			w.lastModTime[file] = stat.ModTime()
		}
	}
}

// changed reports whether file was modified, created or removed since the
// last check. Only the event loop calls it.
func (w *FileWatcher) changed(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, known := w.lastModTime[file]; known && os.IsNotExist(err) {
			delete(w.lastModTime, file)
			return true
		}
		return false
	}
	last, known := w.lastModTime[file]
	if !known || !stat.ModTime().Equal(last) {
		w.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (w *FileWatcher) loop(fsw *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.schedule()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error", "watcher", w.name)

		case <-w.reloadChan:
			if slices.ContainsFunc(w.files, w.changed) {
				w.logger.Info("Watched files changed, reloading", "watcher", w.name)
				w.onChange()
			}

		case <-stop:
			return
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	for _, file := range w.files {
		if event.Name == file || filepath.Base(event.Name) == filepath.Base(file) {
			return true
		}
	}
	return false
}

func (w *FileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
