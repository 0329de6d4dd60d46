package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk and delivers
// every valid version on Updates. Invalid versions are logged and skipped,
// so consumers keep running with the last good config.
//
// The parent directory is watched rather than the file itself: editors
// usually save by writing a temp file and renaming it over the original.
type Watcher struct {
	path     string
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	updates  chan *Config
	debounce time.Duration
}

// NewWatcher creates a watcher for path. logger may be nil.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		logger:   logger.Named("ConfigWatcher"),
		watcher:  fw,
		updates:  make(chan *Config, 1),
		debounce: defaultDebounce,
	}, nil
}

// Updates delivers reloaded configs. Only the newest pending config is kept.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching config", zap.String("path", w.path))

	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	go func() {
		defer debounce.Stop()
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if w.shouldProcessEvent(event) {
					w.logger.Debug("config change detected", zap.String("op", event.Op.String()))
					debounce.Reset(w.debounce)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", zap.Error(err))

			case <-debounce.C:
				w.reload()

			case <-ctx.Done():
				w.logger.Debug("config watcher stopped")
				return
			}
		}
	}()
	return nil
}

// Stop closes the underlying watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload rejected, keeping previous", zap.Error(err))
		return
	}

	// 丢弃未被消费的旧版本
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
	w.logger.Info("config reloaded", zap.String("path", w.path))
}
