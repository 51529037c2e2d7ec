package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the configuration when the .env file changes and hands
// the fresh Config to the registered callback.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	logger   *zap.Logger
	onChange func(*Config)
}

// NewWatcher watches the env file the given config was loaded from.
func NewWatcher(cfg *Config, logger *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace the file on save
	// and the inode watch would be lost.
	dir := filepath.Dir(cfg.envFile)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		watcher:  fw,
		path:     filepath.Clean(cfg.envFile),
		logger:   logger,
		onChange: onChange,
	}, nil
}

// Watch blocks processing filesystem events until Close is called.
func (w *Watcher) Watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load()
			if err != nil {
				w.logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded", zap.String("file", w.path))
			if w.onChange != nil {
				w.onChange(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
