package selection

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Yates-Labs/permitdesk/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// CatalogWatcher reloads a catalog file whenever it changes on disk.
type CatalogWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	log     logger.Logger
}

// NewCatalogWatcher watches path. The parent directory is watched rather than the
// file so editors that replace the file on save are still picked up.
func NewCatalogWatcher(path string, log logger.Logger) (*CatalogWatcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &CatalogWatcher{watcher: w, path: abs, log: log}, nil
}

// Watch emits every successfully parsed version of the file until ctx is done.
// Versions that fail to parse are logged and skipped, so the last good catalog stays in effect.
func (w *CatalogWatcher) Watch(ctx context.Context) (<-chan *Catalog, error) {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	catalogs := make(chan *Catalog, 1)

	go func() {
		defer close(catalogs)
		for {
			select {
			case <-ctx.Done():
				return
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

				c, err := LoadCatalogFile(w.path)
				if err != nil {
					w.log.Warn("selection", "catalog reload skipped", map[string]interface{}{
						"path":  w.path,
						"error": err.Error(),
					})
					continue
				}
				w.log.Info("selection", "catalog reloaded", map[string]interface{}{
					"path":       w.path,
					"categories": len(c.Categories),
					"regions":    len(c.Regions),
				})

				select {
				case catalogs <- c:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Error("selection", "catalog watcher error", map[string]interface{}{"error": err})
			}
		}
	}()

	return catalogs, nil
}

// Stop releases the underlying watcher.
func (w *CatalogWatcher) Stop() error {
	return w.watcher.Close()
}
