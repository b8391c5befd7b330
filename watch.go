package props

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/propkit/go-props/codec"
)

// watchDebounce coalesces the burst of filesystem events an editor or
// atomic rename produces for a single logical write.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the property set whenever the backing file changes on
// disk, until ctx is cancelled or the manager is closed. Only
// file-backed storage can be watched.
func (m *Manager[K]) Watch(ctx context.Context) error {
	fileStorage, ok := m.storage.(*codec.FileStorage)
	if !ok {
		return fmt.Errorf("props: watch requires file-backed storage, have %T", m.storage)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: atomic rename-into-place
	// replaces the inode a file watch would be pinned to.
	if err := watcher.Add(filepath.Dir(fileStorage.Path)); err != nil {
		watcher.Close()
		return err
	}

	go m.watchLoop(ctx, watcher, fileStorage.Path)
	return nil
}

func (m *Manager[K]) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()

	target := filepath.Clean(path)
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				pending = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Logf("props: watch: %v", err)
		case <-pending:
			timer = nil
			pending = nil
			if err := m.Load(ctx); err != nil {
				m.logger.Logf("props: watch reload: %v", err)
			}
		}
	}
}
