package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/pitabwire/util"
)

// Watcher reports guild backup files edited on disk by anything other than
// the FileStore itself.
type Watcher struct {
	files    *FileStore
	onChange func(ctx context.Context, guildID uint64)
}

// NewWatcher creates a watcher over the directory of files.
func NewWatcher(files *FileStore, onChange func(ctx context.Context, guildID uint64)) *Watcher {
	return &Watcher{files: files, onChange: onChange}
}

// Run watches the backup directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := w.files.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir %q: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handle(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	guildID, ok := w.files.GuildFromPath(path)
	if !ok {
		return
	}
	changed, err := w.files.ChangedExternally(guildID)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		util.Log(ctx).WithError(err).Error("reply data watcher: read backup")
		return
	}
	if changed {
		w.onChange(ctx, guildID)
	}
}
