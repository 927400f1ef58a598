// Package watcher follows diagnostic log files as they grow.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrRemoved is returned by Follow when the followed file is removed or
// renamed, typically by log pruning.
var ErrRemoved = errors.New("log file removed")

// Follow copies path to out and then keeps copying whatever is appended to
// it until ctx is cancelled or the file goes away.
func Follow(ctx context.Context, path string, out io.Writer) error {
	path = filepath.Clean(path)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	// Watch the directory, not the file: removal of a watched file drops the
	// watch on some platforms.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	if _, err := io.Copy(out, f); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			switch {
			case event.Op&fsnotify.Write != 0:
				if _, err := io.Copy(out, f); err != nil {
					return err
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				return ErrRemoved
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}
}
