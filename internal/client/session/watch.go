package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var ErrNotWatchable = errors.New("сессия хранится не в файле")

// Watch re-reads the session file whenever another process rewrites or
// removes it, until ctx is done. onChange, when set, receives the new state.
func (s *Store) Watch(ctx context.Context, onChange func(Snapshot)) error {
	fp, ok := s.persister.(*FilePersister)
	if !ok {
		return ErrNotWatchable
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ошибка создания наблюдателя: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(fp.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ошибка создания каталога сессии: %w", err)
	}
	// the directory is watched because Save replaces the file by rename
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("ошибка наблюдения за %s: %w", dir, err)
	}

	name := filepath.Base(fp.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := s.Restore(); err != nil {
				s.logger.Warn("не удалось перечитать сессию", zap.Error(err))
				continue
			}
			s.logger.Debug("сессия изменена другим процессом", zap.String("op", event.Op.String()))
			if onChange != nil {
				onChange(s.Snapshot())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("ошибка наблюдения за сессией", zap.Error(err))
		}
	}
}
