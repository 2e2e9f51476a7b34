package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"stream-quality/internal/utils/logger"
)

// Watch reloads path whenever it is written and hands the new config to
// onChange. A reload that fails to load or validate is logged and skipped,
// leaving the previous config in effect. It runs until ctx is done.
//
// The parent directory is watched rather than the file, so saves that
// replace the file by rename keep being seen.
func Watch(ctx context.Context, path string, log *logger.Logger, onChange func(*Config)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	log.Infof("watching %s for changes", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// a rename onto target arrives as Create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				log.Errorf("reload %s failed, keeping previous config: %v", path, err)
				continue
			}
			log.Infof("reloaded %s", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("config watcher: %v", err)
		}
	}
}
