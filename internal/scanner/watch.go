package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"musicindex/internal/library"
)

// Watch follows changes below root until ctx is done. Events are collected
// and applied together once interval has passed without new ones.
func (s *Scanner) Watch(ctx context.Context, root string, interval time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if interval <= 0 {
		interval = 10 * time.Second
	}
	batchT := time.NewTimer(interval)
	batchT.Stop()

	if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		return watchCallback(watcher, path, d, err)
	}); err != nil {
		return fmt.Errorf("watching directory tree: %w", err)
	}

	source := Source(root)
	batchSeen := map[string]struct{}{}
	batchGone := map[string]struct{}{}
	for {
		select {
		case <-batchT.C:
			if err := s.applyRemovals(batchGone); err != nil {
				s.log.Error("failed to remove tracks", zap.Error(err))
			}
			if err := s.applyChanges(watcher, batchSeen, source); err != nil {
				s.log.Error("failed to index changes", zap.Error(err))
			}
			clear(batchGone)
			clear(batchSeen)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				batchGone[event.Name] = struct{}{}
				delete(batchSeen, event.Name)
				batchT.Reset(interval)
				break
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				break
			}
			if _, err := os.Stat(event.Name); err != nil {
				break
			}
			delete(batchGone, event.Name)
			batchSeen[event.Name] = struct{}{}
			batchT.Reset(interval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("error from watcher", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func watchCallback(watcher *fsnotify.Watcher, path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if !d.IsDir() {
		return nil
	}
	return watcher.Add(path)
}

// applyRemovals drops tracks stored under removed files or directories.
func (s *Scanner) applyRemovals(gone map[string]struct{}) error {
	if len(gone) == 0 {
		return nil
	}
	var uris []string
	for _, t := range s.lib.AllTracks() {
		for path := range gone {
			if t.ResourceURI == path || strings.HasPrefix(t.ResourceURI, path+string(filepath.Separator)) {
				uris = append(uris, t.ResourceURI)
				break
			}
		}
	}
	if len(uris) == 0 {
		return nil
	}
	s.log.Info("removing deleted files", zap.Int("tracks", len(uris)))
	return s.lib.RemoveTracksList(uris)
}

// applyChanges indexes changed files. New directories are watched and
// walked; known files are overwritten, unknown ones inserted.
func (s *Scanner) applyChanges(watcher *fsnotify.Watcher, seen map[string]struct{}, source string) error {
	var paths []string
	for path := range seen {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if isAudioFile(path) {
				paths = append(paths, path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err := watchCallback(watcher, p, d, err); err != nil {
				return err
			}
			if !d.IsDir() && isAudioFile(p) {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			s.log.Warn("error walking new directory", zap.String("path", path), zap.Error(err))
		}
	}

	var added, modified []library.Track
	for _, path := range paths {
		t, err := readTrack(path)
		if err != nil {
			s.log.Debug("failed to parse media file", zap.String("path", path), zap.Error(err))
			continue
		}
		if s.lib.TrackIDFromResourceURI(path) != 0 {
			modified = append(modified, t)
		} else {
			added = append(added, t)
		}
	}

	if len(added) > 0 {
		if err := s.lib.InsertTracksList(added, coversOf(added), source); err != nil {
			return err
		}
	}
	if len(modified) > 0 {
		if err := s.lib.ModifyTracksList(modified, coversOf(modified), source); err != nil {
			return err
		}
	}
	if n := len(added) + len(modified); n > 0 {
		s.log.Info("indexed changed files", zap.Int("added", len(added)), zap.Int("modified", len(modified)))
	}
	return nil
}
