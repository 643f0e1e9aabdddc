// Package scanner feeds the library index from a local music directory.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"musicindex/internal/library"
)

// Library is the part of the index the scanner drives.
type Library interface {
	InsertTracksList(tracks []library.Track, covers map[string]string, source string) error
	ModifyTracksList(tracks []library.Track, covers map[string]string, source string) error
	RemoveTracksList(uris []string) error
	AllTracks() []library.Track
	AllTracksFromSource(source string) []library.Track
	TrackIDFromResourceURI(uri string) uint64
}

type Options struct {
	// Workers parsing files in parallel. Defaults to runtime.NumCPU().
	Workers int
	// Serial forces a single worker.
	Serial    bool
	BatchSize int
	Logger    *zap.Logger
	// OnProgress receives the running count of parsed files after each batch.
	OnProgress func(done int)
}

// ScanOptions tune a single scan.
type ScanOptions struct {
	// Since skips files not modified after it and disables stale pruning.
	Since time.Time
}

// Result summarizes a scan.
type Result struct {
	Source  string
	Files   int
	Indexed int
	Skipped int
	Removed int
	Elapsed time.Duration
}

type Scanner struct {
	lib  Library
	opts Options
	log  *zap.Logger
}

func New(lib Library, opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Serial {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scanner{lib: lib, opts: opts, log: opts.Logger}
}

// Source returns the provenance tag of tracks scanned under root.
func Source(root string) string {
	return "local:" + root
}

// Scan indexes every audio file below root. A full scan also removes the
// tracks of a previous scan of root whose files are gone.
func (s *Scanner) Scan(ctx context.Context, root string, so ScanOptions) (Result, error) {
	start := time.Now()
	res := Result{Source: Source(root)}

	filesChan := make(chan string, 100)
	tracksChan := make(chan library.Track, 100)
	seen := make(map[string]struct{})
	var walkErr error
	var skipped int
	var mu sync.Mutex

	// Discovery
	go func() {
		defer close(filesChan)
		walkErr = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.log.Debug("walk error", zap.String("path", path), zap.Error(err))
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() || !isAudioFile(path) {
				return nil
			}
			seen[path] = struct{}{}
			if !so.Since.IsZero() {
				info, err := d.Info()
				if err != nil || !info.ModTime().After(so.Since) {
					return nil
				}
			}
			select {
			case filesChan <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	// Workers
	var wgWorkers sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wgWorkers.Add(1)
		go func() {
			defer wgWorkers.Done()
			for path := range filesChan {
				t, err := readTrack(path)
				if err != nil {
					s.log.Debug("failed to parse media file", zap.String("path", path), zap.Error(err))
					mu.Lock()
					skipped++
					mu.Unlock()
					continue
				}
				tracksChan <- t
			}
		}()
	}

	go func() {
		wgWorkers.Wait()
		close(tracksChan)
	}()

	// Writer
	var writeErr error
	batch := make([]library.Track, 0, s.opts.BatchSize)
	write := func() {
		if len(batch) == 0 || writeErr != nil {
			return
		}
		if err := s.lib.InsertTracksList(batch, coversOf(batch), res.Source); err != nil {
			writeErr = err
			return
		}
		res.Indexed += len(batch)
		batch = batch[:0]
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(res.Indexed)
		}
	}
	for t := range tracksChan {
		batch = append(batch, t)
		if len(batch) >= s.opts.BatchSize {
			write()
		}
	}
	write()

	res.Files = len(seen)
	res.Skipped = skipped
	if writeErr != nil {
		return res, writeErr
	}
	if walkErr != nil {
		return res, walkErr
	}

	if so.Since.IsZero() {
		removed, err := s.removeUnseen(res.Source, seen)
		res.Removed = removed
		if err != nil {
			return res, err
		}
	}

	res.Elapsed = time.Since(start)
	s.log.Info("scan finished",
		zap.String("root", root),
		zap.Int("files", res.Files),
		zap.Int("indexed", res.Indexed),
		zap.Int("skipped", res.Skipped),
		zap.Int("removed", res.Removed),
		zap.Int("workers", s.opts.Workers),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (s *Scanner) removeUnseen(source string, seen map[string]struct{}) (int, error) {
	var stale []string
	for _, t := range s.lib.AllTracksFromSource(source) {
		if _, ok := seen[t.ResourceURI]; !ok {
			stale = append(stale, t.ResourceURI)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	return len(stale), s.lib.RemoveTracksList(stale)
}

// Prune removes every track whose local file no longer exists.
func (s *Scanner) Prune(ctx context.Context) (int, error) {
	var missing []string
	for _, t := range s.lib.AllTracks() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !filepath.IsAbs(t.ResourceURI) {
			continue
		}
		if _, err := os.Stat(t.ResourceURI); os.IsNotExist(err) {
			missing = append(missing, t.ResourceURI)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := s.lib.RemoveTracksList(missing); err != nil {
		return 0, err
	}
	s.log.Info("pruned missing files", zap.Int("removed", len(missing)))
	return len(missing), nil
}
