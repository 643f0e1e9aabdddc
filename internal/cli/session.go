package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"musicindex/internal/library"
	"musicindex/internal/search"
	"musicindex/internal/store"
)

var _ store.Datastore = (*search.BleveIndex)(nil)

// session is an open library with its persistence and search backend.
type session struct {
	log  *zap.Logger
	ix   *library.Index
	db   *store.SQLiteStore
	docs *search.BleveIndex
	// persisted is false when the SQLite store is not part of this build.
	persisted bool
}

type openOptions struct {
	// clear wipes every backend before the index loads.
	clear bool
	// documentsOnly persists the library in the document index without
	// SQLite. It is forced when SQLite is missing from the build.
	documentsOnly bool
}

func openSession(opts openOptions) (*session, error) {
	s := &session{log: logger, db: &store.SQLiteStore{}, persisted: !opts.documentsOnly}

	if s.persisted {
		if err := s.db.Initialize(cfg.Library.Database); err != nil {
			if !errors.Is(err, store.ErrNotAvailable) || cfg.Library.Backend != "bleve" {
				return nil, fmt.Errorf("opening database %s: %w", cfg.Library.Database, err)
			}
			s.log.Warn("SQLite is not available, keeping the library in the document index only")
			s.persisted = false
		}
	}
	if !s.persisted && cfg.Library.Backend != "bleve" {
		return nil, fmt.Errorf("backend %q needs SQLite: %w", cfg.Library.Backend, store.ErrNotAvailable)
	}
	if opts.clear && s.persisted {
		if err := s.db.Clear(); err != nil {
			s.Close()
			return nil, fmt.Errorf("clearing database: %w", err)
		}
	}

	if cfg.Library.Backend == "bleve" {
		s.docs = search.New(s.log.Named("search"))
		if err := s.docs.Initialize(cfg.Library.Database); err != nil {
			s.Close()
			return nil, fmt.Errorf("opening document index: %w", err)
		}
		if opts.clear {
			if err := s.docs.Clear(); err != nil {
				s.Close()
				return nil, fmt.Errorf("clearing document index: %w", err)
			}
		}
	}

	libOpts := library.Options{Logger: s.log.Named("library")}
	if s.persisted {
		libOpts.Store = s.db
	} else {
		libOpts.Store = s.docs
	}
	if cfg.Library.VariousArtists != "" {
		libOpts.Rollup = library.Sentinel(cfg.Library.VariousArtists)
	}
	ix, err := library.Open(libOpts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.ix = ix

	if s.docs != nil && s.persisted {
		if err := s.syncDocuments(); err != nil {
			s.Close()
			return nil, err
		}
		ix.Subscribe(s.docs)
	}
	return s, nil
}

// syncDocuments brings the document mirror in line with the library.
func (s *session) syncDocuments() error {
	count, err := s.docs.Count()
	if err != nil {
		return err
	}
	if count == s.ix.TracksCount() {
		return nil
	}
	s.log.Info("importing library into document index", zap.Int("tracks", s.ix.TracksCount()))
	return s.docs.Rebuild(s.ix.AllTracks())
}

// searcher returns the configured search backend.
func (s *session) searcher() store.Datastore {
	if s.docs != nil {
		return s.docs
	}
	return s.db
}

func (s *session) Close() {
	if s.ix != nil {
		if err := s.ix.Close(); err != nil {
			s.log.Warn("closing library", zap.Error(err))
		}
	}
	if s.docs != nil {
		if err := s.docs.Close(); err != nil {
			s.log.Warn("closing document index", zap.Error(err))
		}
	}
	if err := s.db.Close(); err != nil {
		s.log.Warn("closing database", zap.Error(err))
	}
}

// databaseModTime is the cutoff of freshen scans.
func databaseModTime() (time.Time, bool) {
	for _, path := range []string{cfg.Library.Database, search.IndexPath(cfg.Library.Database)} {
		if info, err := os.Stat(path); err == nil {
			return info.ModTime(), true
		}
	}
	return time.Time{}, false
}
